package repository

import (
	"context"
	"io"

	"course-service/domain/model"
)

// MediaUploadInput is a single upload call against a remote store.
type MediaUploadInput struct {
	Body        io.Reader
	FileName    string
	Title       string
	Description string
	Folder      string
	ChunkSize   int
	Size        int64
}

// IMediaStore is a remote media service holding binary assets.
type IMediaStore interface {
	Upload(ctx context.Context, in MediaUploadInput) (*model.MediaAsset, error)
	Delete(ctx context.Context, storageID string) error
	// Probe returns model.ErrAssetNotFound when the asset does not exist.
	Probe(ctx context.Context, storageID string) (*model.MediaMetadata, error)
}

// IMediaUploader uploads one local file with bounded retries.
type IMediaUploader interface {
	Upload(ctx context.Context, kind model.MediaKind, localPath, title string) (*model.MediaAsset, error)
	Delete(ctx context.Context, kind model.MediaKind, storageID string) error
}

// IDurationResolver never fails; zero means unknown.
type IDurationResolver interface {
	Resolve(ctx context.Context, src model.DurationSource) int
}
