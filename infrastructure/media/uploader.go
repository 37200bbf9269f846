// Package media uploads course assets to the remote media service and works
// out how long a video runs.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/logger"
	"course-service/infrastructure/retry"
)

type UploaderConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
	Timeout     time.Duration
	ChunkSize   int
	VideoFolder string
	ImageFolder string
}

// Uploader sends one local file per call to the store registered for its kind.
type Uploader struct {
	stores map[model.MediaKind]repository.IMediaStore
	cfg    UploaderConfig
	policy retry.Policy
}

func NewUploader(video, image repository.IMediaStore, cfg UploaderConfig) *Uploader {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &Uploader{
		stores: map[model.MediaKind]repository.IMediaStore{
			model.MediaKindVideo: video,
			model.MediaKindImage: image,
		},
		cfg: cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       retry.Exponential(cfg.BaseDelay, cfg.MaxDelay, cfg.Jitter),
			Retryable:   retryableUpload,
		},
	}
}

func (u *Uploader) Upload(ctx context.Context, kind model.MediaKind, localPath, title string) (*model.MediaAsset, error) {
	store, err := u.store(kind)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, &model.UploadFailedError{FileName: filepath.Base(localPath), Attempts: 0, LastErr: err}
	}

	name := filepath.Base(localPath)
	log := logger.GetLogger().WithField("file", name).WithField("kind", kind)

	var asset *model.MediaAsset
	attempts, err := u.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		f, err := os.Open(localPath)
		if err != nil {
			return err
		}
		defer f.Close()

		callCtx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
		defer cancel()

		a, err := store.Upload(callCtx, repository.MediaUploadInput{
			Body:      f,
			FileName:  name,
			Title:     title,
			Folder:    u.folder(kind),
			ChunkSize: u.cfg.ChunkSize,
			Size:      info.Size(),
		})
		if err != nil {
			log.WithField("attempt", attempt).Warnf("Upload attempt failed: %v", err)
			return err
		}
		asset = a
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			log.WithField("attempts", attempts).Warn("Upload abandoned, request context is done")
			return nil, err
		}
		log.WithField("attempts", attempts).Errorf("Upload gave up: %v", err)
		return nil, &model.UploadFailedError{FileName: name, Attempts: attempts, LastErr: err}
	}

	asset.Kind = kind
	if asset.Bytes == 0 {
		asset.Bytes = info.Size()
	}
	log.WithField("storageId", asset.StorageID).WithField("attempts", attempts).Info("Upload finished")
	return asset, nil
}

func (u *Uploader) Delete(ctx context.Context, kind model.MediaKind, storageID string) error {
	store, err := u.store(kind)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, storageID); err != nil {
		return &model.RemoteDeleteError{StorageID: storageID, Err: err}
	}
	return nil
}

func (u *Uploader) store(kind model.MediaKind) (repository.IMediaStore, error) {
	s, ok := u.stores[kind]
	if !ok || s == nil {
		return nil, fmt.Errorf("no media store configured for %s", kind)
	}
	return s, nil
}

func (u *Uploader) folder(kind model.MediaKind) string {
	if kind == model.MediaKindImage {
		return u.cfg.ImageFolder
	}
	return u.cfg.VideoFolder
}

// Anything but a missing local file, a cancelled request or a refusal by the
// remote service may succeed on resubmission.
func retryableUpload(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, os.ErrNotExist):
		return false
	case errors.Is(err, model.ErrRejected), errors.Is(err, model.ErrAssetNotFound):
		return false
	}
	return true
}
