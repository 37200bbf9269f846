package model

// MediaKind selects which remote store an asset lives in.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

// MediaAsset is what the remote media service hands back after an upload.
type MediaAsset struct {
	StorageID   string    `json:"storageId"`
	URL         string    `json:"url"`
	Kind        MediaKind `json:"kind"`
	StorageType string    `json:"storageType"`
	Bytes       int64     `json:"bytes,omitempty"`
}

// MediaMetadata is the remote service's view of an asset.
type MediaMetadata struct {
	StorageID       string
	DurationSeconds float64
	Processing      bool
	Bytes           int64
}

// DurationSource lists what the resolver may inspect. Empty fields skip a strategy.
type DurationSource struct {
	LocalPath string
	StorageID string
	URL       string
}
