package model

import "time"

const (
	OrphanStatusPending   = "pending"
	OrphanStatusResolved  = "resolved"
	OrphanStatusAbandoned = "abandoned"
)

// OrphanedAsset is a remote asset whose delete failed and still costs storage.
// MutationID links it to the audit row of the mutation that left it.
type OrphanedAsset struct {
	ID         int64     `json:"id"`
	StorageID  string    `json:"storage_id"`
	Kind       MediaKind `json:"kind"`
	CourseID   string    `json:"course_id"`
	MutationID string    `json:"mutation_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const EventAssetOrphaned = "asset.orphaned"

// AssetOrphanedEvent is the message published when an asset enters the ledger.
type AssetOrphanedEvent struct {
	Type       string    `json:"type"`
	LedgerID   int64     `json:"ledgerId"`
	StorageID  string    `json:"storageId"`
	Kind       MediaKind `json:"kind"`
	CourseID   string    `json:"courseId,omitempty"`
	MutationID string    `json:"mutationId,omitempty"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewAssetOrphanedEvent(a *OrphanedAsset) AssetOrphanedEvent {
	return AssetOrphanedEvent{
		Type:       EventAssetOrphaned,
		LedgerID:   a.ID,
		StorageID:  a.StorageID,
		Kind:       a.Kind,
		CourseID:   a.CourseID,
		MutationID: a.MutationID,
		Reason:     a.Reason,
		OccurredAt: time.Now().UTC(),
	}
}
