package model

import "time"

type MutationOp string

const (
	OpCreate MutationOp = "create"
	OpEdit   MutationOp = "edit"
	OpDelete MutationOp = "delete"
)

// Stage is a state of the per-request mutation state machine.
type Stage string

const (
	StageValidated        Stage = "Validated"
	StageAssetsUploading  Stage = "AssetsUploading"
	StageAssetsResolved   Stage = "AssetsResolved"
	StageOrganized        Stage = "Organized"
	StagePersisted        Stage = "Persisted"
	StageCacheInvalidated Stage = "CacheInvalidated"
	StageFailed           Stage = "Failed"
)

// MutationEvent is broadcast on every stage transition.
type MutationEvent struct {
	MutationID string     `json:"mutationId"`
	Op         MutationOp `json:"op"`
	CourseID   string     `json:"courseId,omitempty"`
	Stage      Stage      `json:"stage"`
	FailedAt   Stage      `json:"failedAt,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Item       string     `json:"item,omitempty"`
	At         time.Time  `json:"at"`
}

// MutationAudit is one row of the mutation audit trail.
type MutationAudit struct {
	ID         uint64    `json:"id"          gorm:"primaryKey;autoIncrement"`
	MutationID string    `json:"mutation_id" gorm:"size:64;index"`
	Op         string    `json:"op"          gorm:"size:16"`
	CourseID   string    `json:"course_id"   gorm:"size:64;index"`
	Stage      string    `json:"stage"       gorm:"size:32"`
	Outcome    string    `json:"outcome"     gorm:"size:16"`
	Error      string    `json:"error"       gorm:"type:text"`
	Uploaded   int       `json:"uploaded"`
	Deleted    int       `json:"deleted"`
	CreatedAt  time.Time `json:"created_at"  gorm:"autoCreateTime;index"`
}

func (MutationAudit) TableName() string { return "course_mutation_audit" }
