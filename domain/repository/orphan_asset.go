package repository

import (
	"context"

	"course-service/domain/model"
)

// IOrphanAsset is the ledger of remote assets whose delete failed.
type IOrphanAsset interface {
	Record(ctx context.Context, asset *model.OrphanedAsset) error
	FetchPending(ctx context.Context, limit int) ([]*model.OrphanedAsset, error)
	MarkResolved(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string, abandon bool) error
}

// IAssetEvents publishes orphan notifications to the messaging backbone.
type IAssetEvents interface {
	PublishOrphaned(ctx context.Context, asset *model.OrphanedAsset) error
}

// IMutationAudit appends finished mutations to the audit trail.
type IMutationAudit interface {
	Append(ctx context.Context, audit *model.MutationAudit) error
}

// IMutationEvents receives every stage transition of a running mutation.
type IMutationEvents interface {
	Publish(evt model.MutationEvent)
}
