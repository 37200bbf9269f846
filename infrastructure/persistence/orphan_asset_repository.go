package persistence

import (
	"context"
	"database/sql"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/utils"
)

// OrphanAssetRepository keeps the orphaned-asset ledger in PostgreSQL.
type OrphanAssetRepository struct {
	db *sql.DB
}

var _ repository.IOrphanAsset = (*OrphanAssetRepository)(nil)

func NewOrphanAssetRepository(db *sql.DB) *OrphanAssetRepository {
	return &OrphanAssetRepository{db: db}
}

// Record upserts by storage id, so a second failed delete of the same asset
// re-arms the existing row instead of duplicating it.
func (r *OrphanAssetRepository) Record(ctx context.Context, a *model.OrphanedAsset) error {
	now := utils.GetCurrentTime()
	q := `INSERT INTO orphaned_assets (storage_id, kind, course_id, mutation_id, reason, status, attempts, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$6)
ON CONFLICT (storage_id) DO UPDATE SET
  mutation_id = EXCLUDED.mutation_id,
  reason = EXCLUDED.reason,
  status = 'pending',
  updated_at = EXCLUDED.updated_at
RETURNING id, attempts, created_at`
	err := r.db.QueryRowContext(ctx, q, a.StorageID, string(a.Kind), a.CourseID, a.MutationID, a.Reason, now).
		Scan(&a.ID, &a.Attempts, &a.CreatedAt)
	if err != nil {
		return err
	}
	a.Status = model.OrphanStatusPending
	a.UpdatedAt = now
	return nil
}

func (r *OrphanAssetRepository) FetchPending(ctx context.Context, limit int) ([]*model.OrphanedAsset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, storage_id, kind, course_id, reason, status, attempts, created_at, updated_at FROM orphaned_assets WHERE status='pending' ORDER BY updated_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrphans(rows)
}

func (r *OrphanAssetRepository) MarkResolved(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orphaned_assets SET status='resolved', attempts=attempts+1, updated_at=$1 WHERE id=$2`, utils.GetCurrentTime(), id)
	return err
}

func (r *OrphanAssetRepository) MarkFailed(ctx context.Context, id int64, reason string, abandon bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orphaned_assets SET status=$1, attempts=attempts+1, reason=$2, updated_at=$3 WHERE id=$4`,
		failedStatus(abandon), reason, utils.GetCurrentTime(), id)
	return err
}

func failedStatus(abandon bool) string {
	if abandon {
		return model.OrphanStatusAbandoned
	}
	return model.OrphanStatusPending
}

func scanOrphans(rows *sql.Rows) ([]*model.OrphanedAsset, error) {
	var list []*model.OrphanedAsset
	for rows.Next() {
		a := &model.OrphanedAsset{}
		var kind string
		var courseID, reason sql.NullString
		if err := rows.Scan(&a.ID, &a.StorageID, &kind, &courseID, &reason, &a.Status, &a.Attempts, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Kind = model.MediaKind(kind)
		a.CourseID = courseID.String
		a.Reason = reason.String
		list = append(list, a)
	}
	return list, rows.Err()
}
