package persistence

import (
	"context"
	"database/sql"

	"course-service/domain/model"
	"course-service/domain/repository"
	"course-service/infrastructure/utils"
)

// OrphanAssetRepositoryMSSQL keeps the orphaned-asset ledger in SQL Server / Azure SQL.
type OrphanAssetRepositoryMSSQL struct {
	db *sql.DB
}

var _ repository.IOrphanAsset = (*OrphanAssetRepositoryMSSQL)(nil)

func NewOrphanAssetRepositoryMSSQL(db *sql.DB) *OrphanAssetRepositoryMSSQL {
	return &OrphanAssetRepositoryMSSQL{db: db}
}

func (r *OrphanAssetRepositoryMSSQL) Record(ctx context.Context, a *model.OrphanedAsset) error {
	now := utils.GetCurrentTime()
	q := `MERGE dbo.[orphaned_assets] WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS storage_id) AS s ON t.storage_id = s.storage_id
WHEN MATCHED THEN UPDATE SET mutation_id=@p4, reason=@p5, status='pending', updated_at=@p6
WHEN NOT MATCHED THEN INSERT (storage_id, kind, course_id, mutation_id, reason, status, attempts, created_at, updated_at)
  VALUES (@p1, @p2, @p3, @p4, @p5, 'pending', 0, @p6, @p6)
OUTPUT inserted.id, inserted.attempts, inserted.created_at;`
	err := r.db.QueryRowContext(ctx, q, a.StorageID, string(a.Kind), a.CourseID, a.MutationID, a.Reason, now).
		Scan(&a.ID, &a.Attempts, &a.CreatedAt)
	if err != nil {
		return err
	}
	a.Status = model.OrphanStatusPending
	a.UpdatedAt = now
	return nil
}

func (r *OrphanAssetRepositoryMSSQL) FetchPending(ctx context.Context, limit int) ([]*model.OrphanedAsset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT TOP (@p1) id, storage_id, kind, course_id, reason, status, attempts, created_at, updated_at
FROM dbo.[orphaned_assets]
WHERE status='pending'
ORDER BY updated_at ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrphans(rows)
}

func (r *OrphanAssetRepositoryMSSQL) MarkResolved(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[orphaned_assets] SET status='resolved', attempts=attempts+1, updated_at=@p1 WHERE id=@p2`, utils.GetCurrentTime(), id)
	return err
}

func (r *OrphanAssetRepositoryMSSQL) MarkFailed(ctx context.Context, id int64, reason string, abandon bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[orphaned_assets] SET status=@p1, attempts=attempts+1, reason=@p2, updated_at=@p3 WHERE id=@p4`,
		failedStatus(abandon), reason, utils.GetCurrentTime(), id)
	return err
}
