package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureOrphanSchemaMSSQL creates dbo.orphaned_assets when it does not exist yet.
func EnsureOrphanSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := `IF OBJECT_ID('dbo.orphaned_assets', 'U') IS NULL BEGIN
CREATE TABLE dbo.[orphaned_assets] (
  id BIGINT IDENTITY(1,1) PRIMARY KEY,
  storage_id NVARCHAR(512) NOT NULL UNIQUE,
  kind NVARCHAR(16) NOT NULL,
  course_id NVARCHAR(64) NULL,
  reason NVARCHAR(MAX) NULL,
  status NVARCHAR(16) NOT NULL DEFAULT 'pending',
  attempts INT NOT NULL DEFAULT 0,
  created_at DATETIME2 NOT NULL,
  updated_at DATETIME2 NOT NULL
);
CREATE INDEX idx_orphaned_assets_status ON dbo.[orphaned_assets] (status, updated_at);
END`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure dbo.orphaned_assets: %w", err)
	}
	return upgradeLedgerMSSQL(ctx, db)
}
