package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureOrphanSchema creates the orphaned-asset ledger table and its indexes when missing.
// Safe to call at startup.
func EnsureOrphanSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orphaned_assets (
  id BIGSERIAL PRIMARY KEY,
  storage_id TEXT NOT NULL UNIQUE,
  kind VARCHAR(16) NOT NULL,
  course_id VARCHAR(64),
  reason TEXT,
  status VARCHAR(16) NOT NULL DEFAULT 'pending',
  attempts INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_orphaned_assets_status ON orphaned_assets (status, updated_at)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure orphaned_assets schema: %w", err)
		}
	}
	return upgradeLedger(ctx, db)
}
