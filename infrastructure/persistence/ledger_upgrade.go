package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

type columnUpgrade struct {
	table  string
	column string
	ddl    string
}

// Columns added to orphaned_assets after its first release.
var ledgerUpgrades = []columnUpgrade{
	{"orphaned_assets", "mutation_id", "ALTER TABLE orphaned_assets ADD COLUMN mutation_id VARCHAR(64)"},
}

var ledgerUpgradesMSSQL = []columnUpgrade{
	{"dbo.orphaned_assets", "mutation_id", "ALTER TABLE dbo.[orphaned_assets] ADD mutation_id NVARCHAR(64) NULL"},
}

// upgradeLedger adds missing columns. It performs metadata lookups and
// conditional ALTER TABLE, so it is safe to repeat.
func upgradeLedger(ctx context.Context, db *sql.DB) error {
	for _, c := range ledgerUpgrades {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func upgradeLedgerMSSQL(ctx context.Context, db *sql.DB) error {
	for _, c := range ledgerUpgradesMSSQL {
		q := fmt.Sprintf(`IF COL_LENGTH('%s', '%s') IS NULL BEGIN %s END`, c.table, c.column, c.ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure column %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
