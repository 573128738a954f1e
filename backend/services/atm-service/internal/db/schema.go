package db

import (
	"context"
	"database/sql"
	"fmt"
)

// statements are portable between PostgreSQL and SQLite. Money columns hold integer cents.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		card_number    TEXT PRIMARY KEY,
		holder_name    TEXT NOT NULL,
		pin_hash       TEXT NOT NULL,
		biometric_hash TEXT NOT NULL,
		balance_cents  BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
		created_at     TIMESTAMP NOT NULL,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS atm_transactions (
		tx_id        TEXT PRIMARY KEY,
		card_number  TEXT NOT NULL,
		tx_type      TEXT NOT NULL,
		amount_cents BIGINT NOT NULL,
		created_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_atm_transactions_card ON atm_transactions (card_number, created_at)`,
}

// Migrate creates the accounts and audit tables when missing.
func Migrate(ctx context.Context, sqlDB *sql.DB) error {
	for i, stmt := range statements {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
