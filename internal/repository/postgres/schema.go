// internal/repository/postgres/schema.go
package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGSERIAL PRIMARY KEY,
		account TEXT NOT NULL,
		sku TEXT NOT NULL,
		date DATE NOT NULL,
		units DOUBLE PRECISION NOT NULL DEFAULT 0,
		item_multiplier INTEGER NOT NULL DEFAULT 0,
		total_units DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_sku_account_date ON sales (sku, account, date)`,
	`CREATE TABLE IF NOT EXISTS stock (
		id BIGSERIAL PRIMARY KEY,
		sku TEXT NOT NULL,
		item_multiplier INTEGER NOT NULL DEFAULT 0,
		stock_units DOUBLE PRECISION NOT NULL DEFAULT 0,
		date DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_sku ON stock (sku)`,
	`CREATE TABLE IF NOT EXISTS forecasts (
		id BIGSERIAL PRIMARY KEY,
		sku TEXT NOT NULL,
		account TEXT NOT NULL,
		date DATE NOT NULL,
		predicted_units DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forecasts_sku_account_date ON forecasts (sku, account, date)`,
}

// Migrate bootstraps the three pipeline tables. Idempotent, safe to run on
// every CLI invocation.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
