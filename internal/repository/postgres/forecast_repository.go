// internal/repository/postgres/forecast_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brazaops/stockcast/internal/domain"
	"github.com/brazaops/stockcast/internal/repository"
)

// ForecastRepository is the Postgres-backed persistence collaborator of the
// forecasting core.
type ForecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

var _ repository.ForecastRepository = (*ForecastRepository)(nil)

// ReadHistory sums the raw units column. total_units is not usable as the
// demand signal: the multiplier clamp zeroes it for most tokens, so a fit on
// it would see flat-zero history for SKUs with steady sales.
func (r *ForecastRepository) ReadHistory(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error) {
	query := `
		SELECT date, SUM(units) AS quantity
		FROM sales
		WHERE sku = $1 AND ($2 = '' OR account = $2)
		GROUP BY date
		ORDER BY date
	`
	var rows []domain.DatedQuantity
	if err := r.db.SelectContext(ctx, &rows, query, skuCode, account); err != nil {
		return nil, fmt.Errorf("failed to read sales history: %w", err)
	}
	return rows, nil
}

func (r *ForecastRepository) ReadForecast(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error) {
	query := `
		SELECT date, SUM(predicted_units) AS quantity
		FROM forecasts
		WHERE sku = $1 AND ($2 = '' OR account = $2)
		GROUP BY date
		ORDER BY date
	`
	var rows []domain.DatedQuantity
	if err := r.db.SelectContext(ctx, &rows, query, skuCode, account); err != nil {
		return nil, fmt.Errorf("failed to read forecast: %w", err)
	}
	return rows, nil
}

func (r *ForecastRepository) ReadStock(ctx context.Context, skuCode string) (domain.StockLevel, error) {
	query := `
		SELECT sku, date, SUM(stock_units) AS stock_units
		FROM stock
		WHERE sku = $1
		GROUP BY sku, date
		ORDER BY date DESC
		LIMIT 1
	`
	var level domain.StockLevel
	if err := r.db.GetContext(ctx, &level, query, skuCode); err != nil {
		if err == sql.ErrNoRows {
			return domain.StockLevel{}, repository.ErrNoStockReading
		}
		return domain.StockLevel{}, fmt.Errorf("failed to read stock: %w", err)
	}
	return level, nil
}

func (r *ForecastRepository) DeleteForecast(ctx context.Context, skuCode, account string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM forecasts WHERE sku = $1 AND account = $2`, skuCode, account); err != nil {
		return fmt.Errorf("failed to delete forecast rows: %w", err)
	}
	return nil
}

func (r *ForecastRepository) WriteForecast(ctx context.Context, rows []domain.ForecastPoint) error {
	for _, row := range rows {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO forecasts (sku, account, date, predicted_units) VALUES ($1, $2, $3, $4)`,
			row.SKU, row.Account, row.Date, row.PredictedUnits); err != nil {
			return fmt.Errorf("failed to insert forecast row: %w", err)
		}
	}
	return nil
}

// ReplaceForecast swaps the stored forecast rows for one (sku, account) pair
// inside a single transaction. A reader never observes the pair with zero or
// duplicate rows mid-update, and an insert failure rolls the delete back.
func (r *ForecastRepository) ReplaceForecast(ctx context.Context, skuCode, account string, rows []domain.ForecastPoint) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM forecasts WHERE sku = $1 AND account = $2`, skuCode, account); err != nil {
			return fmt.Errorf("failed to delete prior forecast rows: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO forecasts (sku, account, date, predicted_units) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("failed to prepare forecast insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row.SKU, row.Account, row.Date, row.PredictedUnits); err != nil {
				return fmt.Errorf("failed to insert forecast row: %w", err)
			}
		}
		return nil
	})
}

func (r *ForecastRepository) DistinctSalesKeys(ctx context.Context) ([]domain.SeriesKey, error) {
	var keys []domain.SeriesKey
	query := `SELECT DISTINCT sku, account FROM sales ORDER BY account, sku`
	if err := r.db.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("failed to list sales keys: %w", err)
	}
	return keys, nil
}

func (r *ForecastRepository) InsertSalesEvents(ctx context.Context, events []domain.SalesEvent) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales (account, sku, date, units, item_multiplier, total_units)
			VALUES ($1, $2, $3, $4, $5, $6)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare sales insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range events {
			if _, err := stmt.ExecContext(ctx,
				e.Account, e.SKU, e.Date, e.Units, e.ItemMultiplier, e.TotalUnits); err != nil {
				return fmt.Errorf("failed to insert sales event: %w", err)
			}
		}
		return nil
	})
}

// ReplaceStock drops the previous snapshot wholesale. Stock has no
// historical accumulation: the latest ingestion run is authoritative.
func (r *ForecastRepository) ReplaceStock(ctx context.Context, readings []domain.StockReading) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM stock`); err != nil {
			return fmt.Errorf("failed to clear stock table: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO stock (sku, item_multiplier, stock_units, date)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare stock insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range readings {
			if _, err := stmt.ExecContext(ctx, s.SKU, s.ItemMultiplier, s.StockUnits, s.Date); err != nil {
				return fmt.Errorf("failed to insert stock reading: %w", err)
			}
		}
		return nil
	})
}
