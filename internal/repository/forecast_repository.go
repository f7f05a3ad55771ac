// internal/repository/forecast_repository.go
package repository

import (
	"context"
	"errors"

	"github.com/brazaops/stockcast/internal/domain"
)

// ErrNoStockReading is returned when a SKU has no authoritative stock
// snapshot on record.
var ErrNoStockReading = errors.New("no stock reading for sku")

// ForecastRepository is the persistence collaborator of the forecasting
// core. All reads return rows ordered by date ascending.
//
// Forecast rows are a replaceable cache: a rerun for a (sku, account) pair
// discards the pair's prior rows before inserting, and implementations must
// make that delete+insert atomic so a write failure leaves the previous
// rows intact rather than deleted-but-not-replaced.
type ForecastRepository interface {
	// ReadHistory returns the daily sales history for a SKU, optionally
	// filtered by account (empty account means all accounts).
	ReadHistory(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error)

	// ReadForecast returns stored forecast rows for a SKU, optionally
	// filtered by account.
	ReadForecast(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error)

	// ReadStock returns the latest stock snapshot for a SKU, summed across
	// readings sharing the snapshot date. Returns ErrNoStockReading when the
	// SKU is absent.
	ReadStock(ctx context.Context, skuCode string) (domain.StockLevel, error)

	// DeleteForecast removes all forecast rows for an exact (sku, account)
	// pair.
	DeleteForecast(ctx context.Context, skuCode, account string) error

	// WriteForecast appends forecast rows.
	WriteForecast(ctx context.Context, rows []domain.ForecastPoint) error

	// ReplaceForecast atomically swaps the forecast rows for one
	// (sku, account) pair.
	ReplaceForecast(ctx context.Context, skuCode, account string, rows []domain.ForecastPoint) error

	// DistinctSalesKeys lists every (sku, account) pair present in the sales
	// history, ordered by account then sku.
	DistinctSalesKeys(ctx context.Context) ([]domain.SeriesKey, error)

	// InsertSalesEvents appends sales history rows.
	InsertSalesEvents(ctx context.Context, events []domain.SalesEvent) error

	// ReplaceStock replaces the whole stock table with a fresh snapshot.
	ReplaceStock(ctx context.Context, readings []domain.StockReading) error
}
