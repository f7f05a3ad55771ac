// internal/domain/models.go
package domain

import "time"

// SalesEvent is one observed sale for an account, after SKU normalization.
// Events sharing (account, sku, date) are additive.
type SalesEvent struct {
	ID             int64     `json:"id" db:"id"`
	Account        string    `json:"account" db:"account"`
	SKU            string    `json:"sku" db:"sku"`
	Date           time.Time `json:"date" db:"date"`
	Units          float64   `json:"units" db:"units"`
	ItemMultiplier int       `json:"item_multiplier" db:"item_multiplier"`
	TotalUnits     float64   `json:"total_units" db:"total_units"`
}

// StockReading is one on-hand stock snapshot for a SKU. The latest ingestion
// run is authoritative: readings are replaced wholesale, never accumulated.
type StockReading struct {
	ID             int64     `json:"id" db:"id"`
	SKU            string    `json:"sku" db:"sku"`
	ItemMultiplier int       `json:"item_multiplier" db:"item_multiplier"`
	StockUnits     float64   `json:"stock_units" db:"stock_units"`
	Date           time.Time `json:"date" db:"date"`
}

// ForecastPoint is one predicted demand value for a future date.
type ForecastPoint struct {
	ID             int64     `json:"id" db:"id"`
	SKU            string    `json:"sku" db:"sku"`
	Account        string    `json:"account" db:"account"`
	Date           time.Time `json:"date" db:"date"`
	PredictedUnits float64   `json:"predicted_units" db:"predicted_units"`
}

// ProjectionPoint is one predicted remaining-stock value. Derived on demand,
// never persisted; RemainingUnits is always >= 0.
type ProjectionPoint struct {
	Date           time.Time `json:"date"`
	RemainingUnits float64   `json:"remaining_units"`
}

// DatedQuantity is a generic (date, quantity) row read back from the store.
type DatedQuantity struct {
	Date     time.Time `json:"date" db:"date"`
	Quantity float64   `json:"quantity" db:"quantity"`
}

// SeriesKey identifies one demand series.
type SeriesKey struct {
	SKU     string `json:"sku" db:"sku"`
	Account string `json:"account" db:"account"`
}

// StockLevel is the latest authoritative stock snapshot for a SKU.
type StockLevel struct {
	SKU        string    `json:"sku" db:"sku"`
	Date       time.Time `json:"date" db:"date"`
	StockUnits float64   `json:"stock_units" db:"stock_units"`
}
