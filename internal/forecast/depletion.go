// internal/forecast/depletion.go
package forecast

import (
	"time"

	"github.com/brazaops/stockcast/internal/domain"
)

// Simulate walks a starting stock level through a forecast demand series,
// one point per demand value, dates consecutive from start.
//
// Remaining stock is clamped at zero: once depleted it stays pinned there,
// and the output never contains a negative value. Demand is expected to be
// non-negative (the forecaster floors it), but a negative entry still cannot
// push remaining stock below zero here. An empty demand series yields an
// empty projection, not an error.
func Simulate(startingStock float64, demand []float64, start time.Time) []domain.ProjectionPoint {
	if len(demand) == 0 {
		return nil
	}

	out := make([]domain.ProjectionPoint, len(demand))
	remaining := startingStock
	day := start
	for i, d := range demand {
		if remaining-d >= 0 {
			remaining -= d
		} else {
			remaining = 0
		}
		out[i] = domain.ProjectionPoint{Date: day, RemainingUnits: remaining}
		day = day.AddDate(0, 0, 1)
	}
	return out
}
