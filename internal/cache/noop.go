// internal/cache/noop.go
package cache

import (
	"context"

	"github.com/brazaops/stockcast/internal/domain"
)

// noopCache satisfies ForecastCache without storing anything.
type noopCache struct{}

func NewNoopCache() ForecastCache {
	return noopCache{}
}

func (noopCache) GetForecast(context.Context, string, string) ([]domain.DatedQuantity, error) {
	return nil, nil
}

func (noopCache) SetForecast(context.Context, string, string, []domain.DatedQuantity) error {
	return nil
}

func (noopCache) GetProjection(context.Context, string) ([]domain.ProjectionPoint, error) {
	return nil, nil
}

func (noopCache) SetProjection(context.Context, string, []domain.ProjectionPoint) error {
	return nil
}

func (noopCache) InvalidateSKU(context.Context, string) error { return nil }

func (noopCache) Flush(context.Context) error { return nil }
