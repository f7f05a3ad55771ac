// internal/pipeline/runner.go

// Package pipeline orchestrates the forecasting batch: it reduces stored
// sales history into dense daily series, fits the quadratic trend per key,
// and swaps the persisted forecast rows. Stock projections are derived from
// the persisted forecasts on demand.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/brazaops/stockcast/internal/domain"
	"github.com/brazaops/stockcast/internal/forecast"
	"github.com/brazaops/stockcast/internal/repository"
	"github.com/brazaops/stockcast/internal/timeseries"
)

// ErrInsufficientHistory is returned when a requested key has no historical
// rows to fit on.
var ErrInsufficientHistory = errors.New("insufficient sales history")

// Runner executes forecast runs against the repository.
type Runner struct {
	repo    repository.ForecastRepository
	horizon int
	workers int
}

// Option configures a Runner.
type Option func(*Runner)

// WithHorizon overrides the projection length.
func WithHorizon(days int) Option {
	return func(r *Runner) {
		if days > 0 {
			r.horizon = days
		}
	}
}

// WithWorkers sets the worker-pool width for batch runs.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func NewRunner(repo repository.ForecastRepository, opts ...Option) *Runner {
	r := &Runner{
		repo:    repo,
		horizon: forecast.HorizonDays,
		workers: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// KeyResult is the outcome of one (sku, account) forecast.
type KeyResult struct {
	Key    domain.SeriesKey
	Points int
	Err    error
}

// RunSummary aggregates the per-key outcomes of a batch run.
type RunSummary struct {
	Results   []KeyResult
	StartedAt time.Time
	Duration  time.Duration
}

// Failed returns the results that ended in an error.
func (s RunSummary) Failed() []KeyResult {
	var out []KeyResult
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// RunAll refreshes the forecast for every (sku, account) pair present in the
// sales history. Every pair's series is reindexed over the global calendar
// window before fitting, so day indices stay comparable across pairs and a
// pair that stopped selling gets its recent zero days counted against its
// trend. Fit and persist fan out across a bounded worker pool; because the
// keys are distinct, each pair's delete+insert stays a per-key critical
// section. A failed key is recorded in the summary and never aborts the
// others.
func (r *Runner) RunAll(ctx context.Context) (RunSummary, error) {
	started := time.Now()

	keys, err := r.repo.DistinctSalesKeys(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to list forecast keys: %w", err)
	}

	log.Info().Int("keys", len(keys)).Int("workers", r.workers).Msg("forecast run starting")

	var (
		mu      sync.Mutex
		results = make([]KeyResult, 0, len(keys))
	)

	var obs []timeseries.Observation
	pending := make([]timeseries.Key, 0, len(keys))
	for _, key := range keys {
		history, herr := r.repo.ReadHistory(ctx, key.SKU, key.Account)
		if herr != nil {
			results = append(results, KeyResult{
				Key: key,
				Err: fmt.Errorf("failed to read history for %s/%s: %w", key.SKU, key.Account, herr),
			})
			continue
		}
		if len(history) == 0 {
			results = append(results, KeyResult{
				Key: key,
				Err: fmt.Errorf("%w for %s/%s", ErrInsufficientHistory, key.SKU, key.Account),
			})
			continue
		}

		tkey := timeseries.Key{Account: key.Account, SKU: key.SKU}
		for _, row := range history {
			obs = append(obs, timeseries.Observation{Key: tkey, Date: row.Date, Value: row.Quantity})
		}
		pending = append(pending, tkey)
	}

	aligned := timeseries.BuildAligned(obs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, tkey := range pending {
		g.Go(func() error {
			key := domain.SeriesKey{SKU: tkey.SKU, Account: tkey.Account}
			series := aligned[tkey]

			model := forecast.Fit(series.Values())
			preds := model.Project(len(series), r.horizon)
			rows := futureRows(key, series.Last().Date, preds)

			result := KeyResult{Key: key, Points: len(rows)}
			if err := r.repo.ReplaceForecast(gctx, key.SKU, key.Account, rows); err != nil {
				result = KeyResult{
					Key: key,
					Err: fmt.Errorf("failed to persist forecast for %s/%s: %w", key.SKU, key.Account, err),
				}
				log.Warn().Err(result.Err).Str("sku", key.SKU).Str("account", key.Account).
					Msg("forecast failed for key")
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			// Per-key failures are part of the summary, not a reason to stop
			// the batch; only context cancellation halts the pool.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return RunSummary{Results: results, StartedAt: started, Duration: time.Since(started)}, err
	}

	summary := RunSummary{Results: results, StartedAt: started, Duration: time.Since(started)}
	log.Info().Int("keys", len(keys)).Int("failed", len(summary.Failed())).
		Dur("duration", summary.Duration).Msg("forecast run completed")
	return summary, nil
}

// SKUForecast is the outcome of a single-filter forecast run.
type SKUForecast struct {
	SKU     string
	History timeseries.Series
	// Predicted is the shared magnitude sequence projected from the fitted
	// curve; every matching (account, sku) group stores the same values
	// anchored to its own last historical date.
	Predicted []float64
	Groups    []domain.SeriesKey
}

// ForecastSKU fits one curve for a SKU filter (optionally narrowed to one
// account) and replicates the predicted magnitudes across every matching
// (account, sku) group, each group's 360 future dates anchored to that
// group's own last historical date. Whether accounts sharing a SKU should
// instead get independently fitted curves is an open product question; this
// preserves the established shared-curve behavior.
func (r *Runner) ForecastSKU(ctx context.Context, skuCode, account string) (*SKUForecast, error) {
	series, err := r.historySeries(ctx, skuCode, account)
	if err != nil {
		return nil, err
	}

	model := forecast.Fit(series.Values())
	preds := model.Project(len(series), r.horizon)

	groups, err := r.matchingGroups(ctx, skuCode, account)
	if err != nil {
		return nil, err
	}

	for _, key := range groups {
		anchor := series.Last().Date
		if key.Account != account {
			groupSeries, gerr := r.historySeries(ctx, key.SKU, key.Account)
			if gerr != nil {
				return nil, gerr
			}
			anchor = groupSeries.Last().Date
		}

		rows := futureRows(key, anchor, preds)
		if err := r.repo.ReplaceForecast(ctx, key.SKU, key.Account, rows); err != nil {
			return nil, fmt.Errorf("failed to persist forecast for %s/%s: %w", key.SKU, key.Account, err)
		}
	}

	return &SKUForecast{
		SKU:       skuCode,
		History:   series,
		Predicted: preds,
		Groups:    groups,
	}, nil
}

// ProjectStock simulates day-by-day depletion of the latest stock snapshot
// against the persisted forecast demand for a SKU. The projection window
// starts the day after the earliest forecast date on record, so repeated
// re-simulation never needs the sales history again. No forecast rows yield
// an empty projection, not an error.
func (r *Runner) ProjectStock(ctx context.Context, skuCode string) ([]domain.ProjectionPoint, error) {
	level, err := r.repo.ReadStock(ctx, skuCode)
	if err != nil {
		return nil, err
	}

	fcRows, err := r.repo.ReadForecast(ctx, skuCode, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast for %s: %w", skuCode, err)
	}
	if len(fcRows) == 0 {
		return nil, nil
	}

	points := make([]timeseries.Point, len(fcRows))
	for i, row := range fcRows {
		points[i] = timeseries.Point{Date: row.Date, Value: row.Quantity}
	}

	start := timeseries.Day(fcRows[0].Date).AddDate(0, 0, 1)
	demand := timeseries.Reindex(points, start, r.horizon)

	return forecast.Simulate(level.StockUnits, demand, start), nil
}

func (r *Runner) historySeries(ctx context.Context, skuCode, account string) (timeseries.Series, error) {
	history, err := r.repo.ReadHistory(ctx, skuCode, account)
	if err != nil {
		return nil, fmt.Errorf("failed to read history for %s/%s: %w", skuCode, account, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w for %s/%s", ErrInsufficientHistory, skuCode, account)
	}

	obs := make([]timeseries.Observation, len(history))
	key := timeseries.Key{SKU: skuCode, Account: account}
	for i, row := range history {
		obs[i] = timeseries.Observation{Key: key, Date: row.Date, Value: row.Quantity}
	}
	return timeseries.Build(obs)[key], nil
}

func (r *Runner) matchingGroups(ctx context.Context, skuCode, account string) ([]domain.SeriesKey, error) {
	if account != "" {
		return []domain.SeriesKey{{SKU: skuCode, Account: account}}, nil
	}

	keys, err := r.repo.DistinctSalesKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecast keys: %w", err)
	}

	var groups []domain.SeriesKey
	for _, key := range keys {
		if key.SKU == skuCode {
			groups = append(groups, key)
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrInsufficientHistory, skuCode)
	}
	return groups, nil
}

func futureRows(key domain.SeriesKey, lastDate time.Time, preds []float64) []domain.ForecastPoint {
	rows := make([]domain.ForecastPoint, len(preds))
	date := timeseries.Day(lastDate)
	for i, p := range preds {
		date = date.AddDate(0, 0, 1)
		rows[i] = domain.ForecastPoint{
			SKU:            key.SKU,
			Account:        key.Account,
			Date:           date,
			PredictedUnits: p,
		}
	}
	return rows
}
