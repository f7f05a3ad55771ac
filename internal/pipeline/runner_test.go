package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brazaops/stockcast/internal/domain"
	"github.com/brazaops/stockcast/internal/ingest"
	"github.com/brazaops/stockcast/internal/repository"
)

// fakeRepo is an in-memory ForecastRepository for exercising the runner
// without a database.
type fakeRepo struct {
	mu        sync.Mutex
	sales     []domain.SalesEvent
	stock     []domain.StockReading
	forecasts map[domain.SeriesKey][]domain.ForecastPoint
	failKeys  map[domain.SeriesKey]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		forecasts: make(map[domain.SeriesKey][]domain.ForecastPoint),
		failKeys:  make(map[domain.SeriesKey]error),
	}
}

func (f *fakeRepo) addSales(account, skuCode string, start time.Time, dailyUnits ...float64) {
	for i, units := range dailyUnits {
		f.sales = append(f.sales, domain.SalesEvent{
			Account:    account,
			SKU:        skuCode,
			Date:       start.AddDate(0, 0, i),
			Units:      units,
			TotalUnits: units,
		})
	}
}

func (f *fakeRepo) ReadHistory(_ context.Context, skuCode, account string) ([]domain.DatedQuantity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	totals := make(map[time.Time]float64)
	for _, e := range f.sales {
		if e.SKU != skuCode || (account != "" && e.Account != account) {
			continue
		}
		// Demand is the raw units column, matching the SQL repository; the
		// multiplier clamp makes total_units zero for most tokens.
		totals[e.Date] += e.Units
	}

	rows := make([]domain.DatedQuantity, 0, len(totals))
	for date, qty := range totals {
		rows = append(rows, domain.DatedQuantity{Date: date, Quantity: qty})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func (f *fakeRepo) ReadForecast(_ context.Context, skuCode, account string) ([]domain.DatedQuantity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	totals := make(map[time.Time]float64)
	for key, rows := range f.forecasts {
		if key.SKU != skuCode || (account != "" && key.Account != account) {
			continue
		}
		for _, row := range rows {
			totals[row.Date] += row.PredictedUnits
		}
	}

	out := make([]domain.DatedQuantity, 0, len(totals))
	for date, qty := range totals {
		out = append(out, domain.DatedQuantity{Date: date, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeRepo) ReadStock(_ context.Context, skuCode string) (domain.StockLevel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var level domain.StockLevel
	found := false
	for _, s := range f.stock {
		if s.SKU != skuCode {
			continue
		}
		switch {
		case !found || s.Date.After(level.Date):
			level = domain.StockLevel{SKU: skuCode, Date: s.Date, StockUnits: s.StockUnits}
			found = true
		case s.Date.Equal(level.Date):
			level.StockUnits += s.StockUnits
		}
	}
	if !found {
		return domain.StockLevel{}, repository.ErrNoStockReading
	}
	return level, nil
}

func (f *fakeRepo) DeleteForecast(_ context.Context, skuCode, account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.forecasts, domain.SeriesKey{SKU: skuCode, Account: account})
	return nil
}

func (f *fakeRepo) WriteForecast(_ context.Context, rows []domain.ForecastPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		key := domain.SeriesKey{SKU: row.SKU, Account: row.Account}
		f.forecasts[key] = append(f.forecasts[key], row)
	}
	return nil
}

func (f *fakeRepo) ReplaceForecast(_ context.Context, skuCode, account string, rows []domain.ForecastPoint) error {
	key := domain.SeriesKey{SKU: skuCode, Account: account}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failKeys[key]; ok {
		return err
	}
	f.forecasts[key] = append([]domain.ForecastPoint(nil), rows...)
	return nil
}

func (f *fakeRepo) DistinctSalesKeys(_ context.Context) ([]domain.SeriesKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[domain.SeriesKey]struct{})
	var keys []domain.SeriesKey
	for _, e := range f.sales {
		key := domain.SeriesKey{SKU: e.SKU, Account: e.Account}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Account != keys[j].Account {
			return keys[i].Account < keys[j].Account
		}
		return keys[i].SKU < keys[j].SKU
	})
	return keys, nil
}

func (f *fakeRepo) InsertSalesEvents(_ context.Context, events []domain.SalesEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, events...)
	return nil
}

func (f *fakeRepo) ReplaceStock(_ context.Context, readings []domain.StockReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock = append([]domain.StockReading(nil), readings...)
	return nil
}

var _ repository.ForecastRepository = (*fakeRepo)(nil)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunAllForecastsEveryKey(t *testing.T) {
	repo := newFakeRepo()
	start := day(2025, 3, 1)
	repo.addSales("Braza", "ABC", start, 5, 5, 5, 5, 5, 5, 5)
	repo.addSales("Gab", "DEF", start, 2, 2, 2)

	runner := NewRunner(repo, WithWorkers(2))
	summary, err := runner.RunAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Results, 2)
	assert.Empty(t, summary.Failed())

	abc := repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Braza"}]
	require.Len(t, abc, 360)
	// Forecast starts the day after the last historical date.
	assert.True(t, day(2025, 3, 8).Equal(abc[0].Date))
	assert.True(t, day(2026, 3, 2).Equal(abc[359].Date))
	for _, row := range abc {
		assert.InDelta(t, 5.0, row.PredictedUnits, 1e-6)
	}

	// DEF only sold through Mar 3; the aligned window zero-fills it through
	// Mar 7, so its forecast starts from the shared anchor and stays
	// non-negative.
	def := repo.forecasts[domain.SeriesKey{SKU: "DEF", Account: "Gab"}]
	require.Len(t, def, 360)
	assert.True(t, day(2025, 3, 8).Equal(def[0].Date))
	for _, row := range def {
		assert.GreaterOrEqual(t, row.PredictedUnits, 0.0)
	}
}

func TestRunAllForecastsClampedMultiplierExtract(t *testing.T) {
	// "0-" tokens dominate the real extracts; their clamped multiplier zeroes
	// total_units, so the forecast must be driven by the raw units column.
	root := t.TempDir()
	dir := filepath.Join(root, "Braza")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var b strings.Builder
	b.WriteString("SKU;Data;Unidades\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "0-ABC123;2025-03-%02d;5\n", i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendas.csv"), []byte(b.String()), 0o644))

	loader := ingest.NewSalesLoader(root, []string{"Braza"})
	events, loadSummary := loader.Load(context.Background())
	require.Empty(t, loadSummary.Failed())
	require.Len(t, events, 7)
	assert.Equal(t, 0.0, events[0].TotalUnits)

	repo := newFakeRepo()
	require.NoError(t, repo.InsertSalesEvents(context.Background(), events))

	runner := NewRunner(repo)
	summary, err := runner.RunAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Failed())

	rows := repo.forecasts[domain.SeriesKey{SKU: "ABC123", Account: "Braza"}]
	require.Len(t, rows, 360)
	for i, row := range rows {
		assert.InDelta(t, 5.0, row.PredictedUnits, 1e-6, "day %d", i)
	}
}

func TestRunAllIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.addSales("Braza", "ABC", day(2025, 3, 1), 5, 5, 5, 5)

	runner := NewRunner(repo)
	_, err := runner.RunAll(context.Background())
	require.NoError(t, err)
	_, err = runner.RunAll(context.Background())
	require.NoError(t, err)

	// A rerun replaces the stored rows rather than appending.
	assert.Len(t, repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Braza"}], 360)
}

func TestRunAllIsolatesKeyFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.addSales("Braza", "ABC", day(2025, 3, 1), 5, 5, 5)
	repo.addSales("Gab", "DEF", day(2025, 3, 1), 2, 2, 2)
	repo.failKeys[domain.SeriesKey{SKU: "ABC", Account: "Braza"}] = errors.New("boom")

	runner := NewRunner(repo)
	summary, err := runner.RunAll(context.Background())
	require.NoError(t, err)

	failed := summary.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "ABC", failed[0].Key.SKU)

	// The healthy key still got its forecast.
	assert.Len(t, repo.forecasts[domain.SeriesKey{SKU: "DEF", Account: "Gab"}], 360)
	assert.Empty(t, repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Braza"}])
}

func TestForecastSKUSharesCurveAcrossAccounts(t *testing.T) {
	repo := newFakeRepo()
	// Same SKU in two accounts with different last sale dates.
	repo.addSales("Braza", "ABC", day(2025, 3, 1), 5, 5, 5, 5, 5)
	repo.addSales("Gab", "ABC", day(2025, 3, 1), 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)

	runner := NewRunner(repo)
	result, err := runner.ForecastSKU(context.Background(), "ABC", "")
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)
	assert.Len(t, result.Predicted, 360)

	braza := repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Braza"}]
	gab := repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Gab"}]
	require.Len(t, braza, 360)
	require.Len(t, gab, 360)

	// Each group anchors the shared magnitudes at its own last date.
	assert.True(t, day(2025, 3, 6).Equal(braza[0].Date))
	assert.True(t, day(2025, 3, 11).Equal(gab[0].Date))
	for i := range braza {
		assert.Equal(t, braza[i].PredictedUnits, gab[i].PredictedUnits, "day %d", i)
	}
}

func TestForecastSKUSingleAccount(t *testing.T) {
	repo := newFakeRepo()
	repo.addSales("Braza", "ABC", day(2025, 3, 1), 5, 5, 5)
	repo.addSales("Gab", "ABC", day(2025, 3, 1), 9, 9, 9)

	runner := NewRunner(repo)
	result, err := runner.ForecastSKU(context.Background(), "ABC", "Braza")
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)

	assert.Len(t, repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Braza"}], 360)
	assert.Empty(t, repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Gab"}])
}

func TestForecastSKUWithoutHistory(t *testing.T) {
	runner := NewRunner(newFakeRepo())
	_, err := runner.ForecastSKU(context.Background(), "NOPE", "")
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestProjectStock(t *testing.T) {
	repo := newFakeRepo()
	repo.stock = []domain.StockReading{
		{SKU: "ABC", StockUnits: 100, Date: day(2025, 6, 15)},
	}
	fcStart := day(2025, 6, 10)
	rows := make([]domain.ForecastPoint, 30)
	for i := range rows {
		rows[i] = domain.ForecastPoint{
			SKU: "ABC", Account: "Braza",
			Date:           fcStart.AddDate(0, 0, i),
			PredictedUnits: 10,
		}
	}
	repo.forecasts[domain.SeriesKey{SKU: "ABC", Account: "Braza"}] = rows

	runner := NewRunner(repo)
	points, err := runner.ProjectStock(context.Background(), "ABC")
	require.NoError(t, err)
	require.Len(t, points, 360)

	// Window starts the day after the earliest stored forecast date.
	assert.True(t, day(2025, 6, 11).Equal(points[0].Date))
	assert.Equal(t, 90.0, points[0].RemainingUnits)

	// 100 units at 10/day deplete on the tenth projected day.
	assert.Equal(t, 0.0, points[9].RemainingUnits)
	for _, p := range points[9:] {
		assert.GreaterOrEqual(t, p.RemainingUnits, 0.0)
	}
	// Past the stored forecast rows, demand reindexes to zero and the level
	// holds.
	assert.Equal(t, points[100].RemainingUnits, points[359].RemainingUnits)
}

func TestProjectStockWithoutStockReading(t *testing.T) {
	runner := NewRunner(newFakeRepo())
	_, err := runner.ProjectStock(context.Background(), "ABC")
	assert.ErrorIs(t, err, repository.ErrNoStockReading)
}

func TestProjectStockWithoutForecast(t *testing.T) {
	repo := newFakeRepo()
	repo.stock = []domain.StockReading{
		{SKU: "ABC", StockUnits: 100, Date: day(2025, 6, 15)},
	}

	runner := NewRunner(repo)
	points, err := runner.ProjectStock(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Nil(t, points)
}
