// internal/service/forecast_service.go

// Package service composes ingestion, forecasting and persistence behind the
// operations the API and CLI expose. Cache failures degrade to repository
// reads and are logged, never surfaced.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brazaops/stockcast/internal/cache"
	"github.com/brazaops/stockcast/internal/domain"
	"github.com/brazaops/stockcast/internal/ingest"
	"github.com/brazaops/stockcast/internal/pipeline"
	"github.com/brazaops/stockcast/internal/repository"
	"github.com/brazaops/stockcast/internal/storage"
)

type ForecastService struct {
	repo     repository.ForecastRepository
	runner   *pipeline.Runner
	cache    cache.ForecastCache
	archiver storage.Archiver
}

func NewForecastService(
	repo repository.ForecastRepository,
	runner *pipeline.Runner,
	fc cache.ForecastCache,
	archiver storage.Archiver,
) *ForecastService {
	return &ForecastService{
		repo:     repo,
		runner:   runner,
		cache:    fc,
		archiver: archiver,
	}
}

// IngestSales loads every sales extract under the loader's root, appends the
// parsed events to the history, then archives the source files. Sales rows
// accumulate across runs; re-ingesting the same file duplicates its rows, so
// callers feed each periodic extract exactly once.
func (s *ForecastService) IngestSales(ctx context.Context, loader *ingest.SalesLoader) (ingest.Summary, error) {
	events, summary := loader.Load(ctx)
	if len(events) == 0 {
		log.Warn().Msg("service: sales ingestion produced no events")
		return summary, nil
	}

	if err := s.repo.InsertSalesEvents(ctx, events); err != nil {
		return summary, fmt.Errorf("failed to store sales events: %w", err)
	}

	s.archiveLoaded(ctx, "vendas", summary)
	s.flushCache(ctx)

	log.Info().Int("events", len(events)).Int("files", len(summary.Files)).
		Msg("service: sales ingestion completed")
	return summary, nil
}

// IngestStock loads the stock extracts and replaces the stored snapshot
// wholesale. Stock is authoritative per run, unlike the additive sales
// history.
func (s *ForecastService) IngestStock(ctx context.Context, loader *ingest.StockLoader) (ingest.Summary, error) {
	readings, summary := loader.Load(ctx)
	if len(readings) == 0 {
		log.Warn().Msg("service: stock ingestion produced no readings")
		return summary, nil
	}

	if err := s.repo.ReplaceStock(ctx, readings); err != nil {
		return summary, fmt.Errorf("failed to store stock snapshot: %w", err)
	}

	s.archiveLoaded(ctx, "estoque", summary)
	s.flushCache(ctx)

	log.Info().Int("readings", len(readings)).Int("files", len(summary.Files)).
		Msg("service: stock ingestion completed")
	return summary, nil
}

// RunForecasts refreshes every (sku, account) forecast and drops the whole
// cache afterwards.
func (s *ForecastService) RunForecasts(ctx context.Context) (pipeline.RunSummary, error) {
	summary, err := s.runner.RunAll(ctx)
	if err != nil {
		return summary, err
	}
	s.flushCache(ctx)
	return summary, nil
}

// ForecastSKU refreshes the forecast for one SKU filter and invalidates its
// cached payloads.
func (s *ForecastService) ForecastSKU(ctx context.Context, skuCode, account string) (*pipeline.SKUForecast, error) {
	result, err := s.runner.ForecastSKU(ctx, skuCode, account)
	if err != nil {
		return nil, err
	}
	if cerr := s.cache.InvalidateSKU(ctx, skuCode); cerr != nil {
		log.Warn().Err(cerr).Str("sku", skuCode).Msg("service: cache invalidation failed")
	}
	return result, nil
}

// GetForecast returns the stored forecast rows for a SKU, read through the
// cache.
func (s *ForecastService) GetForecast(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error) {
	if rows, err := s.cache.GetForecast(ctx, skuCode, account); err != nil {
		log.Warn().Err(err).Str("sku", skuCode).Msg("service: forecast cache read failed")
	} else if rows != nil {
		return rows, nil
	}

	rows, err := s.repo.ReadForecast(ctx, skuCode, account)
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast: %w", err)
	}

	if len(rows) > 0 {
		if cerr := s.cache.SetForecast(ctx, skuCode, account, rows); cerr != nil {
			log.Warn().Err(cerr).Str("sku", skuCode).Msg("service: forecast cache write failed")
		}
	}
	return rows, nil
}

// GetHistory returns the daily sales history for a SKU, optionally narrowed
// to one account.
func (s *ForecastService) GetHistory(ctx context.Context, skuCode, account string) ([]domain.DatedQuantity, error) {
	rows, err := s.repo.ReadHistory(ctx, skuCode, account)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return rows, nil
}

// GetProjection simulates stock depletion for a SKU, read through the cache.
func (s *ForecastService) GetProjection(ctx context.Context, skuCode string) ([]domain.ProjectionPoint, error) {
	if points, err := s.cache.GetProjection(ctx, skuCode); err != nil {
		log.Warn().Err(err).Str("sku", skuCode).Msg("service: projection cache read failed")
	} else if points != nil {
		return points, nil
	}

	points, err := s.runner.ProjectStock(ctx, skuCode)
	if err != nil {
		return nil, err
	}

	if len(points) > 0 {
		if cerr := s.cache.SetProjection(ctx, skuCode, points); cerr != nil {
			log.Warn().Err(cerr).Str("sku", skuCode).Msg("service: projection cache write failed")
		}
	}
	return points, nil
}

func (s *ForecastService) archiveLoaded(ctx context.Context, kind string, summary ingest.Summary) {
	for _, f := range summary.Files {
		if f.Err != nil || !strings.EqualFold(filepath.Ext(f.Path), ".csv") {
			continue
		}
		if err := s.archiver.ArchiveExtract(ctx, kind, f.Account, f.Path); err != nil {
			log.Warn().Err(err).Str("file", f.Path).Msg("service: extract archiving failed")
		}
	}
}

func (s *ForecastService) flushCache(ctx context.Context) {
	if err := s.cache.Flush(ctx); err != nil {
		log.Warn().Err(err).Msg("service: cache flush failed")
	}
}
