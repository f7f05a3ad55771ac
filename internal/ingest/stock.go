// internal/ingest/stock.go
package ingest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brazaops/stockcast/internal/domain"
	"github.com/brazaops/stockcast/internal/sku"
	"github.com/brazaops/stockcast/internal/timeseries"
)

// StockLoader reads the per-account stock extract directories into a single
// authoritative snapshot dated "now". Unlike sales, a stock ingestion run
// supersedes all previously stored readings.
type StockLoader struct {
	Root     string
	Accounts []string

	// Now stamps the snapshot date; overridable in tests.
	Now func() time.Time
}

func NewStockLoader(root string, accounts []string) *StockLoader {
	return &StockLoader{Root: root, Accounts: accounts, Now: time.Now}
}

// Load parses every stock extract and returns one reading per SKU token,
// summed later by the repository read path. Per-file failures are recorded
// and skipped.
func (l *StockLoader) Load(ctx context.Context) ([]domain.StockReading, Summary) {
	var (
		readings []domain.StockReading
		summary  Summary
	)

	snapshotDate := timeseries.Day(l.Now())

	for _, account := range l.Accounts {
		dir := filepath.Join(l.Root, account)

		files, err := listCSVFiles(dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("ingest: stock directory unreadable")
			summary.add(FileResult{Path: dir, Account: account, Err: err})
			continue
		}

		for _, path := range files {
			if ctx.Err() != nil {
				return readings, summary
			}
			result := l.loadFile(path, account, snapshotDate, &readings)
			summary.add(result)
			if result.Err != nil {
				log.Warn().Err(result.Err).Str("file", path).Msg("ingest: stock file failed")
			} else {
				log.Info().Str("file", path).Int("rows", result.Rows).Msg("ingest: stock file loaded")
			}
		}
	}

	return readings, summary
}

func (l *StockLoader) loadFile(path, account string, snapshotDate time.Time, readings *[]domain.StockReading) FileResult {
	result := FileResult{Path: path, Account: account}

	reader, file, err := openCSV(path)
	if err != nil {
		result.Err = fmt.Errorf("failed to open stock extract: %w", err)
		return result
	}
	defer file.Close()

	header, err := reader.Read()
	if err != nil {
		result.Err = fmt.Errorf("failed to read header: %w", err)
		return result
	}

	idx := newHeaderIndex(header)
	skuIdx := idx.col("código", "codigo", "sku")
	stockIdx := idx.col("estoque", "stock")

	if skuIdx < 0 || stockIdx < 0 {
		result.Err = fmt.Errorf("extract %s is missing a sku or stock column", filepath.Base(path))
		return result
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Err = fmt.Errorf("failed reading record: %w", err)
			return result
		}

		cell := fieldAt(record, skuIdx)
		if cell == "" {
			result.Skipped++
			continue
		}

		stockUnits := parseQuantity(fieldAt(record, stockIdx))

		for _, rawToken := range sku.SplitCell(cell) {
			token := sku.Parse(rawToken)
			if token.Canonical == "" {
				result.Skipped++
				continue
			}

			multiplier := 1
			if token.Multiplier != nil {
				multiplier = *token.Multiplier
			}

			*readings = append(*readings, domain.StockReading{
				SKU:            token.Canonical,
				ItemMultiplier: multiplier,
				StockUnits:     stockUnits,
				Date:           snapshotDate,
			})
			result.Rows++
		}
	}

	return result
}
