// internal/ingest/sales.go
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brazaops/stockcast/internal/domain"
	"github.com/brazaops/stockcast/internal/sku"
)

// SalesLoader reads the per-account sales extract directories
// (<root>/<account>/*.csv) into normalized SalesEvent rows.
type SalesLoader struct {
	Root     string
	Accounts []string
}

func NewSalesLoader(root string, accounts []string) *SalesLoader {
	return &SalesLoader{Root: root, Accounts: accounts}
}

// Load walks every account directory and parses every CSV extract found.
// Per-file failures are recorded in the summary and skipped.
func (l *SalesLoader) Load(ctx context.Context) ([]domain.SalesEvent, Summary) {
	var (
		events  []domain.SalesEvent
		summary Summary
	)

	for _, account := range l.Accounts {
		account = strings.Join(strings.Fields(account), "")
		dir := filepath.Join(l.Root, account)

		files, err := listCSVFiles(dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("ingest: sales directory unreadable")
			summary.add(FileResult{Path: dir, Account: account, Err: err})
			continue
		}

		for _, path := range files {
			if ctx.Err() != nil {
				return events, summary
			}
			result := l.loadFile(path, account, &events)
			summary.add(result)
			if result.Err != nil {
				log.Warn().Err(result.Err).Str("file", path).Msg("ingest: sales file failed")
			} else {
				log.Info().Str("file", path).Int("rows", result.Rows).Msg("ingest: sales file loaded")
			}
		}
	}

	return events, summary
}

func (l *SalesLoader) loadFile(path, account string, events *[]domain.SalesEvent) FileResult {
	result := FileResult{Path: path, Account: account}

	reader, file, err := openCSV(path)
	if err != nil {
		result.Err = fmt.Errorf("failed to open sales extract: %w", err)
		return result
	}
	defer file.Close()

	header, err := reader.Read()
	if err != nil {
		result.Err = fmt.Errorf("failed to read header: %w", err)
		return result
	}

	idx := newHeaderIndex(header)
	skuIdx := idx.col("sku", "código", "codigo", "nº de referência do sku principal", "número de referência sku")
	dateIdx := idx.col("data da venda", "data de criação do pedido", "data", "date")
	unitsIdx := idx.col("unidades", "quantidade", "units", "qty")

	if skuIdx < 0 || dateIdx < 0 || unitsIdx < 0 {
		result.Err = fmt.Errorf("extract %s is missing a sku, date or units column", filepath.Base(path))
		return result
	}

	// Rows in these extracts sometimes omit the date on continuation lines.
	// Fill forward from the previous dated row, then backward so rows before
	// the first dated row take the next date seen.
	type pendingRow struct {
		record []string
		date   time.Time
	}

	var rows []pendingRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Err = fmt.Errorf("failed reading record: %w", err)
			return result
		}

		var date time.Time
		if raw := fieldAt(record, dateIdx); raw != "" {
			if parsed, perr := ParseDate(raw); perr == nil {
				date = parsed
			}
		}
		rows = append(rows, pendingRow{record: record, date: date})
	}

	var lastDate time.Time
	for i := range rows {
		if rows[i].date.IsZero() {
			rows[i].date = lastDate
		} else {
			lastDate = rows[i].date
		}
	}
	var nextDate time.Time
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].date.IsZero() {
			rows[i].date = nextDate
		} else {
			nextDate = rows[i].date
		}
	}

	for _, row := range rows {
		if row.date.IsZero() {
			result.Skipped++
			continue
		}

		units := parseQuantity(fieldAt(row.record, unitsIdx))
		cell := fieldAt(row.record, skuIdx)
		if cell == "" {
			result.Skipped++
			continue
		}

		// A single cell can carry several SKU tokens; each becomes its own
		// event with the shared units figure.
		for _, rawToken := range sku.SplitCell(cell) {
			token := sku.Parse(rawToken)
			if token.Canonical == "" {
				result.Skipped++
				continue
			}

			// Tokens without a multiplier part count as plain single items.
			multiplier := 1
			if token.Multiplier != nil {
				multiplier = *token.Multiplier
			}

			*events = append(*events, domain.SalesEvent{
				Account:        account,
				SKU:            token.Canonical,
				Date:           row.date,
				Units:          units,
				ItemMultiplier: multiplier,
				TotalUnits:     token.TotalUnits(units),
			})
			result.Rows++
		}
	}

	return result
}

func listCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		// "full" exports are cumulative duplicates of the periodic extracts.
		if strings.Contains(name, "full") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".csv") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}
