// internal/ingest/csv.go
package ingest

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
)

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// openCSV opens a reader over an extract, detecting whether the file uses
// comma or semicolon delimiters (the accounts export both).
func openCSV(path string) (*csv.Reader, *os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	br := bufio.NewReader(file)
	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		file.Close()
		return nil, nil, err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, nil, err
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		reader.Comma = ';'
	}
	return reader, file, nil
}

// headerIndex builds a column lookup that accepts any of the known aliases
// for a column, after header normalization.
type headerIndex struct {
	byName map[string]int
}

func newHeaderIndex(header []string) headerIndex {
	idx := headerIndex{byName: make(map[string]int, len(header))}
	for i, h := range header {
		name := normalizeColumnName(h)
		if _, ok := idx.byName[name]; !ok {
			idx.byName[name] = i
		}
	}
	return idx
}

func (h headerIndex) col(aliases ...string) int {
	for _, alias := range aliases {
		if i, ok := h.byName[normalizeColumnName(alias)]; ok {
			return i
		}
	}
	return -1
}

func fieldAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseQuantity parses a numeric cell tolerantly. Stock extracts use a comma
// decimal separator; sales extracts use plain integers. Unparseable cells
// count as zero, matching how the upstream reports treat blanks.
func parseQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	// Keep only the last dot as the decimal separator in case of thousands
	// grouping ("1.234,5" -> "1.234.5" -> "1234.5").
	if n := strings.Count(raw, "."); n > 1 {
		last := strings.LastIndex(raw, ".")
		raw = strings.ReplaceAll(raw[:last], ".", "") + raw[last:]
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}
