// internal/ingest/dates.go
package ingest

import (
	"fmt"
	"strings"
	"time"
)

// The marketplaces export dates in Portuguese long form ("12 de março de
// 2025"); month names are mapped to English so the standard library layouts
// can take over.
var ptMonths = strings.NewReplacer(
	"janeiro", "January",
	"fevereiro", "February",
	"março", "March",
	"marco", "March",
	"abril", "April",
	"maio", "May",
	"junho", "June",
	"julho", "July",
	"agosto", "August",
	"setembro", "September",
	"outubro", "October",
	"novembro", "November",
	"dezembro", "December",
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02/01/2006 15:04",
	"2 de January de 2006",
	"2 January 2006",
	"January 2, 2006",
}

// ParseDate parses the date formats that show up across the account
// extracts, including Portuguese long-form month names.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}

	normalized := ptMonths.Replace(strings.ToLower(raw))
	// Lowercasing mangles English month names that were already correct, so
	// restore title case on the month token before matching layouts.
	normalized = titleCaseMonths(normalized)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date value %q", raw)
}

var enMonths = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

func titleCaseMonths(s string) string {
	for _, m := range enMonths {
		if strings.Contains(s, m) {
			s = strings.ReplaceAll(s, m, strings.ToUpper(m[:1])+m[1:])
		}
	}
	return s
}
