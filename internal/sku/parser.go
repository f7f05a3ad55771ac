// internal/sku/parser.go
package sku

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Token is the normalized form of one raw SKU token. The upstream encoding
// bundles an item multiplier with the product code ("0-ABC123"), but the
// scheme is applied inconsistently, so parsing is deliberately forgiving.
type Token struct {
	// Multiplier is nil when the token did not carry a multiplier part.
	Multiplier *int
	// Canonical is the product code with the multiplier stripped. Empty only
	// when the raw value itself was absent.
	Canonical string
}

// TotalUnits applies the token's multiplier to a unit count. A missing
// multiplier counts as a plain single item.
func (t Token) TotalUnits(units float64) float64 {
	if t.Multiplier == nil {
		return units
	}
	return units * float64(*t.Multiplier)
}

// Parse normalizes one raw SKU token. It never fails: malformed input
// degrades to a token with no multiplier and the trimmed original as the
// canonical code, and an absent value yields a zero Token.
//
// A token with exactly two hyphen-delimited parts yields both fields. The
// first part is accepted as a multiplier only when it parses as an integer
// <= 1; anything else (larger integers, garbage) is treated as encoding
// noise and forced to 0. Any other split shape carries no multiplier.
func Parse(raw string) Token {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Token{}
	}

	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return Token{Canonical: raw}
	}

	head := strings.TrimSpace(parts[0])
	canonical := strings.TrimSpace(parts[1])

	mult, err := strconv.Atoi(head)
	if err != nil || mult > 1 {
		if err == nil {
			// Multipliers above 1 have only ever appeared as a data-entry
			// artifact, never as real bundle sizes.
			log.Debug().Str("token", raw).Int("multiplier", mult).
				Msg("sku: clamping implausible multiplier to 0")
		}
		mult = 0
	}

	return Token{Multiplier: &mult, Canonical: canonical}
}

// SplitCell splits a raw spreadsheet cell into individual SKU tokens. Sales
// extracts pack several tokens into one cell separated by whitespace.
func SplitCell(cell string) []string {
	return strings.Fields(cell)
}
