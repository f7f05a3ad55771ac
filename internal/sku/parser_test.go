package sku

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Token
	}{
		{
			name: "zero multiplier",
			raw:  "0-ABC123",
			want: Token{Multiplier: intPtr(0), Canonical: "ABC123"},
		},
		{
			name: "unit multiplier",
			raw:  "1-ABC123",
			want: Token{Multiplier: intPtr(1), Canonical: "ABC123"},
		},
		{
			name: "implausible multiplier clamped to zero",
			raw:  "3-ABC123",
			want: Token{Multiplier: intPtr(0), Canonical: "ABC123"},
		},
		{
			name: "non numeric head clamped to zero",
			raw:  "X-ABC123",
			want: Token{Multiplier: intPtr(0), Canonical: "ABC123"},
		},
		{
			name: "no multiplier part",
			raw:  "ABC123",
			want: Token{Canonical: "ABC123"},
		},
		{
			name: "more than one hyphen keeps the raw token",
			raw:  "1-ABC-123",
			want: Token{Canonical: "1-ABC-123"},
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "  0-ABC123  ",
			want: Token{Multiplier: intPtr(0), Canonical: "ABC123"},
		},
		{
			name: "empty value",
			raw:  "",
			want: Token{},
		},
		{
			name: "whitespace only",
			raw:  "   ",
			want: Token{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if tt.want.Multiplier == nil {
				assert.Nil(t, got.Multiplier)
			} else {
				require.NotNil(t, got.Multiplier)
				assert.Equal(t, *tt.want.Multiplier, *got.Multiplier)
			}
			assert.Equal(t, tt.want.Canonical, got.Canonical)
		})
	}
}

func TestParseIdempotent(t *testing.T) {
	// Re-parsing an already-canonical code must not change it.
	for _, raw := range []string{"ABC123", "0-ABC123", "3-ABC123"} {
		once := Parse(raw)
		twice := Parse(once.Canonical)
		assert.Equal(t, once.Canonical, twice.Canonical, "raw %q", raw)
	}
}

func TestTokenTotalUnits(t *testing.T) {
	assert.Equal(t, 5.0, Token{Canonical: "ABC"}.TotalUnits(5), "missing multiplier is a single item")
	assert.Equal(t, 0.0, Token{Multiplier: intPtr(0), Canonical: "ABC"}.TotalUnits(5))
	assert.Equal(t, 5.0, Token{Multiplier: intPtr(1), Canonical: "ABC"}.TotalUnits(5))
}

func TestSplitCell(t *testing.T) {
	assert.Equal(t, []string{"0-ABC", "1-DEF"}, SplitCell("  0-ABC   1-DEF "))
	assert.Equal(t, []string{"ABC"}, SplitCell("ABC"))
	assert.Empty(t, SplitCell("   "))
}
