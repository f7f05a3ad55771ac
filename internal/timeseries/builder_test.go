package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildFillsGapsAndSumsDays(t *testing.T) {
	key := Key{Account: "Braza", SKU: "ABC"}
	obs := []Observation{
		{Key: key, Date: day(2025, 3, 1), Value: 2},
		{Key: key, Date: day(2025, 3, 1), Value: 3},
		{Key: key, Date: day(2025, 3, 4), Value: 1},
	}

	series := Build(obs)[key]
	require.Len(t, series, 4)

	assert.Equal(t, []float64{5, 0, 0, 1}, series.Values())
	assert.Equal(t, day(2025, 3, 1), series[0].Date)
	assert.Equal(t, day(2025, 3, 4), series.Last().Date)

	// Consecutive dates exactly one day apart.
	for i := 1; i < len(series); i++ {
		assert.Equal(t, series[i-1].Date.AddDate(0, 0, 1), series[i].Date)
	}
}

func TestBuildTruncatesTimestampsToDay(t *testing.T) {
	key := Key{SKU: "ABC"}
	obs := []Observation{
		{Key: key, Date: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), Value: 1},
		{Key: key, Date: time.Date(2025, 3, 1, 23, 59, 59, 0, time.UTC), Value: 2},
	}

	series := Build(obs)[key]
	require.Len(t, series, 1)
	assert.Equal(t, 3.0, series[0].Value)
	assert.Equal(t, day(2025, 3, 1), series[0].Date)
}

func TestBuildAlignedSharesGlobalRange(t *testing.T) {
	early := Key{Account: "Braza", SKU: "ABC"}
	late := Key{Account: "Gab", SKU: "DEF"}
	obs := []Observation{
		{Key: early, Date: day(2025, 3, 1), Value: 1},
		{Key: late, Date: day(2025, 3, 5), Value: 7},
	}

	out := BuildAligned(obs)
	require.Len(t, out, 2)

	// Both series span the global [Mar 1, Mar 5] window.
	for _, key := range []Key{early, late} {
		require.Len(t, out[key], 5, "key %v", key)
		assert.Equal(t, day(2025, 3, 1), out[key][0].Date)
		assert.Equal(t, day(2025, 3, 5), out[key].Last().Date)
	}
	assert.Equal(t, []float64{1, 0, 0, 0, 0}, out[early].Values())
	assert.Equal(t, []float64{0, 0, 0, 0, 7}, out[late].Values())

	// Unaligned build keeps each key to its own observed range.
	assert.Len(t, Build(obs)[early], 1)
	assert.Len(t, Build(obs)[late], 1)
}

func TestBuildDeterministicAcrossInputOrder(t *testing.T) {
	key := Key{SKU: "ABC"}
	forward := []Observation{
		{Key: key, Date: day(2025, 3, 1), Value: 1},
		{Key: key, Date: day(2025, 3, 2), Value: 2},
		{Key: key, Date: day(2025, 3, 3), Value: 3},
	}
	reversed := []Observation{forward[2], forward[1], forward[0]}

	assert.Equal(t, Build(forward)[key], Build(reversed)[key])
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil))
}

func TestReindex(t *testing.T) {
	rows := []Point{
		{Date: day(2025, 3, 2), Value: 4},
		{Date: day(2025, 3, 2), Value: 1},
		{Date: day(2025, 3, 4), Value: 2},
		{Date: day(2025, 2, 1), Value: 9}, // outside the window, dropped
	}

	got := Reindex(rows, day(2025, 3, 1), 5)
	assert.Equal(t, []float64{0, 5, 0, 2, 0}, got)
}

func TestSortedKeys(t *testing.T) {
	m := map[Key]Series{
		{Account: "Gab", SKU: "B"}:   nil,
		{Account: "Braza", SKU: "Z"}: nil,
		{Account: "Braza", SKU: "A"}: nil,
	}

	assert.Equal(t, []Key{
		{Account: "Braza", SKU: "A"},
		{Account: "Braza", SKU: "Z"},
		{Account: "Gab", SKU: "B"},
	}, SortedKeys(m))
}
