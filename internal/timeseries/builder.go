// internal/timeseries/builder.go

// Package timeseries turns raw per-event observations into dense daily
// series: exactly one value per calendar day, no gaps, days without an
// observation filled with zero. Forecasting and the depletion projection
// both assume this shape.
package timeseries

import (
	"sort"
	"time"
)

// Key identifies one series. Account is empty for series keyed by SKU alone.
type Key struct {
	Account string
	SKU     string
}

// Observation is one raw input row before aggregation.
type Observation struct {
	Key   Key
	Date  time.Time
	Value float64
}

// Point is one day of a dense series.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a dense daily sequence ordered by date ascending, consecutive
// dates exactly one calendar day apart.
type Series []Point

// Values returns just the value column.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Last returns the final point of the series.
func (s Series) Last() Point {
	return s[len(s)-1]
}

// Day truncates a timestamp to its UTC calendar day. All aggregation keys on
// the result of this function so that extracts with time-of-day noise still
// land on the same day bucket.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Build aggregates observations into one dense series per key, each spanning
// that key's own observed [min, max] date range. Values sharing a (key, day)
// are summed; days with no observation get 0. The input order is irrelevant:
// the same multiset of observations always produces the same output.
func Build(obs []Observation) map[Key]Series {
	return build(obs, false)
}

// BuildAligned is Build with every series reindexed over the global
// [min, max] range across all keys, so that every series spans the same
// calendar window (zero-filled outside its own observed range). The sales
// pipeline needs this so forecasts and downstream joins share one calendar
// axis.
func BuildAligned(obs []Observation) map[Key]Series {
	return build(obs, true)
}

func build(obs []Observation, aligned bool) map[Key]Series {
	if len(obs) == 0 {
		return map[Key]Series{}
	}

	type dayTotals map[time.Time]float64
	totals := make(map[Key]dayTotals)

	var globalMin, globalMax time.Time
	for i, o := range obs {
		day := Day(o.Date)
		m, ok := totals[o.Key]
		if !ok {
			m = make(dayTotals)
			totals[o.Key] = m
		}
		m[day] += o.Value

		if i == 0 || day.Before(globalMin) {
			globalMin = day
		}
		if i == 0 || day.After(globalMax) {
			globalMax = day
		}
	}

	out := make(map[Key]Series, len(totals))
	for key, m := range totals {
		lo, hi := globalMin, globalMax
		if !aligned {
			lo, hi = dayRange(m)
		}
		out[key] = fill(m, lo, hi)
	}
	return out
}

func dayRange(m map[time.Time]float64) (time.Time, time.Time) {
	var lo, hi time.Time
	first := true
	for day := range m {
		if first || day.Before(lo) {
			lo = day
		}
		if first || day.After(hi) {
			hi = day
		}
		first = false
	}
	return lo, hi
}

func fill(m map[time.Time]float64, lo, hi time.Time) Series {
	n := int(hi.Sub(lo).Hours()/24) + 1
	series := make(Series, 0, n)
	for day := lo; !day.After(hi); day = day.AddDate(0, 0, 1) {
		series = append(series, Point{Date: day, Value: m[day]})
	}
	return series
}

// Reindex sums rows by day and projects them onto a fixed window of
// consecutive days starting at start, zero-filling days with no row. The
// depletion simulator uses this to align stored forecast rows onto its
// projection window.
func Reindex(rows []Point, start time.Time, days int) []float64 {
	totals := make(map[time.Time]float64, len(rows))
	for _, r := range rows {
		totals[Day(r.Date)] += r.Value
	}

	out := make([]float64, days)
	day := Day(start)
	for i := 0; i < days; i++ {
		out[i] = totals[day]
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// SortedKeys returns the series keys in a stable order, for deterministic
// iteration during batch runs and tests.
func SortedKeys(m map[Key]Series) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Account != keys[j].Account {
			return keys[i].Account < keys[j].Account
		}
		return keys[i].SKU < keys[j].SKU
	})
	return keys
}
