// internal/forecast/quadratic.go

// Package forecast fits a quadratic trend to a dense daily demand series and
// projects it forward, and simulates stock depletion against the projected
// demand.
package forecast

import "math"

// HorizonDays is the standard projection length for every forecast run.
const HorizonDays = 360

// Model holds the fitted coefficients of value ~ B0 + B1*t + B2*t^2, where
// t is the sequential day index of the history the model was fitted on.
type Model struct {
	B0, B1, B2 float64
}

// Fit computes an ordinary least-squares fit of a quadratic-in-time trend
// over the full history. No regularization, intercept always included.
//
// Degenerate histories never fail: when the normal equations are singular
// (fewer than 3 distinct day indices, for instance) the fit falls back to a
// linear trend and then to a constant at the mean, so every history yields
// usable coefficients.
func Fit(values []float64) Model {
	n := len(values)
	if n == 0 {
		return Model{}
	}

	// Normal equations for the design matrix [1, t, t^2].
	var s0, s1, s2, s3, s4 float64
	var sy, sty, st2y float64
	for t, y := range values {
		tf := float64(t)
		t2 := tf * tf
		s0++
		s1 += tf
		s2 += t2
		s3 += t2 * tf
		s4 += t2 * t2
		sy += y
		sty += tf * y
		st2y += t2 * y
	}

	a := [3][3]float64{
		{s0, s1, s2},
		{s1, s2, s3},
		{s2, s3, s4},
	}
	b := [3]float64{sy, sty, st2y}

	if coef, ok := solve3(a, b); ok {
		return Model{B0: coef[0], B1: coef[1], B2: coef[2]}
	}

	// Quadratic system singular: drop the t^2 column.
	a2 := [2][2]float64{{s0, s1}, {s1, s2}}
	b2 := [2]float64{sy, sty}
	if coef, ok := solve2(a2, b2); ok {
		return Model{B0: coef[0], B1: coef[1]}
	}

	// Single distinct day index: constant at the mean.
	return Model{B0: sy / s0}
}

// At evaluates the fitted trend at day index t.
func (m Model) At(t int) float64 {
	tf := float64(t)
	return m.B0 + m.B1*tf + m.B2*tf*tf
}

// Project evaluates the trend for n consecutive day indices starting at
// from, flooring every value at 0. Negative projections are a normal outcome
// of a downward quadratic and are clamped, never reported.
func (m Model) Project(from, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Max(0, m.At(from+i))
	}
	return out
}

const pivotEps = 1e-12

// solve3 solves a 3x3 linear system by Gaussian elimination with partial
// pivoting. Reports false when the matrix is singular.
func solve3(a [3][3]float64, b [3]float64) ([3]float64, bool) {
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < pivotEps {
			return [3]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < 3; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < 3; k++ {
				a[row][k] -= f * a[col][k]
			}
			b[row] -= f * b[col]
		}
	}

	var x [3]float64
	for row := 2; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < 3; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}

func solve2(a [2][2]float64, b [2]float64) ([2]float64, bool) {
	det := a[0][0]*a[1][1] - a[0][1]*a[1][0]
	if math.Abs(det) < pivotEps {
		return [2]float64{}, false
	}
	return [2]float64{
		(b[0]*a[1][1] - b[1]*a[0][1]) / det,
		(a[0][0]*b[1] - a[1][0]*b[0]) / det,
	}, true
}
