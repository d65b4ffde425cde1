// Package spline implements monotone cubic interpolation (Fritsch-Carlson).
package spline

import (
	"errors"
	"math"
	"sort"
)

// ErrKnots is returned for fewer than two knots or x values that are not strictly increasing.
var ErrKnots = errors.New("spline: need at least two knots with strictly increasing x")

// Monotone is a piecewise cubic Hermite interpolant. Between two knots it never
// leaves the interval spanned by their y values, so monotone data stays monotone.
type Monotone struct {
	x, y, m []float64
}

// New creates the interpolant through the knots (x[i], y[i]).
func New(x, y []float64) (*Monotone, error) {
	n := len(x)
	if n < 2 || len(y) != n {
		return nil, ErrKnots
	}

	for i := 1; i < n; i++ {
		if !(x[i] > x[i-1]) {
			return nil, ErrKnots
		}
	}

	delta := make([]float64, n-1)
	for k := range delta {
		delta[k] = (y[k+1] - y[k]) / (x[k+1] - x[k])
	}

	m := make([]float64, n)
	m[0] = delta[0]
	m[n-1] = delta[n-2]
	for k := 1; k < n-1; k++ {
		if delta[k-1]*delta[k] > 0 {
			m[k] = (delta[k-1] + delta[k]) / 2
		}
	}

	for k, d := range delta {
		if d == 0 {
			m[k] = 0
			m[k+1] = 0

			continue
		}

		a := m[k] / d
		b := m[k+1] / d
		if h := a*a + b*b; h > 9 {
			t := 3 / math.Sqrt(h)
			m[k] = t * a * d
			m[k+1] = t * b * d
		}
	}

	return &Monotone{
		x: append([]float64(nil), x...),
		y: append([]float64(nil), y...),
		m: m,
	}, nil
}

// At evaluates the interpolant. Values outside the knot range are clamped to the end knots.
func (s *Monotone) At(x float64) float64 {
	n := len(s.x)
	if x <= s.x[0] {
		return s.y[0]
	}
	if x >= s.x[n-1] {
		return s.y[n-1]
	}

	k := sort.SearchFloat64s(s.x, x)
	if s.x[k] == x {
		return s.y[k]
	}
	k--

	h := s.x[k+1] - s.x[k]
	t := (x - s.x[k]) / h
	t2 := t * t
	t3 := t2 * t

	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	v := h00*s.y[k] + h10*h*s.m[k] + h01*s.y[k+1] + h11*h*s.m[k+1]

	// Rounding can step a hair outside the segment.
	lo, hi := s.y[k], s.y[k+1]
	if lo > hi {
		lo, hi = hi, lo
	}

	return math.Max(lo, math.Min(hi, v))
}

// Len returns the number of knots.
func (s *Monotone) Len() int {
	return len(s.x)
}
