// Package stats fits reliability distributions to the three failure-rate
// bounds of a failure mode and samples the curves the statistics view plots.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSamples is the number of points in a sampled curve.
const DefaultSamples = 200

// BoundPercentiles are the cumulative probabilities the lower bound, best
// estimate and upper bound are read at.
var BoundPercentiles = [3]float64{0.05, 0.50, 0.95}

var (
	// ErrDegenerateBounds is returned when the bounds cannot pin down a fit.
	ErrDegenerateBounds = errors.New("bounds cannot be fitted")
	// ErrSamples is returned for a non-positive sample count or horizon.
	ErrSamples = errors.New("sample count and horizon must be positive")
)

// Point is one sample of a curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named sampled curve.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Max returns the largest Y in the series, ignoring non-finite samples.
func (s Series) Max() float64 {
	best := 0.0
	for _, p := range s.Points {
		if !math.IsInf(p.Y, 0) && !math.IsNaN(p.Y) && p.Y > best {
			best = p.Y
		}
	}
	return best
}

// sorted returns the bounds ascending; entered bounds are not trusted to be
// in order.
func sorted(bounds [3]float64) [3]float64 {
	out := bounds
	sort.Float64s(out[:])
	return out
}

// WeibullFit is a two-parameter Weibull distribution.
type WeibullFit struct {
	Shape float64 `json:"shape"`
	Scale float64 `json:"scale"`
}

// FitWeibull regresses ln(-ln(1-p)) on ln(x) over the three bounds. Every
// bound must be positive and at least two must differ.
func FitWeibull(bounds [3]float64) (WeibullFit, error) {
	b := sorted(bounds)
	if b[0] <= 0 || b[0] == b[2] {
		return WeibullFit{}, ErrDegenerateBounds
	}
	x := make([]float64, 3)
	y := make([]float64, 3)
	for i, v := range b {
		x[i] = math.Log(v)
		y[i] = math.Log(-math.Log(1 - BoundPercentiles[i]))
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if beta <= 0 || math.IsNaN(beta) {
		return WeibullFit{}, ErrDegenerateBounds
	}
	return WeibullFit{Shape: beta, Scale: math.Exp(-alpha / beta)}, nil
}

// Dist returns the fitted distribution.
func (w WeibullFit) Dist() distuv.Weibull {
	return distuv.Weibull{K: w.Shape, Lambda: w.Scale}
}

// PDF samples the density up to its 99th percentile.
func (w WeibullFit) PDF(samples int) (Series, error) {
	return sample("Weibull PDF", w.Dist(), samples)
}

// RayleighFit is a Rayleigh distribution with scale Sigma.
type RayleighFit struct {
	Sigma float64 `json:"sigma"`
}

// FitRayleigh solves x² = σ²·(-2 ln(1-p)) in the least-squares sense. Bounds
// must be non-negative and not all zero.
func FitRayleigh(bounds [3]float64) (RayleighFit, error) {
	b := sorted(bounds)
	if b[0] < 0 || b[2] == 0 {
		return RayleighFit{}, ErrDegenerateBounds
	}
	var num, den float64
	for i, v := range b {
		w := -2 * math.Log(1-BoundPercentiles[i])
		num += v * v * w
		den += w * w
	}
	return RayleighFit{Sigma: math.Sqrt(num / den)}, nil
}

// Dist returns the fit as the equivalent Weibull with shape 2.
func (r RayleighFit) Dist() distuv.Weibull {
	return distuv.Weibull{K: 2, Lambda: r.Sigma * math.Sqrt2}
}

// PDF samples the density up to its 99th percentile.
func (r RayleighFit) PDF(samples int) (Series, error) {
	return sample("Rayleigh PDF", r.Dist(), samples)
}

func sample(name string, d distuv.Weibull, samples int) (Series, error) {
	if samples < 2 {
		return Series{}, ErrSamples
	}
	hi := d.Quantile(0.99)
	xs := floats.Span(make([]float64, samples), hi/float64(samples), hi)
	s := Series{Name: name, Points: make([]Point, samples)}
	for i, x := range xs {
		s.Points[i] = Point{X: x, Y: d.Prob(x)}
	}
	return s, nil
}
