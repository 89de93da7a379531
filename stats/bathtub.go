package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// BathtubParams shape the three hazard terms of a bathtub curve.
type BathtubParams struct {
	Samples int     `json:"samples"`
	Horizon float64 `json:"horizon"`
	// EarlyLife is the scale of the decreasing infant-mortality term.
	EarlyLife float64 `json:"early_life"`
	// WearOut is the scale of the increasing wear-out term.
	WearOut    float64 `json:"wear_out"`
	EarlyShape float64 `json:"early_shape"`
	WearShape  float64 `json:"wear_shape"`
	Constant   float64 `json:"constant"`
}

// DefaultBathtub returns N=1000 samples over T=20 with t1=1 and t2=10.
func DefaultBathtub() BathtubParams {
	return BathtubParams{
		Samples:    1000,
		Horizon:    20,
		EarlyLife:  1,
		WearOut:    10,
		EarlyShape: 0.5,
		WearShape:  5,
		Constant:   0.05,
	}
}

// Bathtub is a sampled hazard curve and its components.
type Bathtub struct {
	Params BathtubParams `json:"params"`
	Early  Series        `json:"early"`
	Random Series        `json:"random"`
	Wear   Series        `json:"wear"`
	Total  Series        `json:"total"`
}

// BathtubCurve samples h(t) = h_early(t) + c + h_wear(t) on (0, T].
func BathtubCurve(p BathtubParams) (Bathtub, error) {
	if p.Samples < 2 || p.Horizon <= 0 {
		return Bathtub{}, ErrSamples
	}
	if p.EarlyLife <= 0 || p.WearOut <= 0 || p.EarlyShape <= 0 || p.EarlyShape >= 1 || p.WearShape <= 1 || p.Constant < 0 {
		return Bathtub{}, ErrDegenerateBounds
	}
	early := distuv.Weibull{K: p.EarlyShape, Lambda: p.EarlyLife}
	wear := distuv.Weibull{K: p.WearShape, Lambda: p.WearOut}

	ts := floats.Span(make([]float64, p.Samples), p.Horizon/float64(p.Samples), p.Horizon)
	out := Bathtub{
		Params: p,
		Early:  Series{Name: "Early life", Points: make([]Point, len(ts))},
		Random: Series{Name: "Random", Points: make([]Point, len(ts))},
		Wear:   Series{Name: "Wear-out", Points: make([]Point, len(ts))},
		Total:  Series{Name: "Hazard", Points: make([]Point, len(ts))},
	}
	for i, t := range ts {
		he, hw := hazard(early, t), hazard(wear, t)
		out.Early.Points[i] = Point{X: t, Y: he}
		out.Random.Points[i] = Point{X: t, Y: p.Constant}
		out.Wear.Points[i] = Point{X: t, Y: hw}
		out.Total.Points[i] = Point{X: t, Y: he + p.Constant + hw}
	}
	return out, nil
}

// hazard is f(t)/S(t), computed in log space so the wear-out tail does not
// divide zero by zero.
func hazard(d distuv.Weibull, t float64) float64 {
	return math.Exp(d.LogProb(t) - d.LogSurvival(t))
}
