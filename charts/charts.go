// Package charts builds chart data from a component's working rows and
// renders it to PNG. Building never touches the session or the store.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"fmeca-service/metrics"
	"fmeca-service/models"
	"fmeca-service/stats"
)

var (
	ErrUnknownKind = errors.New("unknown chart kind")
	ErrNoData      = errors.New("no failure modes to chart")
	// ErrNoFit means no row of the component has bounds a distribution can
	// be fitted to.
	ErrNoFit = errors.New("no failure mode has usable bounds")
)

// Band is the green/yellow/red risk banding of the three-factor plots.
type Band int

const (
	BandGreen Band = iota
	BandYellow
	BandRed
)

func (b Band) String() string {
	switch b {
	case BandGreen:
		return "green"
	case BandYellow:
		return "yellow"
	default:
		return "red"
	}
}

func (b Band) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// Color is the fill used for the band.
func (b Band) Color() color.Color {
	switch b {
	case BandGreen:
		return color.NRGBA{R: 0x2e, G: 0x9e, B: 0x44, A: 0xff}
	case BandYellow:
		return color.NRGBA{R: 0xe8, G: 0xc2, B: 0x1c, A: 0xff}
	default:
		return color.NRGBA{R: 0xd6, G: 0x32, B: 0x2f, A: 0xff}
	}
}

// BandFor bands a point by the cube root of frequency×severity×detection:
// up to 4 is green, up to 7 yellow, beyond that red.
func BandFor(frequency, severity, detection int) Band {
	g := math.Cbrt(float64(models.ComputeRPN(frequency, severity, detection)))
	switch {
	case g <= 4:
		return BandGreen
	case g <= 7:
		return BandYellow
	default:
		return BandRed
	}
}

// Bar is one bar or pie slice.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Band  Band    `json:"band"`
}

// Marker is one point of the scatter, bubble and 3-D plots.
type Marker struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z,omitempty"`
	Size  float64 `json:"size"`
	Band  Band    `json:"band"`
}

// Chart is the data of one chart, independent of how it is drawn.
type Chart struct {
	Kind    Kind           `json:"kind"`
	Title   string         `json:"title"`
	XLabel  string         `json:"x_label,omitempty"`
	YLabel  string         `json:"y_label,omitempty"`
	ZLabel  string         `json:"z_label,omitempty"`
	Bars    []Bar          `json:"bars,omitempty"`
	Markers []Marker       `json:"markers,omitempty"`
	Series  []stats.Series `json:"series,omitempty"`
	Skipped []string       `json:"skipped,omitempty"`
}

// Build computes the chart of the given kind for one component's rows.
func Build(kind Kind, component string, rows []models.Row) (Chart, error) {
	if len(rows) == 0 && kind != KindBathtub {
		return Chart{}, ErrNoData
	}
	c := Chart{Kind: kind, Title: fmt.Sprintf("%s: %s", component, kind.Label())}

	switch kind {
	case KindBar:
		c.XLabel, c.YLabel = "Failure Mode", "RPN"
		c.Bars = bars(rows)
	case KindPie:
		c.Bars = bars(rows)
	case KindRisk3D:
		c.XLabel, c.YLabel, c.ZLabel = "Frequency", "Severity", "Detectability"
		for _, r := range rows {
			m := marker(r)
			m.Z = float64(r.Detection)
			m.Size = 1
			c.Markers = append(c.Markers, m)
		}
	case KindScatter:
		c.XLabel, c.YLabel = "Frequency", "Severity"
		for _, r := range rows {
			m := marker(r)
			m.Size = 1
			c.Markers = append(c.Markers, m)
		}
	case KindBubble:
		c.XLabel, c.YLabel = "Frequency", "Severity"
		for _, r := range rows {
			m := marker(r)
			m.Size = float64(r.Detection)
			c.Markers = append(c.Markers, m)
		}
	case KindWeibull:
		c.XLabel, c.YLabel = "Failure Rate", "Probability Density"
		if err := fitSeries(&c, rows, weibullPDF); err != nil {
			return Chart{}, err
		}
	case KindRayleigh:
		c.XLabel, c.YLabel = "Failure Rate", "Probability Density"
		if err := fitSeries(&c, rows, rayleighPDF); err != nil {
			return Chart{}, err
		}
	case KindBathtub:
		c.XLabel, c.YLabel = "Time", "Hazard Rate"
		b, err := stats.BathtubCurve(stats.DefaultBathtub())
		if err != nil {
			return Chart{}, err
		}
		c.Series = []stats.Series{b.Early, b.Random, b.Wear, b.Total}
	default:
		return Chart{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}

	metrics.ChartsTotal.WithLabelValues(kind.String()).Inc()
	return c, nil
}

func bars(rows []models.Row) []Bar {
	out := make([]Bar, len(rows))
	for i, r := range rows {
		out[i] = Bar{
			Label: r.Description,
			Value: float64(r.RPN),
			Band:  BandFor(r.Frequency, r.Severity, r.Detection),
		}
	}
	return out
}

func marker(r models.Row) Marker {
	return Marker{
		Label: r.Description,
		X:     float64(r.Frequency),
		Y:     float64(r.Severity),
		Band:  BandFor(r.Frequency, r.Severity, r.Detection),
	}
}

func weibullPDF(bounds [3]float64) (stats.Series, error) {
	fit, err := stats.FitWeibull(bounds)
	if err != nil {
		return stats.Series{}, err
	}
	return fit.PDF(stats.DefaultSamples)
}

func rayleighPDF(bounds [3]float64) (stats.Series, error) {
	fit, err := stats.FitRayleigh(bounds)
	if err != nil {
		return stats.Series{}, err
	}
	return fit.PDF(stats.DefaultSamples)
}

// fitSeries adds one density per row; rows whose bounds cannot be fitted
// are listed in Skipped.
func fitSeries(c *Chart, rows []models.Row, pdf func([3]float64) (stats.Series, error)) error {
	for _, r := range rows {
		s, err := pdf(r.Bounds())
		if errors.Is(err, stats.ErrDegenerateBounds) {
			c.Skipped = append(c.Skipped, r.Description)
			continue
		}
		if err != nil {
			return err
		}
		s.Name = r.Description
		c.Series = append(c.Series, s)
	}
	if len(c.Series) == 0 {
		return fmt.Errorf("%w: %w", ErrNoFit, stats.ErrDegenerateBounds)
	}
	return nil
}
