package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// ErrCanvas is returned for a canvas too small to hold a chart.
var ErrCanvas = errors.New("canvas must be at least 200x200")

// Options size the rendered image.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions is an 800x600 canvas.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 600}
}

var palette = []color.Color{
	color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.NRGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.NRGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.NRGBA{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	color.NRGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff},
	color.NRGBA{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff},
	color.NRGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff},
}

var regular = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

func face(size float64) (font.Face, error) {
	f, err := regular()
	if err != nil {
		return nil, fmt.Errorf("failed to load chart font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}

// Render draws c as a PNG into w.
func Render(w io.Writer, c Chart, opts Options) error {
	if opts.Width < 200 || opts.Height < 200 {
		return ErrCanvas
	}
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(color.White)
	dc.Clear()

	title, err := face(16)
	if err != nil {
		return err
	}
	body, err := face(11)
	if err != nil {
		return err
	}

	dc.SetFontFace(title)
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(c.Title, float64(opts.Width)/2, 24, 0.5, 0.5)
	dc.SetFontFace(body)

	legend := 0.0
	if len(c.Series) > 0 || c.Kind == KindPie {
		legend = 170
	}
	f := frame{x0: 70, y0: 50, x1: float64(opts.Width) - 30 - legend, y1: float64(opts.Height) - 60}

	switch c.Kind {
	case KindBar:
		drawBars(dc, f, c)
	case KindPie:
		drawPie(dc, f, c)
	case KindRisk3D:
		drawRisk3D(dc, f, c)
	case KindScatter, KindBubble:
		drawMarkers(dc, f, c)
	case KindWeibull, KindRayleigh, KindBathtub:
		drawSeries(dc, f, c)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(c.Kind))
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// frame maps data coordinates onto the plot rectangle.
type frame struct {
	x0, y0, x1, y1         float64
	xmin, xmax, ymin, ymax float64
}

func (f frame) px(x float64) float64 {
	return f.x0 + (x-f.xmin)/(f.xmax-f.xmin)*(f.x1-f.x0)
}

func (f frame) py(y float64) float64 {
	return f.y1 - (y-f.ymin)/(f.ymax-f.ymin)*(f.y1-f.y0)
}

func label(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func drawAxes(dc *gg.Context, f frame, c Chart, xTicks bool) {
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawLine(f.x0, f.y1, f.x1, f.y1)
	dc.DrawLine(f.x0, f.y0, f.x0, f.y1)
	dc.Stroke()

	for i := 0; i <= 5; i++ {
		v := f.ymin + (f.ymax-f.ymin)*float64(i)/5
		y := f.py(v)
		dc.DrawLine(f.x0-4, y, f.x0, y)
		dc.Stroke()
		dc.DrawStringAnchored(label(v), f.x0-6, y, 1, 0.5)
		if xTicks {
			u := f.xmin + (f.xmax-f.xmin)*float64(i)/5
			x := f.px(u)
			dc.DrawLine(x, f.y1, x, f.y1+4)
			dc.Stroke()
			dc.DrawStringAnchored(label(u), x, f.y1+14, 0.5, 0.5)
		}
	}
	dc.DrawStringAnchored(c.XLabel, (f.x0+f.x1)/2, f.y1+40, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(-math.Pi/2, 18, (f.y0+f.y1)/2)
	dc.DrawStringAnchored(c.YLabel, 18, (f.y0+f.y1)/2, 0.5, 0.5)
	dc.Pop()
}

func drawBars(dc *gg.Context, f frame, c Chart) {
	f.xmin, f.xmax, f.ymin = 0, float64(len(c.Bars)), 0
	for _, b := range c.Bars {
		f.ymax = math.Max(f.ymax, b.Value)
	}
	f.ymax = math.Max(f.ymax*1.1, 1)
	drawAxes(dc, f, c, false)

	slot := (f.x1 - f.x0) / float64(len(c.Bars))
	for i, b := range c.Bars {
		x := f.px(float64(i)) + slot*0.15
		y := f.py(b.Value)
		dc.SetColor(b.Band.Color())
		dc.DrawRectangle(x, y, slot*0.7, f.y1-y)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(label(b.Value), x+slot*0.35, y-8, 0.5, 0.5)
		dc.DrawStringAnchored(truncate(b.Label, int(slot/7)+1), x+slot*0.35, f.y1+14, 0.5, 0.5)
	}
}

func drawPie(dc *gg.Context, f frame, c Chart) {
	total := 0.0
	for _, b := range c.Bars {
		total += b.Value
	}
	if total <= 0 {
		return
	}
	cx, cy := (f.x0+f.x1)/2, (f.y0+f.y1)/2
	r := math.Min(f.x1-f.x0, f.y1-f.y0) / 2

	angle := -math.Pi / 2
	for i, b := range c.Bars {
		sweep := 2 * math.Pi * b.Value / total
		col := palette[i%len(palette)]
		dc.SetColor(col)
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, r, angle, angle+sweep)
		dc.ClosePath()
		dc.Fill()
		angle += sweep

		ly := f.y0 + float64(i)*18
		dc.DrawRectangle(f.x1+40, ly, 10, 10)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawString(fmt.Sprintf("%s %.1f%%", truncate(b.Label, 16), 100*b.Value/total), f.x1+56, ly+10)
	}
}

func drawMarkers(dc *gg.Context, f frame, c Chart) {
	f.xmin, f.xmax, f.ymin, f.ymax = 0, 11, 0, 11
	drawAxes(dc, f, c, true)
	for _, m := range c.Markers {
		r := 5.0
		if c.Kind == KindBubble {
			r = 3 * m.Size
		}
		col := m.Band.Color().(color.NRGBA)
		col.A = 0xb0
		dc.SetColor(col)
		dc.DrawCircle(f.px(m.X), f.py(m.Y), r)
		dc.Fill()
	}
}

// drawRisk3D draws each marker as a cuboid in an isometric view of the
// 10x10x10 factor cube.
func drawRisk3D(dc *gg.Context, f frame, c Chart) {
	const extent = 10.0
	cos30, sin30 := math.Cos(math.Pi/6), math.Sin(math.Pi/6)
	s := math.Min((f.x1-f.x0)/(2*extent*cos30), (f.y1-f.y0)/(2*extent))
	cx, cy := (f.x0+f.x1)/2, f.y0+extent*s
	proj := func(x, y, z float64) (float64, float64) {
		return cx + (x-y)*cos30*s, cy + ((x+y)*sin30-z)*s
	}

	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	ox, oy := proj(0, 0, 0)
	for i, end := range [][3]float64{{extent, 0, 0}, {0, extent, 0}, {0, 0, extent}} {
		ex, ey := proj(end[0], end[1], end[2])
		dc.DrawLine(ox, oy, ex, ey)
		dc.Stroke()
		name := []string{c.XLabel, c.YLabel, c.ZLabel}[i]
		dc.DrawStringAnchored(name, ex, ey-8, 0.5, 0.5)
	}

	markers := append([]Marker(nil), c.Markers...)
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].X+markers[i].Y+markers[i].Z < markers[j].X+markers[j].Y+markers[j].Z
	})
	const h = 0.4
	for _, m := range markers {
		x, y, z := m.X, m.Y, m.Z
		faces := []struct {
			pts   [4][3]float64
			shade float64
		}{
			{[4][3]float64{{x - h, y - h, z + h}, {x + h, y - h, z + h}, {x + h, y + h, z + h}, {x - h, y + h, z + h}}, 1},
			{[4][3]float64{{x + h, y - h, z - h}, {x + h, y + h, z - h}, {x + h, y + h, z + h}, {x + h, y - h, z + h}}, 0.8},
			{[4][3]float64{{x - h, y + h, z - h}, {x + h, y + h, z - h}, {x + h, y + h, z + h}, {x - h, y + h, z + h}}, 0.6},
		}
		base := m.Band.Color().(color.NRGBA)
		for _, fc := range faces {
			for i, p := range fc.pts {
				px, py := proj(p[0], p[1], p[2])
				if i == 0 {
					dc.MoveTo(px, py)
				} else {
					dc.LineTo(px, py)
				}
			}
			dc.ClosePath()
			dc.SetColor(color.NRGBA{
				R: uint8(float64(base.R) * fc.shade),
				G: uint8(float64(base.G) * fc.shade),
				B: uint8(float64(base.B) * fc.shade),
				A: 0xff,
			})
			dc.FillPreserve()
			dc.SetColor(color.Black)
			dc.SetLineWidth(0.5)
			dc.Stroke()
		}
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func drawSeries(dc *gg.Context, f frame, c Chart) {
	f.xmin, f.xmax, f.ymin, f.ymax = math.Inf(1), math.Inf(-1), 0, 0
	for _, s := range c.Series {
		for _, p := range s.Points {
			f.xmin = math.Min(f.xmin, p.X)
			f.xmax = math.Max(f.xmax, p.X)
		}
		f.ymax = math.Max(f.ymax, s.Max())
	}
	if !finite(f.xmin) || f.xmax <= f.xmin {
		f.xmin, f.xmax = 0, 1
	}
	f.xmin = math.Min(f.xmin, 0)
	f.ymax = math.Max(f.ymax*1.05, 1e-9)
	drawAxes(dc, f, c, true)

	dc.Push()
	dc.DrawRectangle(f.x0, f.y0, f.x1-f.x0, f.y1-f.y0)
	dc.Clip()
	dc.SetLineWidth(2)
	for i, s := range c.Series {
		dc.SetColor(palette[i%len(palette)])
		started := false
		for _, p := range s.Points {
			if !finite(p.Y) {
				started = false
				continue
			}
			if started {
				dc.LineTo(f.px(p.X), f.py(p.Y))
			} else {
				dc.MoveTo(f.px(p.X), f.py(p.Y))
				started = true
			}
		}
		dc.Stroke()
	}
	dc.Pop()

	for i, s := range c.Series {
		ly := f.y0 + float64(i)*18
		dc.SetColor(palette[i%len(palette)])
		dc.DrawRectangle(f.x1+20, ly, 10, 10)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawString(truncate(s.Name, 22), f.x1+36, ly+10)
	}
}
