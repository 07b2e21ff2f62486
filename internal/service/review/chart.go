package review

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-review/internal/chess/eval"
)

//go:embed assets/badges/*.svg
var badgeFiles embed.FS

// ChartOptions sizes the evaluation chart. Zero values pick defaults.
type ChartOptions struct {
	Width     int
	Height    int
	BadgeSize int
}

const (
	defaultChartWidth  = 720
	defaultChartHeight = 240
	defaultBadgeSize   = 16
	chartPadding       = 24

	MaxChartWidth  = 2048
	MaxChartHeight = 1024
)

// ErrChartSize is returned for chart dimensions outside the drawable range.
var ErrChartSize = errors.New("chart: size out of range")

// size applies defaults and checks the result against the allowed range.
func (o ChartOptions) size() (w, h, badge int, err error) {
	w, h, badge = o.Width, o.Height, o.BadgeSize
	if w == 0 {
		w = defaultChartWidth
	}
	if h == 0 {
		h = defaultChartHeight
	}
	if badge == 0 {
		badge = defaultBadgeSize
	}
	switch {
	case w <= 2*chartPadding || h <= 2*chartPadding:
		return 0, 0, 0, fmt.Errorf("%w: %dx%d is too small", ErrChartSize, w, h)
	case w > MaxChartWidth || h > MaxChartHeight:
		return 0, 0, 0, fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrChartSize, w, h, MaxChartWidth, MaxChartHeight)
	case badge < 0 || badge > min(w, h)/2:
		return 0, 0, 0, fmt.Errorf("%w: badge size %d", ErrChartSize, badge)
	}
	return w, h, badge, nil
}

// Validate reports whether o describes a chart RenderChart will draw.
func (o ChartOptions) Validate() error {
	_, _, _, err := o.size()
	return err
}

var (
	chartBackground = color.RGBA{R: 0x30, G: 0x2e, B: 0x2b, A: 0xff}
	chartWhiteArea  = color.RGBA{R: 0xf0, G: 0xee, B: 0xe8, A: 0xff}
	chartMidline    = color.RGBA{R: 0x8c, G: 0x8a, B: 0x85, A: 0xff}
	chartCurve      = color.RGBA{R: 0x81, G: 0xb6, B: 0x4c, A: 0xff}
	chartText       = color.RGBA{R: 0xd0, G: 0xce, B: 0xc9, A: 0xff}
)

type badgeKey struct {
	label Label
	size  int
}

var (
	badgeCache   = map[badgeKey]image.Image{}
	badgeCacheMu sync.RWMutex
)

// RenderChart draws the White-relative evaluation after every ply as a PNG.
// Brilliant moves, mistakes and blunders get a badge on the curve.
func RenderChart(r *GameReview, opts ChartOptions) ([]byte, error) {
	if r == nil || len(r.Moves) == 0 {
		return nil, fmt.Errorf("chart: review has no moves")
	}
	w, h, bs, err := opts.size()
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(chartBackground), image.Point{}, imagedraw.Src)

	plot := image.Rect(chartPadding, chartPadding, w-chartPadding, h-chartPadding)
	points := curvePoints(r.Trace(), plot)

	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())

	filler := rasterx.NewFiller(w, h, scanner)
	filler.SetColor(chartWhiteArea)
	filler.Start(rasterx.ToFixedP(float64(plot.Min.X), float64(plot.Max.Y)))
	for _, p := range points {
		filler.Line(rasterx.ToFixedP(p.X, p.Y))
	}
	filler.Line(rasterx.ToFixedP(float64(plot.Max.X), float64(plot.Max.Y)))
	filler.Stop(true)
	filler.Draw()

	mid := float64(plot.Min.Y+plot.Max.Y) / 2
	dasher := rasterx.NewDasher(w, h, scanner)
	dasher.SetStroke(fixed.I(1), fixed.I(4), rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Miter, []float64{6, 4}, 0)
	dasher.SetColor(chartMidline)
	dasher.Start(rasterx.ToFixedP(float64(plot.Min.X), mid))
	dasher.Line(rasterx.ToFixedP(float64(plot.Max.X), mid))
	dasher.Stop(false)
	dasher.Draw()

	dasher.Clear()
	dasher.SetStroke(fixed.I(2), fixed.I(4), rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round, nil, 0)
	dasher.SetColor(chartCurve)
	dasher.Start(rasterx.ToFixedP(points[0].X, points[0].Y))
	for _, p := range points[1:] {
		dasher.Line(rasterx.ToFixedP(p.X, p.Y))
	}
	dasher.Stop(false)
	dasher.Draw()

	for i, m := range r.Moves {
		switch m.Class.Label {
		case Brilliant, Mistake, Blunder:
		default:
			continue
		}
		badge, err := renderBadge(m.Class.Label, bs)
		if err != nil {
			return nil, err
		}
		p := points[i+1]
		at := image.Pt(int(p.X)-bs/2, int(p.Y)-bs/2)
		imagedraw.Draw(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(bs, bs))}, badge, image.Point{}, imagedraw.Over)
	}

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(chartText)}
	drawer.Dot = fixed.P(4, plot.Min.Y+10)
	drawer.DrawString("+10")
	drawer.Dot = fixed.P(4, plot.Max.Y)
	drawer.DrawString("-10")
	title := fmt.Sprintf("%d plies  %s", len(r.Moves), r.Opening.String())
	drawer.Dot = fixed.P(plot.Min.X, chartPadding-8)
	drawer.DrawString(title)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart png: %w", err)
	}
	return buf.Bytes(), nil
}

type pointF struct {
	X, Y float64
}

// curvePoints maps the trace onto plot, capping scores at ±eval.MateClamp.
// The first point is the even start.
func curvePoints(trace []eval.Evaluation, plot image.Rectangle) []pointF {
	n := len(trace)
	step := float64(plot.Dx()) / float64(n)
	mid := float64(plot.Min.Y+plot.Max.Y) / 2
	half := float64(plot.Dy()) / 2

	out := make([]pointF, 0, n+1)
	out = append(out, pointF{X: float64(plot.Min.X), Y: mid})
	for i, e := range trace {
		cp := min(max(e.Clamped(), -eval.MateClamp), eval.MateClamp)
		frac := float64(cp) / eval.MateClamp
		out = append(out, pointF{
			X: float64(plot.Min.X) + step*float64(i+1),
			Y: mid - frac*half,
		})
	}
	return out
}

func renderBadge(label Label, size int) (image.Image, error) {
	key := badgeKey{label: label, size: size}

	badgeCacheMu.RLock()
	if img, ok := badgeCache[key]; ok {
		badgeCacheMu.RUnlock()
		return img, nil
	}
	badgeCacheMu.RUnlock()

	name := fmt.Sprintf("assets/badges/%s.svg", label.String())
	data, err := badgeFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read badge asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse badge svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	badgeCacheMu.Lock()
	badgeCache[key] = img
	badgeCacheMu.Unlock()
	return img, nil
}
