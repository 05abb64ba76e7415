package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/paveg/segmentation/internal/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ChartOptions sets chart labels and canvas size. Zero sizes use 10×6 inches.
type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
	// Fill colours bars; nil uses the first viridis colour.
	Fill color.Color
}

func (o ChartOptions) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 10 * vg.Inch
	}
	if h <= 0 {
		h = 6 * vg.Inch
	}
	return w, h
}

// ScatterClusters plots (x[i], y[i]) coloured by clusters[i], one legend
// entry per cluster, and saves the chart to path.
func ScatterClusters(path string, x, y []float64, clusters []int, opts ChartOptions) error {
	const op = "ScatterClusters"
	if len(x) == 0 {
		return errors.NewInvalidInputError(op, "no points to plot")
	}
	if len(x) != len(y) || len(x) != len(clusters) {
		return errors.NewValidationError(op, "",
			fmt.Sprintf("x, y and clusters lengths differ: %d, %d, %d", len(x), len(y), len(clusters)))
	}

	groups := make(map[int]plotter.XYs)
	for i, c := range clusters {
		groups[c] = append(groups[c], plotter.XY{X: x[i], Y: y[i]})
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	p := newPlot(opts)
	colors := Viridis(len(ids))
	for i, id := range ids {
		s, err := plotter.NewScatter(groups[id])
		if err != nil {
			return fmt.Errorf("creating scatter for cluster %d: %w", id, err)
		}
		s.GlyphStyle.Color = colors[i]
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("Cluster %d", id), s)
	}
	p.Legend.Top = true

	return save(p, path, opts)
}

// BarCounts draws one bar per label and saves the chart to path.
func BarCounts(path string, labels []string, counts []int, opts ChartOptions) error {
	const op = "BarCounts"
	if len(labels) == 0 {
		return errors.NewInvalidInputError(op, "no bars to plot")
	}
	if len(labels) != len(counts) {
		return errors.NewValidationError(op, "",
			fmt.Sprintf("%d labels but %d counts", len(labels), len(counts)))
	}

	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}

	p := newPlot(opts)
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("creating bar chart: %w", err)
	}
	bars.Color = Viridis(1)[0]
	if opts.Fill != nil {
		bars.Color = opts.Fill
	}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return save(p, path, opts)
}

func newPlot(opts ChartOptions) *plot.Plot {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.Add(plotter.NewGrid())
	return p
}

func save(p *plot.Plot, path string, opts ChartOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	w, h := opts.size()
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// viridis anchor colours, evenly spaced along the map. CIELAB lightness
// rises strictly from one anchor to the next.
var viridisAnchors = []color.Color{
	color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff},
	color.RGBA{R: 0x48, G: 0x28, B: 0x78, A: 0xff},
	color.RGBA{R: 0x3e, G: 0x4a, B: 0x89, A: 0xff},
	color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 0xff},
	color.RGBA{R: 0x26, G: 0x82, B: 0x8e, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x9e, B: 0x89, A: 0xff},
	color.RGBA{R: 0x35, G: 0xb7, B: 0x79, A: 0xff},
	color.RGBA{R: 0x6d, G: 0xcd, B: 0x59, A: 0xff},
	color.RGBA{R: 0xb4, G: 0xde, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff},
}

var viridisMap = mustViridisMap()

func mustViridisMap() palette.ColorMap {
	cm, err := moreland.NewLuminance(viridisAnchors)
	if err != nil {
		panic(err)
	}
	cm.SetMin(0)
	cm.SetMax(1)
	return cm
}

type swatch []color.Color

func (s swatch) Colors() []color.Color { return s }

// ViridisPalette samples n colours evenly from the viridis colour map,
// interpolated in CIELAB between the anchors. A single colour is the
// darkest end of the map.
func ViridisPalette(n int) palette.Palette {
	out := make(swatch, max(n, 0))
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		c, err := viridisMap.At(t)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}

// Viridis returns the colours of ViridisPalette(n).
func Viridis(n int) []color.Color {
	return ViridisPalette(n).Colors()
}
