package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/motion.match/internal/motion/m3corpus"
)

// ErrNothingToPlot is returned when there is no data to draw.
var ErrNothingToPlot = errors.New("nothing to plot")

// PlotTrajectories writes a PNG (or any format plot.Save infers from the
// extension) with one line per chunk tracing the root over the ground
// plane, X across and Z up.
func PlotTrajectories(asset *m3corpus.Asset, path string) error {
	if asset.Empty() {
		return ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Corpus trajectories (%d chunks)", asset.NumChunks())
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Z"

	colors := generateColors(asset.NumChunks())
	for chunk, points := range asset.Trajectories().Chunks() {
		pts := make(plotter.XYs, 0, len(points))
		for _, tp := range points {
			pos := tp.Position()
			pts = append(pts, plotter.XY{X: pos.X, Y: pos.Y})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("chunk %d line: %w", chunk, err)
		}
		line.Color = colors[chunk]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(asset.ClipName(chunk), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := range colors {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	switch {
	case t < 0:
		t++
	case t > 1:
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
