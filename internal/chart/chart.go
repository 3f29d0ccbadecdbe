// Package chart renders exposure versus composite scatter plots with gonum/plot.
package chart

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/huangsam/envgap/core/algo"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	// ErrNoPoints is returned when no entity has both a composite and an exposure value.
	ErrNoPoints = eris.New("chart: no complete exposure/composite pairs to plot")

	// ErrUnsupportedFormat is returned for file extensions gonum/plot cannot render.
	ErrUnsupportedFormat = eris.New("chart: unsupported image format")
)

var (
	aboveColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	belowColor = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	lineColor  = color.RGBA{A: 255}
)

var supportedExtensions = map[string]struct{}{
	".png": {},
	".svg": {},
	".pdf": {},
}

// Points splits complete exposure/composite pairs into entities at or above
// the fitted line and entities below it.
func Points(records []schema.EntityRecord, fit schema.RegressionResult) (above, below plotter.XYs) {
	for _, r := range records {
		x, y := r.Derived.Exposure, r.Derived.Composite
		if !schema.IsValid(x) || !schema.IsValid(y) {
			continue
		}
		pt := plotter.XY{X: *x, Y: *y}
		if *y >= algo.Predict(fit, *x) {
			above = append(above, pt)
		} else {
			below = append(below, pt)
		}
	}
	return above, below
}

// WriteScatter plots normalized exposure on x against the composite on y,
// with the fitted regression line, and saves it to path. The image format
// follows the file extension.
func WriteScatter(path string, records []schema.EntityRecord, fit schema.RegressionResult) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedExtensions[ext]; !ok {
		return eris.Wrapf(ErrUnsupportedFormat, "extension %q", ext)
	}

	above, below := Points(records, fit)
	if len(above)+len(below) == 0 {
		return ErrNoPoints
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Composite vs exposure (R² %.3f, n=%d)", fit.RSquared, fit.N)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Exposure (normalized)"
	p.Y.Label.Text = "Composite index"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	groups := []struct {
		name  string
		xys   plotter.XYs
		color color.Color
	}{
		{name: "above expected", xys: above, color: aboveColor},
		{name: "below expected", xys: below, color: belowColor},
	}
	for _, g := range groups {
		if len(g.xys) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(g.xys)
		if err != nil {
			return eris.Wrapf(err, "chart: build %s scatter", g.name)
		}
		scatter.GlyphStyle.Color = g.color
		scatter.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(scatter)
		p.Legend.Add(g.name, scatter)
	}

	line := plotter.NewFunction(func(x float64) float64 { return algo.Predict(fit, x) })
	line.Color = lineColor
	line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(line)
	p.Legend.Add("fit", line)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return eris.Wrapf(err, "chart: save %s", path)
	}
	return nil
}
