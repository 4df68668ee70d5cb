package plot

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Chart geometry.
const (
	Width  = 12 * vg.Inch
	Height = 8 * vg.Inch
	DPI    = 300
)

// Palette colors series in legend order, cycling past the fourth.
var Palette = []color.Color{
	hexColor("#1f77b4"),
	hexColor("#ff7f0e"),
	hexColor("#2ca02c"),
	hexColor("#d62728"),
}

var glyphs = []draw.GlyphDrawer{
	draw.CircleGlyph{},
	draw.BoxGlyph{},
	draw.PyramidGlyph{},
	draw.CrossGlyph{},
}

// WriteRatioTicks are the labelled positions of the x axis.
var WriteRatioTicks = []float64{0.1, 0.2, 0.5, 0.8, 0.9}

func hexColor(s string) color.RGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil {
		panic(fmt.Sprintf("bad color %q", s))
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// Title returns the chart title for batch.
func Title(batch string) string {
	return fmt.Sprintf("Search QPS Comparison Across Algorithms and Workloads (Batch Size: %s)", batch)
}

// Chart builds the line chart of groups. Every algorithm in algorithms gets a
// series in that order; algorithms without data are left out of the legend.
func Chart(groups []Group, batch string, algorithms []string) (*gplot.Plot, error) {
	p := gplot.New()
	p.Title.Text = Title(batch)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.TextStyle.Font.Weight = font.WeightBold
	p.X.Label.Text = "Write Ratio"
	p.X.Label.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "Search QPS"
	p.Y.Label.TextStyle.Font.Size = vg.Points(14)
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(12)

	ticks := make([]gplot.Tick, len(WriteRatioTicks))
	for i, v := range WriteRatioTicks {
		ticks[i] = gplot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)}
	}
	p.X.Tick.Marker = gplot.ConstantTicks(ticks)

	grid := plotter.NewGrid()
	grid.Vertical.Color = color.Gray{Y: 220}
	grid.Horizontal.Color = color.Gray{Y: 220}
	p.Add(grid)

	for i, algo := range algorithms {
		series := Series(groups, algo)
		if len(series) == 0 {
			continue
		}
		c := Palette[i%len(Palette)]

		xys := make(plotter.XYs, len(series))
		labels := make([]string, len(series))
		for j, g := range series {
			xys[j].X = g.WriteRatio
			xys[j].Y = g.SearchQPS
			labels[j] = fmt.Sprintf("%.0f", g.SearchQPS)
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", algo, err)
		}
		line.LineStyle.Color = c
		line.LineStyle.Width = vg.Points(2)
		points.GlyphStyle.Color = c
		points.GlyphStyle.Radius = vg.Points(4)
		points.GlyphStyle.Shape = glyphs[i%len(glyphs)]

		values, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return nil, fmt.Errorf("labels %s: %w", algo, err)
		}
		values.Offset = vg.Point{Y: vg.Points(10)}
		for j := range values.TextStyle {
			values.TextStyle[j].Color = c
			values.TextStyle[j].Font.Size = vg.Points(9)
			values.TextStyle[j].XAlign = draw.XCenter
		}

		p.Add(line, points, values)
		p.Legend.Add(strings.ToUpper(algo), line, points)
	}
	return p, nil
}

// Render draws the chart of groups and writes it to path as a PNG.
func Render(groups []Group, batch, path string, algorithms []string) error {
	p, err := Chart(groups, batch, algorithms)
	if err != nil {
		return err
	}
	c := vgimg.NewWith(vgimg.UseWH(Width, Height), vgimg.UseDPI(DPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
