package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"climate-dashboard/internal/models"
)

// Default chart dimensions.
const (
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 4 * vg.Inch
)

var (
	lineColor = color.RGBA{R: 34, G: 139, B: 34, A: 255}
	fillColor = color.RGBA{R: 34, G: 139, B: 34, A: 60}
)

// ErrNoRows is returned when there is nothing to draw.
var ErrNoRows = errors.New("render: no rows to draw")

// TrendChart draws rows as a filled area line chart (year on X, value on Y)
// and writes it to w as PNG. rows must already be sorted by year.
func TrendChart(w io.Writer, title string, rows []models.Observation) error {
	if len(rows) == 0 {
		return ErrNoRows
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Value"
	p.X.Tick.Marker = yearTicker{}

	points := make(plotter.XYs, len(rows))
	minValue := math.Inf(1)
	for i, obs := range rows {
		points[i].X = float64(obs.Year)
		points[i].Y = obs.Value
		minValue = math.Min(minValue, obs.Value)
	}

	area, err := plotter.NewLine(points)
	if err != nil {
		return fmt.Errorf("build line: %w", err)
	}
	area.LineStyle.Color = lineColor
	area.LineStyle.Width = vg.Points(2)
	area.FillColor = fillColor

	markers, err := plotter.NewScatter(points)
	if err != nil {
		return fmt.Errorf("build markers: %w", err)
	}
	markers.GlyphStyle.Color = lineColor
	markers.GlyphStyle.Radius = vg.Points(2)

	p.Add(plotter.NewGrid(), area, markers)

	// The filled area is drawn down to zero, keep it in view.
	if minValue > 0 {
		p.Y.Min = 0
	}
	if len(rows) == 1 {
		p.X.Min = points[0].X - 1
		p.X.Max = points[0].X + 1
	}

	wt, err := p.WriterTo(ChartWidth, ChartHeight, "png")
	if err != nil {
		return fmt.Errorf("create png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// yearTicker labels only whole years.
type yearTicker struct{}

func (yearTicker) Ticks(min, max float64) []plot.Tick {
	lo := int(math.Ceil(min))
	hi := int(math.Floor(max))
	span := hi - lo
	step := 1
	for span/step > 10 {
		switch {
		case step < 5:
			step = 5
		case step < 10:
			step = 10
		default:
			step *= 2
		}
	}

	var ticks []plot.Tick
	for y := lo; y <= hi; y++ {
		if y%step == 0 {
			ticks = append(ticks, plot.Tick{Value: float64(y), Label: strconv.Itoa(y)})
		} else {
			ticks = append(ticks, plot.Tick{Value: float64(y)})
		}
	}
	return ticks
}
