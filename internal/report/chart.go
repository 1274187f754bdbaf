package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"ProtectiveAllocator/internal/model"
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

var (
	positiveColor = color.RGBA{R: 46, G: 139, B: 87, A: 255}
	negativeColor = color.RGBA{R: 178, G: 34, B: 34, A: 255}
)

// MomentumChartName returns the momentum chart file name for a run date.
func MomentumChartName(date time.Time) string {
	return fmt.Sprintf("momentum_chart_%s.png", date.Format(model.DateLayout))
}

// TrendChartName is the file name of the historical allocation chart.
const TrendChartName = "paa_allocation_trend.png"

// MomentumChartTitle names the moving average window the scores were taken against.
func MomentumChartTitle(window int) string {
	return fmt.Sprintf("ETFs - Price vs. %d-Day Moving Average", window)
}

// RenderMomentumChart draws a horizontal bar per instrument, sorted ascending.
func RenderMomentumChart(scores []model.MomentumScore, window int, path string) error {
	if len(scores) == 0 {
		return errors.New("no momentum scores to plot")
	}
	sorted := make([]model.MomentumScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	names := make([]string, len(sorted))
	pos := make(plotter.Values, len(sorted))
	neg := make(plotter.Values, len(sorted))
	for i, s := range sorted {
		names[i] = s.Symbol
		if s.Value < 0 {
			neg[i] = s.Value
		} else {
			pos[i] = s.Value
		}
	}

	p := plot.New()
	p.Title.Text = MomentumChartTitle(window)
	p.X.Label.Text = "Relative Momentum"
	p.Add(plotter.NewGrid())

	for _, series := range []struct {
		values plotter.Values
		color  color.Color
	}{{pos, positiveColor}, {neg, negativeColor}} {
		bars, err := plotter.NewBarChart(series.values, vg.Points(12))
		if err != nil {
			return fmt.Errorf("momentum bars: %w", err)
		}
		bars.Horizontal = true
		bars.Color = series.color
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalY(names...)

	return save(p, path)
}

// RenderAllocationTrend draws the table as a stacked area chart over time.
func RenderAllocationTrend(t *AllocationTable, path string) error {
	if len(t.Dates) == 0 || len(t.Symbols) == 0 {
		return errors.New("no allocation history to plot")
	}

	xs := make([]float64, len(t.Dates))
	for i, d := range t.Dates {
		xs[i] = float64(d.Unix())
	}
	if len(xs) == 1 {
		// A single run date still gets a visible band.
		xs = []float64{xs[0] - 12*3600, xs[0] + 12*3600}
	}
	rowAt := func(i int) []float64 {
		if len(t.Amounts) == 1 {
			return t.Amounts[0]
		}
		return t.Amounts[i]
	}

	p := plot.New()
	p.Title.Text = "Monthly ETF Allocation (PAA Strategy)"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Amount ($)"
	p.X.Tick.Marker = plot.TimeTicks{Format: model.DateLayout}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	lower := make([]float64, len(xs))
	for j, sym := range t.Symbols {
		upper := make([]float64, len(xs))
		for i := range xs {
			upper[i] = lower[i] + rowAt(i)[j]
		}

		band := make(plotter.XYs, 0, 2*len(xs))
		for i := range xs {
			band = append(band, plotter.XY{X: xs[i], Y: upper[i]})
		}
		for i := len(xs) - 1; i >= 0; i-- {
			band = append(band, plotter.XY{X: xs[i], Y: lower[i]})
		}

		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return fmt.Errorf("area for %s: %w", sym, err)
		}
		poly.Color = plotutil.Color(j)
		poly.LineStyle.Width = 0
		p.Add(poly)
		p.Legend.Add(sym, poly)

		lower = upper
	}

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}
