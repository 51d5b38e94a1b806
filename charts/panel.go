package charts

import (
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"olx-price-index/models"
	"olx-price-index/utils"
)

var (
	colorRange  = color.RGBA{R: 0xe1, G: 0xf5, B: 0xfe, A: 0xff}
	colorMedian = color.RGBA{R: 0x19, G: 0x76, B: 0xd2, A: 0xff}
	colorMean   = color.RGBA{R: 0xff, G: 0x98, B: 0x00, A: 0xff}
	colorGrid   = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
)

// overviewPalette cycles across products on the overview chart.
var overviewPalette = []color.Color{
	color.RGBA{R: 0x19, G: 0x76, B: 0xd2, A: 0xff},
	color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff},
	color.RGBA{R: 0x38, G: 0x8e, B: 0x3c, A: 0xff},
	color.RGBA{R: 0xf5, G: 0x7c, B: 0x00, A: 0xff},
	color.RGBA{R: 0x7b, G: 0x1f, B: 0xa2, A: 0xff},
	color.RGBA{R: 0x00, G: 0x97, B: 0xa7, A: 0xff},
	color.RGBA{R: 0x5d, G: 0x40, B: 0x37, A: 0xff},
	color.RGBA{R: 0xc2, G: 0x18, B: 0x5b, A: 0xff},
	color.RGBA{R: 0x45, G: 0x5a, B: 0x64, A: 0xff},
	color.RGBA{R: 0xaf, G: 0xb4, B: 0x2b, A: 0xff},
}

// dateTicks labels unix-second X values as local calendar days.
var dateTicks = plot.TimeTicks{
	Format: "Jan 02",
	Time:   func(t float64) time.Time { return time.Unix(int64(t), 0) },
}

// priceTicks is the default tick placement with thousands separators.
type priceTicks struct{}

func (priceTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = utils.FormatThousands(int(ticks[i].Value))
		}
	}
	return ticks
}

func unix(t time.Time) float64 {
	return float64(t.Unix())
}

func newGrid() *plotter.Grid {
	g := plotter.NewGrid()
	g.Vertical.Color = colorGrid
	g.Horizontal.Color = colorGrid
	return g
}

// panel plots one timeframe of a product series: the min-max band, the
// median and the dashed mean. An empty series yields an empty frame spanning
// from..to.
func panel(title string, series []models.DailyStats, from, to time.Time, showPoints bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Price (RON)"
	p.X.Tick.Marker = dateTicks
	p.Y.Tick.Marker = priceTicks{}
	p.Add(newGrid())

	if len(series) == 0 {
		p.Title.Text = title + " (no data)"
		p.X.Min, p.X.Max = unix(from), unix(to)
		p.Y.Min, p.Y.Max = 0, 1
		return p, nil
	}

	band := make(plotter.XYs, 0, 2*len(series))
	medians := make(plotter.XYs, len(series))
	means := make(plotter.XYs, len(series))
	for i, s := range series {
		x := unix(s.Date)
		band = append(band, plotter.XY{X: x, Y: float64(s.MaxPrice)})
		medians[i] = plotter.XY{X: x, Y: s.MedianPrice}
		means[i] = plotter.XY{X: x, Y: s.MeanPrice}
	}
	for i := len(series) - 1; i >= 0; i-- {
		band = append(band, plotter.XY{X: unix(series[i].Date), Y: float64(series[i].MinPrice)})
	}

	rng, err := plotter.NewPolygon(band)
	if err != nil {
		return nil, fmt.Errorf("charts: range band: %w", err)
	}
	rng.Color = colorRange
	rng.LineStyle.Width = 0

	median, err := plotter.NewLine(medians)
	if err != nil {
		return nil, fmt.Errorf("charts: median line: %w", err)
	}
	median.LineStyle.Color = colorMedian
	median.LineStyle.Width = vg.Points(2)

	mean, err := plotter.NewLine(means)
	if err != nil {
		return nil, fmt.Errorf("charts: mean line: %w", err)
	}
	mean.LineStyle.Color = colorMean
	mean.LineStyle.Width = vg.Points(1.5)
	mean.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(rng, median, mean)
	if showPoints {
		pts, err := plotter.NewScatter(medians)
		if err != nil {
			return nil, fmt.Errorf("charts: median points: %w", err)
		}
		pts.GlyphStyle.Color = colorMedian
		pts.GlyphStyle.Shape = draw.CircleGlyph{}
		pts.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(pts)
	}

	p.Legend.Add("Median", median)
	p.Legend.Add("Mean", mean)
	p.Legend.Add("Min-Max range", rng)
	p.Legend.Top = true
	p.Legend.Left = true

	padRanges(p)
	return p, nil
}

// padRanges widens the degenerate axes of a single row or a flat price.
func padRanges(p *plot.Plot) {
	const halfDay = 12 * 60 * 60
	if p.X.Min == p.X.Max {
		p.X.Min, p.X.Max = p.X.Min-halfDay, p.X.Max+halfDay
	}
	if p.Y.Min == p.Y.Max {
		p.Y.Min, p.Y.Max = p.Y.Min-1, p.Y.Max+1
	}
}
