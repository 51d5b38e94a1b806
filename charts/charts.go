// Package charts renders per-product dashboards and a cross-product overview
// from the persisted daily stats.
package charts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"olx-price-index/models"
	"olx-price-index/utils"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("charts: no data")

const (
	FormatSVG = "svg"
	FormatPNG = "png"

	dashboardWidth  = 12 * vg.Inch
	dashboardHeight = 10 * vg.Inch
	overviewWidth   = 12 * vg.Inch
	overviewHeight  = 6 * vg.Inch
)

// Renderer writes chart files into a directory.
type Renderer struct {
	dir    string
	format string
	logger *utils.Logger
	now    func() time.Time
}

// NewRenderer creates a Renderer. Any format other than png means svg.
func NewRenderer(dir, format string, logger *utils.Logger) *Renderer {
	if format != FormatPNG {
		format = FormatSVG
	}
	if logger == nil {
		logger = utils.Nop()
	}
	return &Renderer{dir: dir, format: format, logger: logger, now: time.Now}
}

// Format is the image extension the renderer writes.
func (r *Renderer) Format() string {
	return r.format
}

// DashboardPath is where a product's dashboard is written.
func (r *Renderer) DashboardPath(slug string) string {
	return filepath.Join(r.dir, slug+"_dashboard."+r.format)
}

// OverviewPath is where the overview chart is written.
func (r *Renderer) OverviewPath() string {
	return filepath.Join(r.dir, "overview."+r.format)
}

// Dashboard renders the last 7 days, last 30 days and the full history of one
// product, stacked. It returns the written path.
func (r *Renderer) Dashboard(ctx context.Context, product models.Product, series []models.DailyStats) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(series) == 0 {
		r.logger.Warn("[charts] No data for %s, skipping chart", product.Name)
		return "", ErrNoData
	}

	today := r.now()
	weekFrom := today.AddDate(0, 0, -7)
	monthFrom := today.AddDate(0, 0, -30)
	month := since(series, monthFrom)

	week, err := panel(product.Name+" - Last 7 Days", since(series, weekFrom), weekFrom, today, true)
	if err != nil {
		return "", err
	}
	monthly, err := panel("Last 30 Days", month, monthFrom, today, len(month) <= 30)
	if err != nil {
		return "", err
	}
	all, err := panel("All Time", series, series[0].Date, today, false)
	if err != nil {
		return "", err
	}

	latest := series[len(series)-1]
	all.X.Label.Text = fmt.Sprintf("Latest (%s): %d listings | min %s | median %s | mean %s | max %s RON",
		latest.Day(), latest.Count,
		utils.FormatThousands(latest.MinPrice), utils.FormatThousands(int(latest.MedianPrice)),
		utils.FormatThousands(int(latest.MeanPrice)), utils.FormatThousands(latest.MaxPrice))

	c := r.newCanvas(dashboardWidth, dashboardHeight)
	plots := [][]*plot.Plot{{week}, {monthly}, {all}}
	tiles := draw.Tiles{
		Rows:      3,
		Cols:      1,
		PadTop:    vg.Points(10),
		PadBottom: vg.Points(10),
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(20),
		PadY:      vg.Points(20),
	}
	canvases := plot.Align(plots, tiles, draw.New(c))
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	path := r.DashboardPath(product.Slug)
	if err := r.write(path, c); err != nil {
		return "", err
	}
	r.logger.Info("[charts] Saved dashboard to %s", path)
	return path, nil
}

// Overview plots each product's median as an index of its first value (=100).
// Products without data are left out.
func (r *Renderer) Overview(ctx context.Context, products []models.Product, series map[string][]models.DailyStats) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p := plot.New()
	p.Title.Text = "Median Price Index (first day = 100)"
	p.Y.Label.Text = "Index"
	p.X.Tick.Marker = dateTicks
	p.Add(newGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	lines := 0
	for i, prod := range products {
		s := series[prod.Slug]
		if len(s) == 0 || s[0].MedianPrice == 0 {
			continue
		}
		base := s[0].MedianPrice
		xys := make(plotter.XYs, len(s))
		for j, row := range s {
			xys[j] = plotter.XY{X: unix(row.Date), Y: row.MedianPrice / base * 100}
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return "", fmt.Errorf("charts: overview %s: %w", prod.Slug, err)
		}
		l.LineStyle.Color = overviewPalette[i%len(overviewPalette)]
		l.LineStyle.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add(prod.Name, l)
		lines++
	}
	if lines == 0 {
		r.logger.Warn("[charts] No data for overview chart")
		return "", ErrNoData
	}
	padRanges(p)

	c := r.newCanvas(overviewWidth, overviewHeight)
	p.Draw(draw.New(c))

	path := r.OverviewPath()
	if err := r.write(path, c); err != nil {
		return "", err
	}
	r.logger.Info("[charts] Saved overview to %s", path)
	return path, nil
}

type canvas interface {
	vg.CanvasSizer
	io.WriterTo
}

func (r *Renderer) newCanvas(w, h vg.Length) canvas {
	if r.format == FormatPNG {
		return vgimg.PngCanvas{Canvas: vgimg.New(w, h)}
	}
	return vgsvg.New(w, h)
}

func (r *Renderer) write(path string, c canvas) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("charts: create images dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("charts: create %s: %w", path, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("charts: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("charts: close %s: %w", path, err)
	}
	return nil
}

// since returns the rows dated on or after cutoff's calendar day.
func since(series []models.DailyStats, cutoff time.Time) []models.DailyStats {
	y, m, d := cutoff.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, cutoff.Location())
	for i, s := range series {
		if !s.Date.Before(day) {
			return series[i:]
		}
	}
	return nil
}
