package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"olx-price-index/charts"
	"olx-price-index/metrics"
	"olx-price-index/models"
	"olx-price-index/storage"
	"olx-price-index/utils"
)

// ListingSource fetches every priced listing for a product.
type ListingSource interface {
	FetchAll(ctx context.Context, product models.Product) ([]models.Listing, error)
}

// ChartRenderer draws charts from persisted series.
type ChartRenderer interface {
	Dashboard(ctx context.Context, product models.Product, series []models.DailyStats) (string, error)
	Overview(ctx context.Context, products []models.Product, series map[string][]models.DailyStats) (string, error)
}

// SummaryWriter regenerates the summary document from persisted series.
type SummaryWriter interface {
	Generate(products []models.Product) error
}

// Updater runs one update cycle over all products, sequentially.
//
// Each product gets at most one stats row per day. A product whose fetch
// fails is marked FAILED and the run moves on to the next product.
type Updater struct {
	source  ListingSource
	store   storage.SeriesStore
	mirror  storage.StatsWriter
	charts  ChartRenderer
	summary SummaryWriter
	logger  *utils.Logger
	now     func() time.Time
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithMirror also writes every appended row to w.
func WithMirror(w storage.StatsWriter) UpdaterOption {
	return func(u *Updater) { u.mirror = w }
}

// WithCharts renders a dashboard per updated product and an overview per run.
func WithCharts(c ChartRenderer) UpdaterOption {
	return func(u *Updater) { u.charts = c }
}

// WithSummary regenerates the summary document at the end of the run.
func WithSummary(s SummaryWriter) UpdaterOption {
	return func(u *Updater) { u.summary = s }
}

// WithClock overrides the time source used to decide "today".
func WithClock(now func() time.Time) UpdaterOption {
	return func(u *Updater) { u.now = now }
}

// NewUpdater creates an Updater. source is owned by the caller, which must
// keep it open for the duration of Run.
func NewUpdater(source ListingSource, store storage.SeriesStore, logger *utils.Logger, opts ...UpdaterOption) *Updater {
	if logger == nil {
		logger = utils.Nop()
	}
	u := &Updater{
		source: source,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run processes products in order, then renders the overview and the summary
// from the files on disk. The returned error is set only when the run could
// not finish: cancellation or a failed summary. Per-product failures are in
// the report.
func (u *Updater) Run(ctx context.Context, products []models.Product) (*models.RunReport, error) {
	report := &models.RunReport{RunID: uuid.NewString()}
	log := u.logger.With("run_id", report.RunID)
	start := time.Now()

	log.Info("[updater] Starting update of %d products", len(products))

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log.Info("[updater] Processing: %s", p.Name)
		res := u.updateProduct(ctx, log, p)
		report.Results = append(report.Results, res)
		metrics.RecordProductUpdate(p.Slug, string(res.State), u.now())
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if u.charts != nil {
		series := make(map[string][]models.DailyStats, len(products))
		for _, p := range products {
			s, err := u.store.ReadAll(p.Slug)
			if err != nil {
				log.Error("[updater] Could not read series for %s: %v", p.Slug, err)
				continue
			}
			series[p.Slug] = s
		}
		if _, err := u.charts.Overview(ctx, products, series); err != nil && !errors.Is(err, charts.ErrNoData) {
			log.Error("[updater] Overview chart failed: %v", err)
		}
	}

	if u.summary != nil {
		if err := u.summary.Generate(products); err != nil {
			return report, fmt.Errorf("generate summary: %w", err)
		}
	}

	log.Elapsed("update run", start)
	log.Info("[updater] Update complete: %d updated, %d already done, %d without data, %d failed",
		report.Count(models.StateUpdated), report.Count(models.StateSkippedAlreadyDone),
		report.Count(models.StateSkippedNoData), report.Count(models.StateFailed))
	return report, nil
}

func (u *Updater) updateProduct(ctx context.Context, log *utils.Logger, p models.Product) models.ProductResult {
	res := models.ProductResult{Product: p, State: models.StatePending}
	fail := func(err error) models.ProductResult {
		log.Error("[updater] %s failed: %v", p.Name, err)
		res.State = models.StateFailed
		res.Err = err
		return res
	}

	today := u.now()

	ok, err := u.store.ShouldUpdateToday(p.Slug, today)
	if err != nil {
		return fail(err)
	}
	if !ok {
		log.Info("[updater] Skipping %s - already updated today", p.Name)
		res.State = models.StateSkippedAlreadyDone
		return res
	}

	listings, err := u.source.FetchAll(ctx, p)
	if err != nil {
		return fail(err)
	}
	if len(listings) == 0 {
		log.Warn("[updater] No listings found for %s", p.Name)
		res.State = models.StateSkippedNoData
		return res
	}

	prices := make([]int, len(listings))
	for i, l := range listings {
		prices[i] = l.Price
	}
	stats, err := FromPrices(today, prices)
	if err != nil {
		return fail(err)
	}
	log.Info("[updater] Stats: count=%d, min=%d, max=%d, median=%.2f",
		stats.Count, stats.MinPrice, stats.MaxPrice, stats.MedianPrice)

	if err := u.store.Append(p.Slug, stats); err != nil {
		return fail(err)
	}
	res.State = models.StateUpdated
	res.Stats = stats

	if u.mirror != nil {
		if err := u.mirror.Write(p.Slug, stats); err != nil {
			log.Warn("[updater] Mirror write for %s failed: %v", p.Slug, err)
		}
	}

	if u.charts != nil {
		series, err := u.store.ReadAll(p.Slug)
		if err != nil {
			log.Error("[updater] Could not read series for %s: %v", p.Slug, err)
			return res
		}
		if _, err := u.charts.Dashboard(ctx, p, series); err != nil {
			log.Error("[updater] Dashboard for %s failed: %v", p.Slug, err)
		}
	}
	return res
}
