package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olx-price-index/charts"
	"olx-price-index/models"
	"olx-price-index/storage"
	"olx-price-index/utils"
)

var (
	runDay    = time.Date(2024, 3, 15, 8, 0, 0, 0, time.Local)
	aeron     = models.Product{Slug: "aeron", Name: "Aeron", Query: "aeron", Emoji: "🪑"}
	markus    = models.Product{Slug: "markus", Name: "IKEA Markus", Query: "markus"}
	embody    = models.Product{Slug: "embody", Name: "Embody", Query: "embody"}
	errRemote = errors.New("olx search: retries exhausted")
)

type fakeSource struct {
	listings map[string][]models.Listing
	errs     map[string]error
	calls    []string
}

func (f *fakeSource) FetchAll(_ context.Context, p models.Product) ([]models.Listing, error) {
	f.calls = append(f.calls, p.Slug)
	if err := f.errs[p.Slug]; err != nil {
		return nil, err
	}
	return f.listings[p.Slug], nil
}

func priced(prices ...int) []models.Listing {
	out := make([]models.Listing, len(prices))
	for i, p := range prices {
		out[i] = models.Listing{ID: fmt.Sprint(i), Price: p, Currency: "RON"}
	}
	return out
}

type fakeCharts struct {
	dashboards []string
	rows       map[string]int
	overviews  int
}

func (f *fakeCharts) Dashboard(_ context.Context, p models.Product, s []models.DailyStats) (string, error) {
	f.dashboards = append(f.dashboards, p.Slug)
	if f.rows == nil {
		f.rows = map[string]int{}
	}
	f.rows[p.Slug] = len(s)
	return p.Slug, nil
}

func (f *fakeCharts) Overview(_ context.Context, _ []models.Product, _ map[string][]models.DailyStats) (string, error) {
	f.overviews++
	return "overview", nil
}

type fakeSummary struct {
	calls int
	err   error
}

func (f *fakeSummary) Generate([]models.Product) error {
	f.calls++
	return f.err
}

type fakeMirror struct {
	rows []string
	err  error
}

func (f *fakeMirror) Write(slug string, s *models.DailyStats) error {
	f.rows = append(f.rows, slug+"@"+s.Day())
	return f.err
}

func (f *fakeMirror) Close() error { return nil }

type fixture struct {
	store   *storage.CSVStore
	source  *fakeSource
	charts  *fakeCharts
	summary *fakeSummary
	mirror  *fakeMirror
	updater *Updater
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   storage.NewCSVStore(filepath.Join(t.TempDir(), "data"), utils.Nop()),
		source:  &fakeSource{listings: map[string][]models.Listing{}, errs: map[string]error{}},
		charts:  &fakeCharts{},
		summary: &fakeSummary{},
		mirror:  &fakeMirror{},
	}
	f.updater = NewUpdater(f.source, f.store, utils.Nop(),
		WithCharts(f.charts),
		WithSummary(f.summary),
		WithMirror(f.mirror),
		WithClock(func() time.Time { return runDay }),
	)
	return f
}

func TestRunUpdatesProduct(t *testing.T) {
	f := newFixture(t)
	f.source.listings["aeron"] = priced(100, 200, 200, 300)

	report, err := f.updater.Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.NotEmpty(t, report.RunID)

	res := report.Results[0]
	assert.Equal(t, models.StateUpdated, res.State)
	require.NotNil(t, res.Stats)
	assert.Equal(t, 4, res.Stats.Count)
	assert.Equal(t, 200.0, res.Stats.MeanPrice)

	data, err := os.ReadFile(f.store.Path("aeron"))
	require.NoError(t, err)
	assert.Equal(t, "date,count,min,max,mean,median\n2024-03-15,4,100,300,200.0,200.0\n", string(data))

	assert.Equal(t, []string{"aeron"}, f.charts.dashboards)
	assert.Equal(t, 1, f.charts.rows["aeron"])
	assert.Equal(t, 1, f.charts.overviews)
	assert.Equal(t, 1, f.summary.calls)
	assert.Equal(t, []string{"aeron@2024-03-15"}, f.mirror.rows)
	assert.False(t, report.Failed())
}

func TestRunSkipsAlreadyUpdatedToday(t *testing.T) {
	f := newFixture(t)
	f.source.listings["aeron"] = priced(100)

	_, err := f.updater.Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)

	report, err := f.updater.Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)

	assert.Equal(t, models.StateSkippedAlreadyDone, report.Results[0].State)
	assert.Equal(t, []string{"aeron"}, f.source.calls, "second run must not fetch")

	rows, err := f.store.ReadAll("aeron")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, f.charts.overviews)
	assert.Equal(t, 2, f.summary.calls)
}

func TestRunNoListingsLeavesNoRow(t *testing.T) {
	f := newFixture(t)
	f.source.listings["aeron"] = []models.Listing{}

	report, err := f.updater.Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)

	assert.Equal(t, models.StateSkippedNoData, report.Results[0].State)
	assert.NoFileExists(t, f.store.Path("aeron"))
	assert.Empty(t, f.charts.dashboards)
	assert.Empty(t, f.mirror.rows)
}

func TestRunIsolatesFailedProduct(t *testing.T) {
	f := newFixture(t)
	f.source.listings["aeron"] = priced(10, 20)
	f.source.errs["markus"] = errRemote
	f.source.listings["embody"] = priced(30)

	report, err := f.updater.Run(context.Background(), []models.Product{aeron, markus, embody})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.Equal(t, models.StateUpdated, report.Results[0].State)
	assert.Equal(t, models.StateFailed, report.Results[1].State)
	assert.ErrorIs(t, report.Results[1].Err, errRemote)
	assert.Equal(t, models.StateUpdated, report.Results[2].State)

	assert.Equal(t, []string{"aeron", "markus", "embody"}, f.source.calls)
	assert.NoFileExists(t, f.store.Path("markus"))
	assert.True(t, report.Failed())
	assert.Equal(t, 2, report.Count(models.StateUpdated))
	assert.Equal(t, 1, f.summary.calls)
}

func TestRunMirrorFailureDoesNotFailProduct(t *testing.T) {
	f := newFixture(t)
	f.source.listings["aeron"] = priced(10)
	f.mirror.err = errors.New("connection reset")

	report, err := f.updater.Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)
	assert.Equal(t, models.StateUpdated, report.Results[0].State)
}

func TestRunSummaryFailure(t *testing.T) {
	f := newFixture(t)
	f.summary.err = errors.New("disk full")

	_, err := f.updater.Run(context.Background(), []models.Product{aeron})
	assert.ErrorContains(t, err, "disk full")
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.updater.Run(ctx, []models.Product{aeron, markus})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
	assert.Empty(t, f.source.calls)
	assert.Zero(t, f.summary.calls)
}

func TestRunNextDayAppends(t *testing.T) {
	f := newFixture(t)
	f.source.listings["aeron"] = priced(100)

	_, err := f.updater.Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)

	next := NewUpdater(f.source, f.store, utils.Nop(),
		WithClock(func() time.Time { return runDay.AddDate(0, 0, 1) }))
	report, err := next.Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)
	assert.Equal(t, models.StateUpdated, report.Results[0].State)

	rows, err := f.store.ReadAll("aeron")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-16", rows[1].Day())
}

func TestRunWithRealCharts(t *testing.T) {
	f := newFixture(t)
	f.source.listings["aeron"] = priced(100, 150)

	imgDir := filepath.Join(t.TempDir(), "images")
	u := NewUpdater(f.source, f.store, utils.Nop(),
		WithCharts(charts.NewRenderer(imgDir, charts.FormatSVG, utils.Nop())),
		WithClock(func() time.Time { return runDay }))

	_, err := u.Run(context.Background(), []models.Product{aeron, markus})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(imgDir, "aeron_dashboard.svg"))
	assert.FileExists(t, filepath.Join(imgDir, "overview.svg"))
	assert.NoFileExists(t, filepath.Join(imgDir, "markus_dashboard.svg"))
}

func TestInsightPrint(t *testing.T) {
	var buf bytes.Buffer
	report := &models.RunReport{RunID: "run-1", Results: []models.ProductResult{
		{Product: aeron, State: models.StateUpdated, Stats: &models.DailyStats{Count: 12, MedianPrice: 2500}},
		{Product: markus, State: models.StateFailed, Err: errRemote},
		{Product: embody, State: models.StateSkippedNoData},
	}}

	NewInsightService(&buf).Print(report)

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "2,500 RON")
	assert.Contains(t, out, "retries exhausted")
	assert.Contains(t, out, "no listings found")
}

func TestNewUpdaterNilLogger(t *testing.T) {
	src := &fakeSource{listings: map[string][]models.Listing{"aeron": priced(100)}}
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "data"), nil)

	report, err := NewUpdater(src, store, nil, WithClock(func() time.Time { return runDay })).
		Run(context.Background(), []models.Product{aeron})
	require.NoError(t, err)
	assert.Equal(t, models.StateUpdated, report.Results[0].State)
}
