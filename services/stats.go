package services

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"olx-price-index/models"
)

// FromPrices reduces one day's prices into DailyStats.
// Mean and median are rounded half-to-even to two decimals.
// The input slice is not modified.
func FromPrices(day time.Time, prices []int) (*models.DailyStats, error) {
	if len(prices) == 0 {
		return nil, ErrEmptyInput
	}

	sorted := slices.Clone(prices)
	slices.Sort(sorted)

	sum := decimal.Zero
	for _, p := range sorted {
		sum = sum.Add(decimal.NewFromInt(int64(p)))
	}
	n := decimal.NewFromInt(int64(len(sorted)))

	return &models.DailyStats{
		Date:        truncateToDay(day),
		Count:       len(sorted),
		MinPrice:    sorted[0],
		MaxPrice:    sorted[len(sorted)-1],
		MeanPrice:   round2(sum.Div(n)),
		MedianPrice: round2(median(sorted)),
	}, nil
}

// median expects sorted, non-empty input.
func median(sorted []int) decimal.Decimal {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return decimal.NewFromInt(int64(sorted[mid]))
	}
	lo := decimal.NewFromInt(int64(sorted[mid-1]))
	hi := decimal.NewFromInt(int64(sorted[mid]))
	return lo.Add(hi).Div(decimal.NewFromInt(2))
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.RoundBank(2).Float64()
	return f
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
