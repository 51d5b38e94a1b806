package storage

import (
	"time"

	"olx-price-index/models"
)

// SeriesStore is the per-product append-only stats store.
type SeriesStore interface {
	ShouldUpdateToday(slug string, today time.Time) (bool, error)
	Append(slug string, stats *models.DailyStats) error
	SeriesReader
}

// SeriesReader reads back a product's persisted stats rows.
type SeriesReader interface {
	ReadAll(slug string) ([]models.DailyStats, error)
	Latest(slug string) (*models.DailyStats, error)
}

// StatsWriter is a secondary sink that receives every appended row.
type StatsWriter interface {
	Write(slug string, stats *models.DailyStats) error
	Close() error
}
