package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"olx-price-index/models"
)

// PostgresWriter mirrors daily stats rows into PostgreSQL.
// The (slug, date) primary key with ON CONFLICT DO NOTHING makes each insert
// an atomic conditional append, unlike the CSV store's check-then-act guard.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_stats (
			slug         VARCHAR(100)  NOT NULL,
			date         DATE          NOT NULL,
			count        INTEGER       NOT NULL,
			min_price    INTEGER       NOT NULL,
			max_price    INTEGER       NOT NULL,
			mean_price   NUMERIC(12,2) NOT NULL,
			median_price NUMERIC(12,2) NOT NULL,
			created_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			PRIMARY KEY (slug, date)
		);

		CREATE INDEX IF NOT EXISTS idx_daily_stats_date ON daily_stats(date);
	`)
	return err
}

// Write inserts one row. A row already present for (slug, date) is kept.
func (pw *PostgresWriter) Write(slug string, s *models.DailyStats) error {
	_, err := pw.db.Exec(`
		INSERT INTO daily_stats (slug, date, count, min_price, max_price, mean_price, median_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (slug, date) DO NOTHING
	`, slug, s.Day(), s.Count, s.MinPrice, s.MaxPrice, s.MeanPrice, s.MedianPrice)
	if err != nil {
		return fmt.Errorf("postgres: insert %s %s: %w", slug, s.Day(), err)
	}
	return nil
}

// FetchSeries retrieves a product's mirrored rows ordered by date.
func (pw *PostgresWriter) FetchSeries(slug string) ([]models.DailyStats, error) {
	rows, err := pw.db.Query(`
		SELECT date, count, min_price, max_price, mean_price, median_price
		FROM daily_stats
		WHERE slug = $1
		ORDER BY date
	`, slug)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch series: %w", err)
	}
	defer rows.Close()

	var series []models.DailyStats
	for rows.Next() {
		var s models.DailyStats
		if err := rows.Scan(
			&s.Date, &s.Count, &s.MinPrice, &s.MaxPrice, &s.MeanPrice, &s.MedianPrice,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		series = append(series, s)
	}
	return series, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
