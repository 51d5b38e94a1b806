// Package metrics provides Prometheus metrics for the price index run.
//
// The run is a short-lived batch job, so metrics are not served over HTTP but
// written once to a node-exporter textfile at the end of the run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts GraphQL requests by HTTP status ("error" for transport failures).
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olx_requests_total",
			Help: "Total number of search API requests",
		},
		[]string{"status"},
	)

	// RequestDuration is a histogram of search API request latencies.
	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "olx_request_duration_seconds",
			Help:    "Search API request latencies",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// RetriesTotal counts retry waits by reason.
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olx_retries_total",
			Help: "Total number of retried search API requests",
		},
		[]string{"reason"},
	)

	// ListingsCollectedTotal counts priced listings collected per product.
	ListingsCollectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_collected_total",
			Help: "Total number of listings with a price collected",
		},
		[]string{"product"},
	)

	// ProductUpdatesTotal counts product update outcomes.
	ProductUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_updates_total",
			Help: "Total number of product update outcomes by state",
		},
		[]string{"state"},
	)

	// LastUpdateTimestamp is the unix time of the last stats row appended per product.
	LastUpdateTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "last_update_timestamp_seconds",
			Help: "Unix timestamp of the last appended stats row",
		},
		[]string{"product"},
	)

	// Registry holds only this package's collectors.
	Registry = prometheus.NewRegistry()
)

func init() {
	Registry.MustRegister(
		RequestsTotal,
		RequestDuration,
		RetriesTotal,
		ListingsCollectedTotal,
		ProductUpdatesTotal,
		LastUpdateTimestamp,
	)
}

// WriteTextfile writes the current metric values to path in the Prometheus
// text format. The parent directory is created if needed.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}

// RecordRequest records one search API request.
func RecordRequest(statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	RequestsTotal.WithLabelValues(status).Inc()
	RequestDuration.Observe(duration.Seconds())
}

// RecordRetry records one retry wait.
func RecordRetry(reason string) {
	RetriesTotal.WithLabelValues(reason).Inc()
}

// RecordListings records the priced listings collected for a product.
func RecordListings(product string, n int) {
	ListingsCollectedTotal.WithLabelValues(product).Add(float64(n))
}

// RecordProductUpdate records the final state of a product update.
func RecordProductUpdate(product, state string, at time.Time) {
	ProductUpdatesTotal.WithLabelValues(state).Inc()
	if state == "UPDATED" {
		LastUpdateTimestamp.WithLabelValues(product).Set(float64(at.Unix()))
	}
}
