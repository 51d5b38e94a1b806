package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("429"))
	RecordRequest(429, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("429")))

	beforeErr := testutil.ToFloat64(RequestsTotal.WithLabelValues("error"))
	RecordRequest(0, time.Millisecond)
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(RequestsTotal.WithLabelValues("error")))
}

func TestRecordProductUpdate(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	RecordProductUpdate("metrics-test", "UPDATED", at)
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(LastUpdateTimestamp.WithLabelValues("metrics-test")))

	before := testutil.ToFloat64(ProductUpdatesTotal.WithLabelValues("FAILED"))
	RecordProductUpdate("metrics-test-2", "FAILED", at)
	assert.Equal(t, before+1, testutil.ToFloat64(ProductUpdatesTotal.WithLabelValues("FAILED")))
}

func TestWriteTextfile(t *testing.T) {
	RecordListings("textfile-product", 7)

	path := filepath.Join(t.TempDir(), "nested", "olx.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `listings_collected_total{product="textfile-product"} 7`))
}
