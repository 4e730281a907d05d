package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.ConversionFinished("complete", 0.2, 3)
	m.Classified(1, "plot")
	m.Warnings("align", 2)
	m.Warnings("align", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("1", "plot")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.warnings.WithLabelValues("align")))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup(true)
		m.ConversionFinished("error", 1, 0)
		m.Classified(0, "dual")
		m.Warnings("parse", 1)
		m.ObserveRequest("GET", "/health", 200, 0.01)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.CacheLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "flightlog_cache_lookups_total")
}
