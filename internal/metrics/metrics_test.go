package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.ReadingIngested("http")
	m.ReadingIngested("http")
	m.ReadingIngested("mqtt")
	m.PublishFailed("prediction")
	m.BusMessage("data")
	m.ObserveClassification(15 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.readingsIngested.WithLabelValues("http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.readingsIngested.WithLabelValues("mqtt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishFailures.WithLabelValues("prediction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busMessages.WithLabelValues("data")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ReadingIngested("http")
	m.PublishFailed("settings")
	m.CacheHit()
	m.CacheMiss()
	m.ObserveClassification(time.Second)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.WrapHandler("x", h))
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.CacheHit()

	wrapped := m.WrapHandler("/api/devices", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/devices", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/devices", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "spl_device_cache_hits_total 1")
}
