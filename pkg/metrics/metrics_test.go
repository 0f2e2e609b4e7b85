package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Scan(ScanCreated)
	m.Scan(ScanCreated)
	m.Scan(ScanRejected)
	m.CompatFallback("leads", "full")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.scans.WithLabelValues(ScanCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues(ScanRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compatFallbacks.WithLabelValues("leads", "full")))
}

func TestObserveStore_LabelsResult(t *testing.T) {
	m := New()
	m.ObserveStore("select", "leads", 20*time.Millisecond, nil)
	m.ObserveStore("update", "leads", 5*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.storeLatency))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Scan(ScanFailed)
		m.CompatFallback("leads", "core")
		m.ObserveStore("insert", "leads", time.Second, nil)
		m.EnrichmentJob("ok")
		m.HTTPRequest("GET", "/leads", "2xx")
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New()
	m.Scan(ScanCreated)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `boothlead_leads_scans_total{outcome="created"} 1`)
}
