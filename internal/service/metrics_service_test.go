package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/prefect-api/internal/models"
	"github.com/noah-isme/prefect-api/pkg/jobs"
	"github.com/noah-isme/prefect-api/pkg/realtime"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/complaints", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/complaints", 201, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.SubscribersChanged(2)
	m.SubscribersChanged(-1)
	m.EventPublished(realtime.EventInsert)
	m.ExportFinished(models.ExportStatusFinished)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, int64(1), snap.RealtimeSubscribers)
	assert.Equal(t, uint64(1), snap.RealtimeEventsPublished)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportJobs.WithLabelValues(string(models.ExportStatusFinished))))
}

func TestMetricsHandlerExposesQueueGauges(t *testing.T) {
	m := NewMetricsService()
	m.TrackQueue("exports", func() jobs.Stats { return jobs.Stats{Pending: 3, InFlight: 1} })
	m.ObserveHTTPRequest(http.MethodGet, "/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `prefect_queue_pending_jobs{queue="exports"} 3`)
	assert.Contains(t, body, `prefect_queue_in_flight_jobs{queue="exports"} 1`)
	assert.Contains(t, body, "prefect_http_requests_total")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.TrackQueue("exports", nil)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
