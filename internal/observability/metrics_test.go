package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
	}{
		{name: "with custom namespace", namespace: "custom"},
		{name: "with empty namespace uses default", namespace: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := NewMetrics(tt.namespace)

			assert.NotNil(t, metrics.buildsTotal)
			assert.NotNil(t, metrics.dispatchTotal)
			assert.NotNil(t, metrics.Registry())
		})
	}
}

func TestMetrics_RecordBuild(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordBuild(BuildTriggerInitial, BuildResultSuccess, 5*time.Millisecond)
	m.RecordBuild(BuildTriggerWatch, BuildResultFailure, time.Millisecond)
	m.RecordBuild(BuildTriggerWatch, BuildResultFailure, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("initial", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("watch", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.buildDuration))
}

func TestMetrics_RecordSwap(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordSwap(1, 4)
	m.RecordSwap(2, 6)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.snapshotSwaps))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.snapshotGeneration))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.routes))
}

func TestMetrics_WatchAndCoalesce(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordWatchEvent("modified")
	m.RecordWatchEvent("modified")
	m.RecordWatchEvent("removed")
	m.RecordCoalescedRebuild()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.watchEvents.WithLabelValues("modified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.watchEvents.WithLabelValues("removed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rebuildsCoalesced))
}

func TestMetrics_Dispatch(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.IncInFlight()
	m.IncInFlight()
	m.DecInFlight()
	m.RecordDispatch(http.MethodGet, "/user/:id", http.StatusOK, time.Millisecond)
	m.RecordDispatch(http.MethodGet, UnmatchedRoute, http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("GET", "/user/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("GET", UnmatchedRoute, "404")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordSwap(1, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_")
	assert.Contains(t, rec.Body.String(), "test_snapshot_swaps_total")
}
