package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCollectorCounts(t *testing.T) {
	mc := NewMetricsCollector()

	mc.IncrementRequests()
	mc.IncrementRequests()
	mc.IncrementErrors()
	mc.AddOperationLatency("create_post", 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(mc.requestCount))
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.errorCount))
	assert.Equal(t, 1, testutil.CollectAndCount(mc.operationTimes))
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementRequests()

	rec := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "gator_overflow_http_requests_total 1"))
}
