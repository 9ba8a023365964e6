package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CounterWithTags(t *testing.T) {
	m := New("multiruntime")
	scoped := m.WithTags(map[string]string{"component": "server"})

	scoped.IncrementCounter("http.requests", map[string]string{"status": "200"})
	scoped.IncrementCounter("http.requests", map[string]string{"status": "200"})
	scoped.IncrementCounter("http.requests", map[string]string{"status": "504"})

	c := m.reg.collectors["http_requests"]
	require.NotNil(t, c)
	assert.Equal(t, []string{"component", "status"}, c.labels)

	count, err := testutil.GatherAndCount(m.Gatherer(), "multiruntime_http_requests")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per status")
}

func TestMetrics_HandlerExposesSeries(t *testing.T) {
	m := New("svc")
	m.RecordHistogram("http.request_duration_ms", 42, map[string]string{"status": "200"})
	m.RecordGauge("http.in_flight", 1, nil)
	m.IncrementCounter("http.rejections", map[string]string{"reason": "too_large", "extra": "dropped"})
	m.IncrementCounter("http.rejections", map[string]string{"unknown": "x"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "svc_http_request_duration_ms_bucket")
	assert.Contains(t, string(body), "svc_http_in_flight 1")
	assert.Contains(t, string(body), `svc_http_rejections{extra="dropped",reason="too_large"} 1`)
	assert.Contains(t, string(body), `svc_http_rejections{extra="",reason=""} 1`)
}
