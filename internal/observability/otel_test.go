package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wevolve/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func testObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		ServiceName:    "wevolve-test",
		ServiceVersion: "test",
		Enabled:        true,
		TracingEnabled: true,
		MetricsEnabled: true,
		SampleRate:     1.0,
		CustomMetrics: config.CustomMetricsConfig{
			Uploads:        true,
			Backend:        true,
			ProfileEdits:   true,
			Infrastructure: true,
		},
	}
}

func newTestManager(t *testing.T, cfg ObservabilityConfig) *ObservabilityManager {
	t.Helper()
	om, err := NewObservabilityManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })
	return om
}

func findSum(rm metricdata.ResourceMetrics, name string) (metricdata.Sum[int64], bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			return sum, ok
		}
	}
	return metricdata.Sum[int64]{}, false
}

func TestDisabledManagerIsNoop(t *testing.T) {
	cfg := testObservabilityConfig()
	cfg.Enabled = false
	om := newTestManager(t, cfg)

	ctx := context.Background()
	om.RecordUpload(ctx, "success", time.Second, 10)
	om.RecordBackendRequest(ctx, "parse", true, time.Second)
	om.RecordProfileEdit(ctx, "name")
	om.RecordRateLimitHit(ctx, "/upload")

	_, ok, err := om.Collect(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	h := om.HTTPMiddleware()(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordersFeedMetrics(t *testing.T) {
	om := newTestManager(t, testObservabilityConfig())
	ctx := context.Background()

	om.RecordUpload(ctx, "success", 2*time.Second, 1024)
	om.RecordUpload(ctx, "rejected", 0, 0)
	om.RecordUpload(ctx, "success", time.Second, 2048)
	om.RecordBackendRequest(ctx, "parse", false, 100*time.Millisecond)
	om.RecordProfileEdit(ctx, "skills")

	rm, ok, err := om.Collect(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	uploads, ok := findSum(rm, "wevolve_uploads_total")
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range uploads.DataPoints {
		outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
		counts[outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"success": 2, "rejected": 1}, counts)

	backend, ok := findSum(rm, "wevolve_backend_requests_total")
	require.True(t, ok)
	require.Len(t, backend.DataPoints, 1)
	endpoint, _ := backend.DataPoints[0].Attributes.Value(attribute.Key("endpoint"))
	assert.Equal(t, "parse", endpoint.AsString())

	edits, ok := findSum(rm, "wevolve_profile_edits_total")
	require.True(t, ok)
	require.Len(t, edits.DataPoints, 1)
	assert.Equal(t, int64(1), edits.DataPoints[0].Value)
}

func TestCustomMetricGroupsCanBeDisabled(t *testing.T) {
	cfg := testObservabilityConfig()
	cfg.CustomMetrics.Uploads = false
	om := newTestManager(t, cfg)
	ctx := context.Background()

	om.RecordUpload(ctx, "success", time.Second, 10)
	om.RecordRateLimitHit(ctx, "/upload")

	rm, _, err := om.Collect(ctx)
	require.NoError(t, err)

	if uploads, ok := findSum(rm, "wevolve_uploads_total"); ok {
		assert.Empty(t, uploads.DataPoints)
	}
	hits, ok := findSum(rm, "wevolve_rate_limit_hits_total")
	require.True(t, ok)
	require.Len(t, hits.DataPoints, 1)
}

func TestTracerFallsBackToNoop(t *testing.T) {
	cfg := testObservabilityConfig()
	cfg.TracingEnabled = false
	om := newTestManager(t, cfg)

	_, span := om.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Observability.ServiceVersion = ""
	cfg.Observability.Tracing.SampleRate = 0.25

	got := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "1.2.3", got.ServiceVersion)
	assert.Equal(t, "wevolve", got.ServiceName)
	assert.InDelta(t, 0.25, got.SampleRate, 1e-9)
	assert.Equal(t, "/metrics", got.Prometheus.Endpoint)

	fallback := GetObservabilityConfig(nil, "dev")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, "9090", fallback.Prometheus.Port)
}
