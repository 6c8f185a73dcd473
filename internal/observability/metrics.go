package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Metrics holds all custom metrics for wevolve
type Metrics struct {
	// Upload lifecycle metrics
	UploadCount    metric.Int64Counter
	UploadDuration metric.Float64Histogram
	UploadSize     metric.Int64Histogram

	// Backend client metrics
	BackendRequestCount    metric.Int64Counter
	BackendRequestDuration metric.Float64Histogram

	// Review metrics
	ProfileEdits metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// initCustomMetrics creates all custom metrics for wevolve
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	om.metrics = &Metrics{}

	if err := om.createUploadMetrics(meter); err != nil {
		return err
	}

	if err := om.createBackendMetrics(meter); err != nil {
		return err
	}

	if err := om.createProfileMetrics(meter); err != nil {
		return err
	}

	return om.createRateLimitMetrics(meter)
}

func (om *ObservabilityManager) createUploadMetrics(meter metric.Meter) error {
	var err error

	om.metrics.UploadCount, err = meter.Int64Counter(
		"wevolve_uploads_total",
		metric.WithDescription("Total number of resume upload attempts by outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upload count metric: %w", err)
	}

	om.metrics.UploadDuration, err = meter.Float64Histogram(
		"wevolve_upload_duration_seconds",
		metric.WithDescription("Time from file intake to a finished upload attempt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upload duration metric: %w", err)
	}

	om.metrics.UploadSize, err = meter.Int64Histogram(
		"wevolve_upload_size_bytes",
		metric.WithDescription("Size of submitted resume files"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create upload size metric: %w", err)
	}

	return nil
}

func (om *ObservabilityManager) createBackendMetrics(meter metric.Meter) error {
	var err error

	om.metrics.BackendRequestCount, err = meter.Int64Counter(
		"wevolve_backend_requests_total",
		metric.WithDescription("Total number of backend requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create backend request count metric: %w", err)
	}

	om.metrics.BackendRequestDuration, err = meter.Float64Histogram(
		"wevolve_backend_request_duration_seconds",
		metric.WithDescription("Backend request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create backend duration metric: %w", err)
	}

	return nil
}

func (om *ObservabilityManager) createProfileMetrics(meter metric.Meter) error {
	var err error

	om.metrics.ProfileEdits, err = meter.Int64Counter(
		"wevolve_profile_edits_total",
		metric.WithDescription("Total number of profile field corrections"),
	)
	if err != nil {
		return fmt.Errorf("failed to create profile edits metric: %w", err)
	}

	return nil
}

func (om *ObservabilityManager) createRateLimitMetrics(meter metric.Meter) error {
	var err error

	om.metrics.RateLimitHits, err = meter.Int64Counter(
		"wevolve_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// RecordUpload counts one finished upload attempt.
func (om *ObservabilityManager) RecordUpload(ctx context.Context, outcome string, duration time.Duration, size int64) {
	m := om.metrics
	if m == nil || !om.config.CustomMetrics.Uploads {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.UploadCount.Add(ctx, 1, attrs)
	if duration > 0 {
		m.UploadDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if size > 0 {
		m.UploadSize.Record(ctx, size, attrs)
	}
}

// RecordBackendRequest counts one backend call.
func (om *ObservabilityManager) RecordBackendRequest(ctx context.Context, endpoint string, success bool, duration time.Duration) {
	m := om.metrics
	if m == nil || !om.config.CustomMetrics.Backend {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Bool("success", success),
	)
	m.BackendRequestCount.Add(ctx, 1, attrs)
	m.BackendRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordProfileEdit counts one corrected field.
func (om *ObservabilityManager) RecordProfileEdit(ctx context.Context, field string) {
	m := om.metrics
	if m == nil || !om.config.CustomMetrics.ProfileEdits {
		return
	}
	m.ProfileEdits.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

// RecordRateLimitHit counts one rejected request.
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, path string) {
	m := om.metrics
	// Rate limiting is an infrastructure metric
	if m == nil || !om.config.CustomMetrics.Infrastructure {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// Collect reads the current metrics from the fallback manual reader. It
// returns false when metrics are exported elsewhere.
func (om *ObservabilityManager) Collect(ctx context.Context) (metricdata.ResourceMetrics, bool, error) {
	var rm metricdata.ResourceMetrics
	if om.manualReader == nil {
		return rm, false, nil
	}
	err := om.manualReader.Collect(ctx, &rm)
	return rm, true, err
}
