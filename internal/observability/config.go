package observability

import (
	"time"

	"wevolve/internal/config"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	TracingEnabled  bool
	MetricsEnabled  bool
	ConsoleOutput   bool
	PrettyPrint     bool
	SampleRate      float64
	Interval        time.Duration
	CustomMetrics   config.CustomMetricsConfig
	Prometheus      PrometheusConfig
	OTLP            config.OTLPConfig
}

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		// Fallback to defaults if config not available
		return ObservabilityConfig{
			ServiceName:    "wevolve",
			ServiceVersion: version,
			Enabled:        true,
			TracingEnabled: true,
			MetricsEnabled: true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Interval:       15 * time.Second,
			CustomMetrics: config.CustomMetricsConfig{
				Uploads:        true,
				Backend:        true,
				ProfileEdits:   true,
				Infrastructure: true,
			},
			Prometheus: GetPrometheusConfig(cfg),
		}
	}

	obsConfig := cfg.Observability

	// Use app version if service version not specified
	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	sampleRate := obsConfig.SampleRate
	if obsConfig.Tracing.SampleRate > 0 && obsConfig.Tracing.SampleRate < sampleRate {
		sampleRate = obsConfig.Tracing.SampleRate
	}

	return ObservabilityConfig{
		ServiceName:     obsConfig.ServiceName,
		ServiceVersion:  serviceVersion,
		ServiceInstance: obsConfig.ServiceInstance,
		Enabled:         obsConfig.Enabled,
		TracingEnabled:  obsConfig.Tracing.Enabled,
		MetricsEnabled:  obsConfig.Metrics.Enabled,
		ConsoleOutput:   obsConfig.ConsoleOutput || obsConfig.Console.Enabled,
		PrettyPrint:     obsConfig.Console.PrettyPrint,
		SampleRate:      sampleRate,
		Interval:        obsConfig.Metrics.CollectionInterval,
		CustomMetrics:   obsConfig.CustomMetrics,
		Prometheus:      GetPrometheusConfig(cfg),
		OTLP:            obsConfig.OTLP,
	}
}
