package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})

	// Backend Configuration
	v.SetDefault("backend.baseURL", "http://localhost:8000")
	v.SetDefault("backend.timeout", 60*time.Second)
	v.SetDefault("backend.paths.parse", "/api/resume/parse")
	v.SetDefault("backend.paths.jobSearch", "/api/v1/jobs/search")
	v.SetDefault("backend.paths.jobMatch", "/api/v1/jobs/match")
	v.SetDefault("backend.paths.skillGap", "/api/skills/analyze")
	v.SetDefault("backend.paths.saveResume", "/api/resume/save")
	v.SetDefault("backend.paths.health", "/health")
	v.SetDefault("backend.skillGapMode", "role")
	v.SetDefault("backend.defaultRole", "frontend_developer")

	// Circuit Breaker Configuration defaults for the backend
	v.SetDefault("backend.circuitBreaker.enabled", true)
	v.SetDefault("backend.circuitBreaker.maxRequests", 3)
	v.SetDefault("backend.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("backend.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("backend.circuitBreaker.minRequests", 3)
	v.SetDefault("backend.circuitBreaker.failureThreshold", 0.6)

	// Outbound rate limit defaults
	v.SetDefault("backend.rateLimit.enabled", true)
	v.SetDefault("backend.rateLimit.requestsPerSecond", 5.0)
	v.SetDefault("backend.rateLimit.burst", 5)

	// Upload Configuration
	v.SetDefault("upload.maxFileSize", 5*1024*1024) // 5 MiB
	v.SetDefault("upload.allowedExtensions", []string{".pdf"})
	v.SetDefault("upload.allowedMimeTypes", []string{"application/pdf"})
	v.SetDefault("upload.inspectPDF", true)
	v.SetDefault("upload.progressInterval", 500*time.Millisecond)
	v.SetDefault("upload.progressStep", 10)
	v.SetDefault("upload.progressCap", 90)

	// Store Configuration
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "") // resolved under the user config dir if empty
	v.SetDefault("store.namespace", "wevolve")
	v.SetDefault("store.watch", true)
	v.SetDefault("store.debounce", 250*time.Millisecond)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.ttl", time.Duration(0))

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 90*time.Second) // parse calls can be slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("server.maxRequestSize", 32*1024*1024)

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 120)
	v.SetDefault("server.rateLimit.burstCapacity", 20)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// Observability Configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "wevolve")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing Configuration
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.uploads", true)
	v.SetDefault("observability.customMetrics.backend", true)
	v.SetDefault("observability.customMetrics.profileEdits", true)
	v.SetDefault("observability.customMetrics.infrastructure", true)

	// Console Configuration
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
