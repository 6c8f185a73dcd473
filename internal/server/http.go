package server

import (
	"time"

	"wevolve/internal/backend"
	"wevolve/internal/config"
	"wevolve/internal/errors"
	"wevolve/internal/observability"
	"wevolve/internal/store"
	"wevolve/internal/upload"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Server serves the application pages over HTTP
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Store     *store.Store
	Jobs      *store.JobStore
	Backend   *backend.Client
	Uploads   *upload.Controller
	Validator *upload.Validator
	Inspector *upload.PDFInspector
	Watcher   *store.FileWatcher

	Observability *observability.ObservabilityManager

	// Logger
	Logger *errors.Logger
}

// Deps are the application components a Server serves
type Deps struct {
	Store         *store.Store
	Jobs          *store.JobStore
	Backend       *backend.Client
	Uploads       *upload.Controller
	Validator     *upload.Validator
	Watcher       *store.FileWatcher
	Observability *observability.ObservabilityManager
}

// NewServer creates a new Server from the application configuration
func NewServer(appCfg *config.Config, version string, deps Deps, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if appCfg.Server.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			appCfg.Server.RateLimit.RequestsPerMin,
			appCfg.Server.RateLimit.BurstCapacity,
			logger,
		)
	}

	om := deps.Observability
	if om == nil {
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{})
	}

	return &Server{
		Host:            appCfg.Server.Host,
		Port:            appCfg.Server.Port,
		Version:         version,
		AppConfig:       appCfg,
		ReadTimeout:     appCfg.Server.ReadTimeout,
		WriteTimeout:    appCfg.Server.WriteTimeout,
		IdleTimeout:     appCfg.Server.IdleTimeout,
		ShutdownTimeout: appCfg.Server.ShutdownTimeout,
		MaxRequestSize:  appCfg.Server.MaxRequestSize,
		RateLimit:       &appCfg.Server.RateLimit,
		RateLimiter:     rateLimiter,
		Store:           deps.Store,
		Jobs:            deps.Jobs,
		Backend:         deps.Backend,
		Uploads:         deps.Uploads,
		Validator:       deps.Validator,
		Inspector:       upload.NewPDFInspector(),
		Watcher:         deps.Watcher,
		Observability:   om,
		Logger:          logger,
	}
}
