package cli

import (
	"context"
	"fmt"
	"time"

	"wevolve/internal/backend"
	"wevolve/internal/config"
	"wevolve/internal/errors"
	"wevolve/internal/observability"
	"wevolve/internal/store"
	"wevolve/internal/types"
	"wevolve/internal/upload"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// app is the set of components one command works with
type app struct {
	cfg    *config.Config
	logger *errors.Logger

	persister store.Persister
	store     *store.Store
	jobs      *store.JobStore
	watcher   *store.FileWatcher

	obs       *observability.ObservabilityManager
	backend   *backend.Client
	validator *upload.Validator
	uploads   *upload.Controller
}

type appOptions struct {
	// serving enables the Prometheus endpoint and the store file watcher
	serving bool
}

// newApp builds the components from the command context. The caller must
// call Close.
func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := getLoggerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	persister, err := newPersister(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, persister: persister}

	storeOpts := []store.Option{
		store.WithPersister(persister),
		store.WithLogger(logger),
		store.WithNamespace(cfg.Store.Namespace),
	}
	a.store = store.New(storeOpts...)
	a.store.Hydrate(ctx)
	a.jobs = store.NewJobStore(storeOpts...)
	a.jobs.Hydrate(ctx)

	if fp, ok := persister.(*store.FilePersister); ok && opts.serving && cfg.Store.Watch {
		a.watcher = store.NewFileWatcher(fp.Path(), a.store, cfg.Store.Debounce, logger)
	}

	obsCfg := observability.GetObservabilityConfig(cfg, Version)
	if !opts.serving {
		// one-shot commands must not hold the metrics port
		obsCfg.Prometheus.Enabled = false
	}
	a.obs, err = observability.NewObservabilityManager(obsCfg)
	if err != nil {
		_ = persister.Close()
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	a.backend = backend.NewClient(&cfg.Backend, logger, backend.WithRecorder(a.obs))
	a.validator = upload.NewValidator(&cfg.Upload)
	a.uploads = upload.NewController(a.store, a.backend, a.validator, &cfg.Upload, logger,
		upload.WithRecorder(a.obs),
		upload.WithTracer(a.obs.Tracer("wevolve.upload")))

	return a, nil
}

func newPersister(ctx context.Context, cfg *config.StoreConfig) (store.Persister, error) {
	switch cfg.Driver {
	case "file":
		return store.NewFilePersister(cfg.Path)
	case "redis":
		return store.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	case "memory":
		return store.NewMemoryPersister(), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unknown store driver %q", cfg.Driver), nil)
	}
}

// requireProfile returns the stored profile or a pointer to the upload command
func (a *app) requireProfile() (types.CandidateProfile, error) {
	profile, ok := a.store.Profile()
	if !ok {
		return types.CandidateProfile{}, errors.NewStateError(errors.ErrCodeNoProfile,
			"No profile loaded; run `wevolve upload <resume.pdf>` first", nil)
	}
	return *profile, nil
}

// Close flushes telemetry and releases the store
func (a *app) Close() {
	a.uploads.Cancel()

	if a.watcher != nil && a.watcher.IsRunning() {
		if err := a.watcher.Stop(); err != nil {
			a.logger.LogError(err, "Failed to stop profile watcher")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.obs.Shutdown(ctx); err != nil {
		a.logger.Warn("Failed to shutdown observability", "error", err)
	}

	if err := a.persister.Close(); err != nil {
		a.logger.Warn("Failed to close store", "error", err)
	}
}
