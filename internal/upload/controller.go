package upload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"wevolve/internal/config"
	"wevolve/internal/errors"
	"wevolve/internal/normalize"
	"wevolve/internal/store"
	"wevolve/internal/types"
)

// Upload outcomes reported to the Recorder.
const (
	OutcomeSuccess         = "success"
	OutcomeRejected        = "rejected"
	OutcomeFailed          = "failed"
	OutcomeInvalidResponse = "invalid_response"
	OutcomeCancelled       = "cancelled"
)

// Parser submits a resume document and returns the raw reply body.
type Parser interface {
	ParseResume(ctx context.Context, fileName string, content []byte) ([]byte, error)
}

// Recorder receives one call per finished attempt.
type Recorder interface {
	RecordUpload(ctx context.Context, outcome string, duration time.Duration, size int64)
}

// PreviewPath is the URL prefix under which the last file is served.
const PreviewPath = "/preview/"

// ControllerOption configures optional collaborators.
type ControllerOption func(*Controller)

func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) { c.recorder = r }
}

func WithTracer(t trace.Tracer) ControllerOption {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// Controller owns the upload lifecycle: validating, uploading, normalizing
// and then complete or failed. At most one attempt is active at a time.
type Controller struct {
	store     *store.Store
	parser    Parser
	validator *Validator
	cfg       *config.UploadConfig
	logger    *errors.Logger
	recorder  Recorder
	tracer    trace.Tracer

	mu      sync.Mutex
	active  *Attempt
	sim     *Simulator
	preview *File
	prevID  string

	// gen identifies the current attempt; ticks and replies from an older
	// generation are dropped. Read without mu by the progress callback.
	gen atomic.Uint64
}

// NewController wires the lifecycle to its store and backend.
func NewController(st *store.Store, parser Parser, validator *Validator, cfg *config.UploadConfig, logger *errors.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	c := &Controller{
		store:     st,
		parser:    parser,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		tracer:    noop.NewTracerProvider().Tracer("wevolve/upload"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attempt is the handle for one accepted submission.
type Attempt struct {
	ID       string
	FileName string

	done    chan struct{}
	finish  sync.Once
	profile *types.CandidateProfile
	err     error
}

func newAttempt(id, name string) *Attempt {
	return &Attempt{ID: id, FileName: name, done: make(chan struct{})}
}

func (a *Attempt) complete(profile *types.CandidateProfile, err error) {
	a.finish.Do(func() {
		a.profile = profile
		a.err = err
		close(a.done)
	})
}

// Done is closed once the attempt has finished or been cancelled.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Err is the final error, valid after Done is closed.
func (a *Attempt) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Wait blocks until the attempt finishes or ctx is done. A ctx expiry does
// not cancel the attempt.
func (a *Attempt) Wait(ctx context.Context) (*types.CandidateProfile, error) {
	select {
	case <-a.done:
		return a.profile, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Active reports whether an attempt currently owns the session.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Submit validates f and, when it passes, sends it to the backend in the
// background. Validation failures fail the session and are returned with a
// nil Attempt. A file submitted while another attempt is active is rejected
// without touching the session.
func (c *Controller) Submit(ctx context.Context, f File) (*Attempt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, errors.NewStateError(errors.ErrCodeUploadInProgress,
			"An upload is already in progress", nil).
			WithContext("session_id", c.active.ID)
	}

	gen := c.gen.Add(1)
	id := uuid.NewString()
	started := time.Now()

	fc := f
	c.preview = &fc
	c.prevID = id

	c.store.BeginSession(types.UploadSession{
		ID:                   id,
		Phase:                types.PhaseValidating,
		SourceFilePreviewURL: PreviewPath + id,
		FileName:             f.Name,
		FileSize:             f.Size,
		StartedAt:            started,
	})

	if err := c.validator.Validate(f); err != nil {
		c.store.SetError(errors.UserMessage(err))
		c.logger.LogError(err, "Upload rejected", "session_id", id, "file_name", f.Name)
		c.record(ctx, OutcomeRejected, started, f.Size)
		return nil, err
	}

	attempt := newAttempt(id, f.Name)
	c.active = attempt

	c.store.SetUploadPhase(types.PhaseUploading)
	c.store.SetProgress(0)

	sim := NewSimulator(c.cfg.ProgressInterval, c.cfg.ProgressStep, c.cfg.ProgressCap)
	c.sim = sim
	sim.Start(0, func(pct int) {
		if c.gen.Load() == gen {
			c.store.SetProgress(pct)
		}
	})

	c.logger.Info("Upload accepted", "session_id", id, "file_name", f.Name, "file_size", f.Size)

	// the request outlives the caller's context, cancel only disengages
	runCtx := context.WithoutCancel(ctx)
	go c.run(runCtx, gen, attempt, f, sim, started)

	return attempt, nil
}

// Upload submits f and waits for the attempt to finish.
func (c *Controller) Upload(ctx context.Context, f File) (*types.CandidateProfile, error) {
	attempt, err := c.Submit(ctx, f)
	if err != nil {
		return nil, err
	}
	return attempt.Wait(ctx)
}

// Cancel disengages from the active attempt. The session returns to idle and
// a reply that arrives later is discarded. It reports whether anything was
// cancelled.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return false
	}

	c.gen.Add(1)
	if c.sim != nil {
		c.sim.Stop()
		c.sim = nil
	}
	c.store.ResetSession()

	attempt := c.active
	c.active = nil
	attempt.complete(nil, errors.NewStateError(errors.ErrCodeUploadCancelled, "Upload cancelled", nil).
		WithContext("session_id", attempt.ID))

	c.logger.Info("Upload cancelled", "session_id", attempt.ID)
	c.record(context.Background(), OutcomeCancelled, time.Time{}, 0)
	return true
}

// Preview returns the most recently submitted file if id still refers to it.
func (c *Controller) Preview(id string) (File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview == nil || c.prevID != id {
		return File{}, false
	}
	return *c.preview, true
}

func (c *Controller) run(ctx context.Context, gen uint64, attempt *Attempt, f File, sim *Simulator, started time.Time) {
	ctx, span := c.tracer.Start(ctx, "upload.parse",
		trace.WithAttributes(
			attribute.String("upload.session_id", attempt.ID),
			attribute.Int64("upload.file_size", f.Size),
		))
	defer span.End()

	body, err := c.parser.ParseResume(ctx, f.Name, f.Content)

	// the timer is gone before the phase leaves uploading
	sim.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen.Load() != gen {
		span.SetAttributes(attribute.Bool("upload.discarded", true))
		c.logger.Debug("Discarding reply for cancelled upload", "session_id", attempt.ID)
		return
	}
	c.active = nil
	c.sim = nil

	if err != nil {
		c.fail(ctx, span, attempt, err, OutcomeFailed, started, f.Size)
		return
	}

	payload, err := normalize.Decode(body)
	if err == nil && !payload.HasName() {
		err = errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: missing candidate name", nil).
			WithContext("keys", payload.Keys())
	}
	if err != nil {
		c.fail(ctx, span, attempt, err, OutcomeInvalidResponse, started, f.Size)
		return
	}

	c.store.SetUploadPhase(types.PhaseNormalizing)
	profile := normalize.Normalize(payload)
	c.store.CompleteUpload(profile)
	c.store.ResetSession()

	span.SetAttributes(attribute.String("upload.schema", payload.Schema()))
	span.SetStatus(codes.Ok, "")
	c.logger.Info("Upload complete",
		"session_id", attempt.ID,
		"schema", payload.Schema(),
		"skills", len(profile.Skills),
		"duration_ms", time.Since(started).Milliseconds())
	c.record(ctx, OutcomeSuccess, started, f.Size)

	out := profile.Clone()
	attempt.complete(&out, nil)
}

func (c *Controller) fail(ctx context.Context, span trace.Span, attempt *Attempt, err error, outcome string, started time.Time, size int64) {
	c.store.SetError(errors.UserMessage(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.UserMessage(err))
	c.logger.LogError(err, "Upload failed", "session_id", attempt.ID, "outcome", outcome)
	c.record(ctx, outcome, started, size)
	attempt.complete(nil, err)
}

func (c *Controller) record(ctx context.Context, outcome string, started time.Time, size int64) {
	if c.recorder == nil {
		return
	}
	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	c.recorder.RecordUpload(ctx, outcome, elapsed, size)
}
