// Package backend talks to the external resume parsing, job and skill gap
// service. Every call is rate limited, guarded by a circuit breaker and traced
// through the otel HTTP transport.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"wevolve/internal/config"
	"wevolve/internal/errors"
	"wevolve/internal/normalize"
	"wevolve/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Endpoint names used in logs and metrics.
const (
	EndpointParse      = "parse"
	EndpointJobSearch  = "job_search"
	EndpointJobMatch   = "job_match"
	EndpointSkillGap   = "skill_gap"
	EndpointSaveResume = "save_resume"
	EndpointHealth     = "health"
)

const maxResponseBytes = 16 << 20

// Recorder receives one call per backend request.
type Recorder interface {
	RecordBackendRequest(ctx context.Context, endpoint string, success bool, duration time.Duration)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// Client is safe for concurrent use.
type Client struct {
	baseURL      string
	paths        config.BackendPaths
	skillGapMode string
	defaultRole  string

	httpClient *http.Client
	breaker    *CircuitBreaker
	limiter    *rate.Limiter
	recorder   Recorder
	logger     *errors.Logger
}

// NewClient builds a client from the backend configuration.
func NewClient(cfg *config.BackendConfig, logger *errors.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	c := &Client{
		baseURL:      cfg.BaseURL,
		paths:        cfg.Paths,
		skillGapMode: cfg.SkillGapMode,
		defaultRole:  cfg.DefaultRole,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: NewCircuitBreaker("API", &cfg.CircuitBreaker, logger),
		logger:  logger,
	}
	if cfg.RateLimit.Enabled {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the backend root all paths are joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ParseResume submits the document as multipart field "file" and returns the
// raw reply for the normalizer.
func (c *Client) ParseResume(ctx context.Context, fileName string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	if err == nil {
		_, err = part.Write(content)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeRequestEncodeFailed,
			"Failed to encode upload request", err)
	}

	return c.do(ctx, request{
		endpoint:    EndpointParse,
		method:      http.MethodPost,
		path:        c.paths.Parse,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	})
}

// SearchJobs lists postings, optionally filtered by a free-text query.
func (c *Client) SearchJobs(ctx context.Context, query string) ([]types.JobPosting, error) {
	body, err := c.do(ctx, request{
		endpoint: EndpointJobSearch,
		method:   http.MethodGet,
		path:     c.paths.JobSearch,
		query:    url.Values{"q": {query}},
	})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeJobs(body)
}

// MatchJobs ranks postings against the plain text of a resume.
func (c *Client) MatchJobs(ctx context.Context, resumeText string) ([]types.JobPosting, error) {
	body, err := c.doJSON(ctx, EndpointJobMatch, c.paths.JobMatch, map[string]string{"resume_text": resumeText})
	if err != nil {
		return nil, err
	}
	return normalize.DecodeJobs(body)
}

// SkillGapRequest builds the analysis request for skills. Explicit target
// skills win over a role; with neither, the configured mode decides.
func (c *Client) SkillGapRequest(skills []string, role string, targetSkills []string) (types.SkillGapRequest, error) {
	req := types.SkillGapRequest{CurrentSkills: skills}
	if req.CurrentSkills == nil {
		req.CurrentSkills = []string{}
	}

	switch {
	case len(targetSkills) > 0:
		req.TargetSkills = targetSkills
	case role != "":
		req.TargetRoleID = role
	case c.skillGapMode == "skills":
		return req, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Target skills are required for skill gap analysis", nil)
	default:
		req.TargetRoleID = c.defaultRole
	}
	return req, nil
}

// AnalyzeSkillGap posts the request and decodes the analysis and roadmap.
func (c *Client) AnalyzeSkillGap(ctx context.Context, req types.SkillGapRequest) (*types.SkillGapResponse, error) {
	body, err := c.doJSON(ctx, EndpointSkillGap, c.paths.SkillGap, req)
	if err != nil {
		return nil, err
	}
	return normalize.DecodeSkillGap(body)
}

// SaveProfile stores the corrected profile remotely.
func (c *Client) SaveProfile(ctx context.Context, profile types.CandidateProfile) (*types.SaveProfileResult, error) {
	body, err := c.doJSON(ctx, EndpointSaveResume, c.paths.SaveResume, profile)
	if err != nil {
		return nil, err
	}

	var result types.SaveProfileResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: malformed save result", err)
	}
	return &result, nil
}

// Health probes the backend health route.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, request{
		endpoint: EndpointHealth,
		method:   http.MethodGet,
		path:     c.paths.Health,
	})
	return err
}

// Healthy reports whether the breaker currently lets requests through.
func (c *Client) Healthy() bool {
	return c.breaker.IsHealthy()
}

// Stats exposes breaker and limiter state.
func (c *Client) Stats() map[string]any {
	limiter := map[string]any{"enabled": c.limiter != nil}
	if c.limiter != nil {
		limiter["limit"] = float64(c.limiter.Limit())
		limiter["burst"] = c.limiter.Burst()
		limiter["tokens"] = c.limiter.Tokens()
	}
	return map[string]any{
		"base_url":        c.baseURL,
		"circuit_breaker": c.breaker.GetStats(),
		"rate_limit":      limiter,
	}
}

type request struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func (c *Client) doJSON(ctx context.Context, endpoint, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeRequestEncodeFailed,
			"Failed to encode request", err).WithContext("endpoint", endpoint)
	}
	return c.do(ctx, request{
		endpoint:    endpoint,
		method:      http.MethodPost,
		path:        path,
		body:        data,
		contentType: "application/json",
	})
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	start := time.Now()
	body, err := c.send(ctx, r)
	elapsed := time.Since(start)

	if c.recorder != nil {
		c.recorder.RecordBackendRequest(ctx, r.endpoint, err == nil, elapsed)
	}

	if err != nil {
		appErr := c.mapError(err).WithContext("endpoint", r.endpoint)
		c.logger.LogError(appErr, "Backend request failed",
			"path", r.path,
			"duration_ms", elapsed.Milliseconds())
		return nil, appErr
	}

	c.logger.Debug("Backend request completed",
		"endpoint", r.endpoint,
		"path", r.path,
		"bytes", len(body),
		"duration_ms", elapsed.Milliseconds())
	return body, nil
}

func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &limiterError{err: err}
		}
	}

	return c.breaker.Execute(func() ([]byte, error) {
		var body io.Reader
		if r.body != nil {
			body = bytes.NewReader(r.body)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, c.endpointURL(r.path, r.query), body)
		if err != nil {
			return nil, err
		}
		if r.contentType != "" {
			req.Header.Set("Content-Type", r.contentType)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{status: resp.StatusCode, detail: errorDetail(data)}
		}
		return data, nil
	})
}

func (c *Client) endpointURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// limiterError means the outbound limiter gave up before a token was free.
type limiterError struct {
	err error
}

func (e *limiterError) Error() string {
	return fmt.Sprintf("rate limiter: %v", e.err)
}

func (e *limiterError) Unwrap() error {
	return e.err
}

// statusError is a completed exchange with a non-2xx status.
type statusError struct {
	status int
	detail string
}

func (e *statusError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.status, e.detail)
	}
	return fmt.Sprintf("backend returned status %d", e.status)
}

// errorDetail pulls the string "detail" field common to the backend's error bodies.
func errorDetail(body []byte) string {
	var v struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &v) != nil {
		return ""
	}
	s, _ := v.Detail.(string)
	return s
}

func (c *Client) mapError(err error) *errors.AppError {
	var se *statusError
	var le *limiterError
	var ne net.Error

	switch {
	case stderrors.As(err, &le):
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			"Too many backend requests; please try again shortly", err)
	case isBreakerRejection(err):
		return errors.NewNetworkError(errors.ErrCodeBackendUnavailable,
			"Backend temporarily unavailable; please try again shortly", err)
	case stderrors.As(err, &se):
		msg := fmt.Sprintf("Server Error: %d", se.status)
		if se.status == http.StatusNotFound {
			msg = "404 Error: Backend route not found."
		}
		appErr := errors.NewNetworkError(errors.ErrCodeBackendStatus, msg, err).
			WithContext("status", se.status)
		if se.detail != "" {
			appErr.WithContext("detail", se.detail)
		}
		return appErr
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.As(err, &ne) && ne.Timeout():
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout,
			fmt.Sprintf("Backend at %s did not respond in time", c.baseURL), err)
	case stderrors.Is(err, context.Canceled):
		return errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "Backend request cancelled", err)
	default:
		return errors.NewNetworkError(errors.ErrCodeBackendUnreachable,
			fmt.Sprintf("Backend not reachable at %s", c.baseURL), err)
	}
}
