package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wevolve/internal/errors"
	"wevolve/internal/formatters"
	"wevolve/internal/types"
)

const defaultProbeTimeout = 5 * time.Second

// healthHandler reports store and backend state. ?probe=true also calls the
// backend health route.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.Store.Snapshot()
	response := map[string]any{
		"status":  "healthy",
		"service": "wevolve",
		"version": s.Version,
		"store": map[string]any{
			"has_profile":     snap.HasProfile(),
			"session_phase":   snap.Session.Phase,
			"version":         snap.Version,
			"watcher_running": s.Watcher != nil && s.Watcher.IsRunning(),
		},
	}

	backendStatus := s.Backend.Stats()
	healthy := s.Backend.Healthy()
	if r.URL.Query().Get("probe") == "true" {
		if err := s.probeBackend(r.Context()); err != nil {
			healthy = false
			backendStatus["probe_error"] = errors.UserMessage(err)
		} else {
			backendStatus["probe"] = "ok"
		}
	}
	backendStatus["healthy"] = healthy
	response["backend"] = backendStatus

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "wevolve",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"backend":    s.Backend.Stats(),
		"session":    s.Store.Session(),
		"jobs":       len(s.Jobs.Jobs().Jobs),
		"saved_jobs": len(s.Jobs.SavedJobs().Jobs),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// respond writes data as JSON, or through the text and markdown formatters
// when ?format= asks for them.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		writeJSON(w, status, data)
		return
	}

	out, err := formatters.GlobalRegistry.Format(data, format)
	if err != nil {
		writeErrorResponse(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}
	contentType := "text/plain; charset=utf-8"
	if format == "markdown" {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := io.WriteString(w, out); err != nil {
		s.Logger.Warn("Failed to write response", "error", err)
	}
}

// parseJSONRequest parses JSON request body into the provided value
func parseJSONRequest(r *http.Request, v any) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already out if encoding fails
	_ = json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// writeAppError maps an application error to a status code and writes the
// user message.
func writeAppError(w http.ResponseWriter, err error) {
	writeAppErrorWithSession(w, err, nil)
}

func writeAppErrorWithSession(w http.ResponseWriter, err error, session *types.UploadSession) {
	body := struct {
		ErrorResponse
		Session *types.UploadSession `json:"session,omitempty"`
	}{
		ErrorResponse: ErrorResponse{Error: errors.UserMessage(err)},
		Session:       session,
	}

	status := http.StatusInternalServerError
	if appErr, ok := errors.AsAppError(err); ok {
		body.Code = appErr.Code
		status = statusFor(appErr)
	}
	writeJSON(w, status, body)
}

func statusFor(err *errors.AppError) int {
	switch err.Code {
	case errors.ErrCodeJobNotFound:
		return http.StatusNotFound
	case errors.ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeNetworkTimeout:
		return http.StatusGatewayTimeout
	}

	switch err.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeState:
		return http.StatusConflict
	case errors.ErrorTypeNetwork, errors.ErrorTypeResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
