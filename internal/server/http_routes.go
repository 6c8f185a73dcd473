package server

import (
	"net/http"

	"wevolve/internal/errors"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	limit := s.requestSizeLimitMiddleware

	// upload entry
	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.Handle("POST /upload", limit(http.HandlerFunc(s.uploadHandler)))
	mux.HandleFunc("GET /session", s.sessionHandler)
	mux.HandleFunc("POST /session/cancel", s.cancelHandler)
	mux.HandleFunc("GET /preview/{id}", s.previewHandler)

	// review
	mux.Handle("GET /review", s.requireProfile(http.HandlerFunc(s.reviewHandler)))
	mux.Handle("GET /review/{field}", s.requireProfile(http.HandlerFunc(s.reviewFieldHandler)))
	mux.Handle("PATCH /review/{field}", s.requireProfile(limit(http.HandlerFunc(s.updateFieldHandler))))
	mux.Handle("POST /review/save", s.requireProfile(http.HandlerFunc(s.saveProfileHandler)))
	mux.HandleFunc("DELETE /review", s.discardHandler)

	// gap analysis and jobs
	mux.Handle("GET /gap-analysis", s.requireProfile(http.HandlerFunc(s.gapAnalysisHandler)))
	mux.Handle("GET /jobs", s.requireProfile(http.HandlerFunc(s.jobsHandler)))
	mux.Handle("POST /jobs/match", s.requireProfile(limit(http.HandlerFunc(s.matchJobsHandler))))
	mux.HandleFunc("POST /jobs/{id}/save", s.toggleSaveJobHandler)
	mux.HandleFunc("GET /jobs/saved", s.savedJobsHandler)

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	return s.Observability.HTTPMiddleware()(s.rateLimitMiddleware(mux))
}

// requireProfile guards the pages that depend on a loaded profile. Page
// reads are redirected to the upload entry; mutations get a conflict.
func (s *Server) requireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Store.HasProfile() {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodGet {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		writeAppError(w, errors.NewStateError(errors.ErrCodeNoProfile,
			"No profile loaded; upload a resume at /", nil))
	})
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next.ServeHTTP(w, r)
	})
}
