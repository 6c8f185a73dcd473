package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"wevolve/internal/errors"
	"wevolve/internal/normalize"
	"wevolve/internal/types"
	"wevolve/internal/upload"
	"wevolve/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// indexHandler is the upload entry page
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]any{
		"session":          s.Store.Session(),
		"hasProfile":       s.Store.HasProfile(),
		"accepts":          s.Validator.Accepts(),
		"maxFileSize":      s.Validator.MaxSize(),
		"maxFileSizeLabel": utils.FormatFileSize(s.Validator.MaxSize()),
	})
}

// uploadHandler accepts a multipart "file" part and starts an upload attempt
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("wevolve.api").Start(r.Context(), "api.upload")
	defer span.End()

	f, err := s.readUploadFile(r)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request"))
		writeAppError(w, err)
		return
	}
	span.SetAttributes(
		attribute.String("file.name", f.Name),
		attribute.Int64("file.size", f.Size),
	)

	attempt, err := s.Uploads.Submit(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.UserMessage(err))
		session := s.Store.Session()
		writeAppErrorWithSession(w, err, &session)
		return
	}

	span.SetAttributes(attribute.String("session.id", attempt.ID))
	w.Header().Set("Location", "/session")
	s.respond(w, r, http.StatusAccepted, s.Store.Session())
}

// readUploadFile reads the first "file" part. Content beyond the upload limit
// is counted but not kept, so the validator can report the real size.
func (s *Server) readUploadFile(r *http.Request) (upload.File, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return upload.File{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Expected a multipart form with a file field", err)
	}

	limit := s.Validator.MaxSize()
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return upload.File{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"Missing file field", nil)
		}
		if err != nil {
			return upload.File{}, bodyError(err, limit)
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		content, err := io.ReadAll(io.LimitReader(part, limit+1))
		if err != nil {
			return upload.File{}, bodyError(err, limit)
		}
		size := int64(len(content))
		if size > limit {
			rest, err := io.Copy(io.Discard, part)
			if err != nil {
				return upload.File{}, bodyError(err, limit)
			}
			size += rest
			content = nil
		}
		_ = part.Close()

		f := upload.NewFile(part.FileName(), part.Header.Get("Content-Type"), content)
		f.Size = size
		return f, nil
	}
}

func bodyError(err error, limit int64) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return upload.FileTooLarge(-1, limit)
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Failed to read upload", err)
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.Store.Session())
}

func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	cancelled := s.Uploads.Cancel()
	writeJSON(w, http.StatusOK, map[string]any{
		"cancelled": cancelled,
		"session":   s.Store.Session(),
	})
}

// previewHandler serves the bytes of the most recent upload
func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	f, ok := s.Uploads.Preview(r.PathValue("id"))
	if !ok {
		writeErrorResponse(w, "Preview not found", "The file is no longer available", http.StatusNotFound)
		return
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", f.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(f.Content); err != nil {
		s.Logger.Warn("Failed to write preview", "error", err)
	}
}

// reviewHandler renders the profile with its confidence levels
func (s *Server) reviewHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.Store.Profile()
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.respond(w, r, http.StatusOK, normalize.View(*profile, s.Store.Session().SourceFilePreviewURL))
}

func (s *Server) reviewFieldHandler(w http.ResponseWriter, r *http.Request) {
	field, err := parseField(r.PathValue("field"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	profile, ok := s.Store.Profile()
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"field": field,
		"value": profile.Value(field),
	})
}

// updateFieldHandler replaces one field with the JSON value in the body
func (s *Server) updateFieldHandler(w http.ResponseWriter, r *http.Request) {
	field, err := parseField(r.PathValue("field"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	var raw json.RawMessage
	if err := parseJSONRequest(r, &raw); err != nil {
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	value, err := field.DecodeValue(raw)
	if err != nil {
		writeAppError(w, errors.NewValidationError(errors.ErrCodeInvalidField, err.Error(), err).
			WithContext("field", string(field)))
		return
	}
	if err := s.Store.UpdateField(field, value); err != nil {
		writeAppError(w, err)
		return
	}

	s.Observability.RecordProfileEdit(r.Context(), string(field))
	s.Logger.Debug("Profile field updated", "field", field)
	s.reviewHandler(w, r)
}

// saveProfileHandler forwards the corrected profile to the backend
func (s *Server) saveProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.currentProfile()
	if err != nil {
		writeAppError(w, err)
		return
	}
	result, err := s.Backend.SaveProfile(r.Context(), *profile)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, *result)
}

// discardHandler drops the profile and the session
func (s *Server) discardHandler(w http.ResponseWriter, r *http.Request) {
	s.Uploads.Cancel()
	s.Store.Reset()
	s.Logger.Info("Profile discarded")
	w.WriteHeader(http.StatusNoContent)
}

// gapAnalysisHandler compares the profile skills with a role or target skills
func (s *Server) gapAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.currentProfile()
	if err != nil {
		writeAppError(w, err)
		return
	}
	q := r.URL.Query()

	req, err := s.Backend.SkillGapRequest(profile.Skills, q.Get("role"), splitList(q.Get("skills")))
	if err != nil {
		writeAppError(w, err)
		return
	}
	result, err := s.Backend.AnalyzeSkillGap(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, *result)
}

// jobsHandler searches postings and remembers the result list
func (s *Server) jobsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	jobs, err := s.Backend.SearchJobs(r.Context(), query)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.Jobs.SetJobs(query, jobs)
	s.respond(w, r, http.StatusOK, s.Jobs.Jobs())
}

// matchJobsHandler matches postings against resume text. The text comes from
// an uploaded file when one is posted, otherwise from the profile.
func (s *Server) matchJobsHandler(w http.ResponseWriter, r *http.Request) {
	text, err := s.matchText(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	jobs, err := s.Backend.MatchJobs(r.Context(), text)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.Jobs.SetJobs("", jobs)
	s.respond(w, r, http.StatusOK, s.Jobs.Jobs())
}

func (s *Server) matchText(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		f, err := s.readUploadFile(r)
		if err != nil {
			return "", err
		}
		if err := s.Validator.Validate(f); err != nil {
			return "", err
		}
		return s.Inspector.ExtractText(f.Content)
	}

	profile, err := s.currentProfile()
	if err != nil {
		return "", err
	}
	return normalize.ResumeText(*profile), nil
}

func (s *Server) toggleSaveJobHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	saved, err := s.Jobs.ToggleSaveJob(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": id, "saved": saved})
}

func (s *Server) savedJobsHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.Jobs.SavedJobs())
}

// currentProfile covers a discard racing a guarded handler
func (s *Server) currentProfile() (*types.CandidateProfile, error) {
	profile, ok := s.Store.Profile()
	if !ok {
		return nil, errors.NewStateError(errors.ErrCodeNoProfile,
			"No profile loaded; upload a resume at /", nil)
	}
	return profile, nil
}

// probeBackend is used by /health when the caller asks for a live check
func (s *Server) probeBackend(ctx context.Context) error {
	timeout := s.AppConfig.Backend.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Backend.Health(ctx)
}

func parseField(name string) (types.ProfileField, error) {
	field, err := types.ParseProfileField(name)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeUnknownField, err.Error(), err).
			WithContext("field", name)
	}
	return field, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
