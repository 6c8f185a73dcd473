package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"wevolve/internal/backend"
	"wevolve/internal/config"
	"wevolve/internal/errors"
	"wevolve/internal/store"
	"wevolve/internal/types"
	"wevolve/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const janeDoe = `{"name":"Jane Doe","email":"jane@example.com","skills":["Go","SQL"],"confidence_scores":{"name":0.95,"email":0.6}}`

type fakeBackend struct {
	mu        sync.Mutex
	gate      chan struct{}
	gapBody   map[string]any
	saveCode  int
	parseBody string
}

func (fb *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/resume/parse", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		gate, body := fb.gate, fb.parseBody
		fb.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if body == "" {
			body = janeDoe
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("GET /api/v1/jobs/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"job_id":"J1","title":"Go Engineer","company":"Acme","required_skills":["Go"]},{"job_id":"J2","title":"Designer","company":"Initech"}]`)
	})
	mux.HandleFunc("POST /api/v1/jobs/match", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req["resume_text"], "Jane Doe")
		_, _ = io.WriteString(w, `[{"job_id":"J3","title":"Backend","company":"Acme","match_score":0.8}]`)
	})
	mux.HandleFunc("POST /api/skills/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		fb.mu.Lock()
		fb.gapBody = req
		fb.mu.Unlock()
		_, _ = io.WriteString(w, `{"analysis":{"matching_skills":["Go"],"missing_skills":["Kubernetes"],"readiness_score":50,"skill_gap_percentage":50,"estimated_learning_time_months":2,"confidence_level":"medium"},"learning_roadmap":[]}`)
	})
	mux.HandleFunc("POST /api/resume/save", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		code := fb.saveCode
		fb.mu.Unlock()
		if code != 0 {
			w.WriteHeader(code)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"message":"saved","profile_id":"p-1"}`)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	return mux
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeout = 2 * time.Second
	cfg.Backend.RateLimit.Enabled = false
	cfg.Upload.InspectPDF = false
	cfg.Upload.ProgressInterval = 5 * time.Millisecond
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.MaxRequestSize = 8 << 20
	return cfg
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	backend *fakeBackend
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	fb := &fakeBackend{}
	ts := httptest.NewServer(fb.handler(t))
	t.Cleanup(ts.Close)

	cfg := testConfig(ts.URL)
	if mutate != nil {
		mutate(cfg)
	}

	logger := errors.NewNopLogger()
	st := store.New()
	client := backend.NewClient(&cfg.Backend, logger)
	validator := upload.NewValidator(&cfg.Upload)
	ctrl := upload.NewController(st, client, validator, &cfg.Upload, logger)

	srv := NewServer(cfg, "test", Deps{
		Store:     st,
		Jobs:      store.NewJobStore(),
		Backend:   client,
		Uploads:   ctrl,
		Validator: validator,
	}, logger)
	t.Cleanup(srv.cleanup)

	return &testEnv{srv: srv, handler: srv.setupRoutes(), backend: fb}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedProfile() {
	p := types.EmptyProfile()
	p.Name = "Jane Doe"
	p.Skills = []string{"Go"}
	e.srv.Store.SetProfile(&p)
}

func multipartUpload(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func fakePDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestDependentPagesRedirectWithoutProfile(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/review", "/gap-analysis", "/jobs", "/review/name"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
		})
	}

	req := httptest.NewRequest(http.MethodPatch, "/review/name", strings.NewReader(`"X"`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrCodeNoProfile, decode[ErrorResponse](t, rec).Code)
}

func TestIndexDescribesIntake(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["hasProfile"])
	assert.Equal(t, "5.0 MB", body["maxFileSizeLabel"])
	assert.Equal(t, []any{".pdf", "application/pdf"}, body["accepts"])
}

func TestUploadToReview(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, multipartUpload(t, "resume.pdf", fakePDF()))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	session := decode[types.UploadSession](t, rec)
	assert.Equal(t, "resume.pdf", session.FileName)
	require.NotEmpty(t, session.SourceFilePreviewURL)

	require.Eventually(t, env.srv.Store.HasProfile, 2*time.Second, 5*time.Millisecond)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/review", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[types.ProfileView](t, rec)
	assert.Equal(t, "Jane Doe", view.Profile.Name)
	assert.Equal(t, []string{"Go", "SQL"}, view.Profile.Skills)
	assert.Equal(t, "high", view.Confidence["name"])
	assert.Equal(t, "medium", view.Confidence["email"])
	assert.Equal(t, session.SourceFilePreviewURL, view.PreviewURL)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, session.SourceFilePreviewURL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, fakePDF(), rec.Body.Bytes())

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/review?format=text", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Name:  Jane Doe [high]")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Upload.MaxFileSize = 1024
	})

	content := append(fakePDF(), bytes.Repeat([]byte("x"), 2048)...)
	rec := env.do(t, multipartUpload(t, "big.pdf", content))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[struct {
		ErrorResponse
		Session types.UploadSession `json:"session"`
	}](t, rec)
	assert.Equal(t, errors.ErrCodeFileTooLarge, body.Code)
	assert.Equal(t, "File too large (2.0 KB); maximum is 1.0 KB", body.Error)
	assert.Equal(t, types.PhaseFailed, body.Session.Phase)
	assert.False(t, env.srv.Store.HasProfile())
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidRequest, decode[ErrorResponse](t, rec).Code)
}

func TestSecondUploadConflictsAndCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	gate := make(chan struct{})
	env.backend.mu.Lock()
	env.backend.gate = gate
	env.backend.mu.Unlock()
	defer close(gate)

	rec := env.do(t, multipartUpload(t, "a.pdf", fakePDF()))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(t, multipartUpload(t, "b.pdf", fakePDF()))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrCodeUploadInProgress, decode[ErrorResponse](t, rec).Code)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/session/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["cancelled"])

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/session", nil))
	assert.Equal(t, types.PhaseIdle, decode[types.UploadSession](t, rec).Phase)
}

func TestPreviewUnknownID(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/preview/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchReviewField(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedProfile()

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"replace skills", "/review/skills", `["Go","Rust"]`, http.StatusOK, ""},
		{"replace name", "/review/name", `"Janet Doe"`, http.StatusOK, ""},
		{"unknown field", "/review/hobbies", `"chess"`, http.StatusBadRequest, errors.ErrCodeUnknownField},
		{"wrong type", "/review/skills", `"Go"`, http.StatusBadRequest, errors.ErrCodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := env.do(t, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
			}
		})
	}

	profile, ok := env.srv.Store.Profile()
	require.True(t, ok)
	assert.Equal(t, "Janet Doe", profile.Name)
	assert.Equal(t, []string{"Go", "Rust"}, profile.Skills)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/review/skills", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Go", "Rust"}, decode[map[string]any](t, rec)["value"])
}

func TestSaveAndDiscardProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedProfile()

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/review/save", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p-1", decode[types.SaveProfileResult](t, rec).ProfileID)

	env.backend.mu.Lock()
	env.backend.saveCode = http.StatusInternalServerError
	env.backend.mu.Unlock()
	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/review/save", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Server Error: 500", decode[ErrorResponse](t, rec).Error)

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/review", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, env.srv.Store.HasProfile())
}

func TestGapAnalysis(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedProfile()

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/gap-analysis?role=backend_developer", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.SkillGapResponse](t, rec)
	assert.Equal(t, []string{"Kubernetes"}, resp.Analysis.MissingSkills)

	env.backend.mu.Lock()
	sent := env.backend.gapBody
	env.backend.mu.Unlock()
	assert.Equal(t, []any{"Go"}, sent["current_skills"])
	assert.Equal(t, "backend_developer", sent["target_role_id"])

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/gap-analysis?skills=Go,Docker", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	env.backend.mu.Lock()
	sent = env.backend.gapBody
	env.backend.mu.Unlock()
	assert.Equal(t, []any{"Go", "Docker"}, sent["target_skills"])
}

func TestJobsSearchMatchAndSave(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedProfile()

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/jobs?q=go", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[types.JobList](t, rec)
	require.Len(t, list.Jobs, 2)
	assert.Equal(t, "go", list.Query)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/jobs/J1/save", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["saved"])

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/jobs/missing/save", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/jobs/saved", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[types.JobList](t, rec)
	require.Len(t, saved.Jobs, 1)
	assert.Equal(t, "J1", saved.Jobs[0].JobID)

	rec = env.do(t, httptest.NewRequest(http.MethodPost, "/jobs/match", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	matched := decode[types.JobList](t, rec)
	require.Len(t, matched.Jobs, 1)
	require.NotNil(t, matched.Jobs[0].MatchScore)
	assert.InDelta(t, 0.8, *matched.Jobs[0].MatchScore, 1e-9)
}

func TestHealthAndStats(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health?probe=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["backend"].(map[string]any)["probe"])

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, false, stats["rate_limiting"].(map[string]any)["enabled"])
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})

	first := httptest.NewRequest(http.MethodGet, "/health", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, http.StatusOK, env.do(t, first).Code)

	second := httptest.NewRequest(http.MethodGet, "/health", nil)
	second.RemoteAddr = "10.0.0.1:1235"
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, second).Code)

	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, env.do(t, other).Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:5000", "192.0.2.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "bogus, 203.0.113.7, 10.0.0.1"}, "192.0.2.1:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "192.0.2.1:5000", "198.51.100.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
