package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wevolve/internal/config"
	"wevolve/internal/errors"
	"wevolve/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackendConfig(baseURL string) *config.BackendConfig {
	return &config.BackendConfig{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Paths: config.BackendPaths{
			Parse:      "/api/resume/parse",
			JobSearch:  "/api/v1/jobs/search",
			JobMatch:   "/api/v1/jobs/match",
			SkillGap:   "/api/skills/analyze",
			SaveResume: "/api/resume/save",
			Health:     "/health",
		},
		SkillGapMode: "role",
		DefaultRole:  "frontend_developer",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}
}

type backendCall struct {
	success  bool
	endpoint string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []backendCall
}

func (r *fakeRecorder) RecordBackendRequest(ctx context.Context, endpoint string, success bool, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, backendCall{success: success, endpoint: endpoint})
}

func TestParseResumeSendsMultipartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/resume/parse", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "jane.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4", string(content))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Jane Doe"}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := NewClient(testBackendConfig(srv.URL), nil, WithRecorder(rec))

	body, err := c.ParseResume(context.Background(), "jane.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Jane Doe"}`, string(body))
	assert.Equal(t, []backendCall{{success: true, endpoint: EndpointParse}}, rec.calls)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{"not found", http.StatusNotFound, "", "404 Error: Backend route not found.", errors.ErrCodeBackendStatus},
		{"server error", http.StatusInternalServerError, "", "Server Error: 500", errors.ErrCodeBackendStatus},
		{"unprocessable with detail", http.StatusUnprocessableEntity, `{"detail":"Only PDF files"}`, "Server Error: 422", errors.ErrCodeBackendStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(testBackendConfig(srv.URL), nil)
			_, err := c.ParseResume(context.Background(), "cv.pdf", []byte("%PDF-1.4"))
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, errors.UserMessage(err))
			assert.True(t, errors.IsCode(err, tt.wantCode))
			assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
		})
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(testBackendConfig(url), nil)
	_, err := c.ParseResume(context.Background(), "cv.pdf", []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBackendUnreachable))
	assert.Equal(t, "Backend not reachable at "+url, errors.UserMessage(err))
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testBackendConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	c := NewClient(cfg, nil)

	err := c.Health(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeNetworkTimeout), "got %v", err)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	status := atomic.Int32{}
	status.Store(http.StatusNotFound)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	c := NewClient(testBackendConfig(srv.URL), nil)
	ctx := context.Background()

	for range 5 {
		assert.Error(t, c.Health(ctx))
	}
	assert.True(t, c.Healthy(), "4xx must not open the breaker")

	// 5 failures out of 10 requests reaches the 0.5 ratio
	status.Store(http.StatusBadGateway)
	for range 5 {
		assert.Error(t, c.Health(ctx))
	}
	assert.False(t, c.Healthy())

	before := hits.Load()
	err := c.Health(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBackendUnavailable))
	assert.Equal(t, before, hits.Load(), "open breaker must not reach the backend")

	stats := c.Stats()["circuit_breaker"].(map[string]any)
	assert.Equal(t, "open", stats["state"])
}

func TestSearchJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/search", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"job_id":"j1","title":"Go Developer","company":"Acme","location":"Remote",
			"salary_range":[90000,120000],"required_skills":["Go","SQL"],"match_score":0.8}]`))
	}))
	defer srv.Close()

	c := NewClient(testBackendConfig(srv.URL), nil)
	jobs, err := c.SearchJobs(context.Background(), "golang")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].JobID)
	assert.Equal(t, []string{"Go", "SQL"}, jobs[0].RequiredSkills)
	require.NotNil(t, jobs[0].MatchScore)
	assert.InDelta(t, 0.8, *jobs[0].MatchScore, 1e-9)
}

func TestMatchJobsSendsResumeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Jane Doe Go", body["resume_text"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"jobs":[]}`))
	}))
	defer srv.Close()

	c := NewClient(testBackendConfig(srv.URL), nil)
	jobs, err := c.MatchJobs(context.Background(), "Jane Doe Go")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestSkillGapRequest(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		role    string
		targets []string
		want    types.SkillGapRequest
		wantErr bool
	}{
		{
			name: "default role",
			mode: "role",
			want: types.SkillGapRequest{CurrentSkills: []string{"Go"}, TargetRoleID: "frontend_developer"},
		},
		{
			name: "explicit role",
			mode: "skills",
			role: "backend_developer",
			want: types.SkillGapRequest{CurrentSkills: []string{"Go"}, TargetRoleID: "backend_developer"},
		},
		{
			name:    "targets win",
			mode:    "role",
			role:    "backend_developer",
			targets: []string{"Kubernetes"},
			want:    types.SkillGapRequest{CurrentSkills: []string{"Go"}, TargetSkills: []string{"Kubernetes"}},
		},
		{
			name:    "skills mode needs targets",
			mode:    "skills",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testBackendConfig("http://localhost:8000")
			cfg.SkillGapMode = tt.mode
			c := NewClient(cfg, nil)

			got, err := c.SkillGapRequest([]string{"Go"}, tt.role, tt.targets)
			if tt.wantErr {
				assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzeSkillGap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.SkillGapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"Go"}, req.CurrentSkills)
		assert.Equal(t, "backend_developer", req.TargetRoleID)
		_, _ = w.Write([]byte(`{"analysis":{"matching_skills":["Go"],"missing_skills":["Docker"],"readiness_score":72},
			"learning_roadmap":[{"phase":1,"duration_months":2,"skills_to_learn":["Docker"],"priority":"high"}]}`))
	}))
	defer srv.Close()

	c := NewClient(testBackendConfig(srv.URL), nil)
	resp, err := c.AnalyzeSkillGap(context.Background(), types.SkillGapRequest{
		CurrentSkills: []string{"Go"},
		TargetRoleID:  "backend_developer",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Docker"}, resp.Analysis.MissingSkills)
	require.Len(t, resp.LearningRoadmap, 1)
	assert.Equal(t, "high", resp.LearningRoadmap[0].Priority)
}

func TestSaveProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p types.CandidateProfile
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "Jane Doe", p.Name)
		_, _ = w.Write([]byte(`{"success":true,"message":"saved","profile_id":"p-1"}`))
	}))
	defer srv.Close()

	p := types.EmptyProfile()
	p.Name = "Jane Doe"

	c := NewClient(testBackendConfig(srv.URL), nil)
	res, err := c.SaveProfile(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "p-1", res.ProfileID)
}

func TestSaveProfileMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(testBackendConfig(srv.URL), nil)
	_, err := c.SaveProfile(context.Background(), types.EmptyProfile())
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidResponse))
}

func TestRateLimiterStats(t *testing.T) {
	cfg := testBackendConfig("http://localhost:8000")
	cfg.RateLimit = config.ClientRateLimit{Enabled: true, RequestsPerSecond: 2, Burst: 3}
	c := NewClient(cfg, nil)

	stats := c.Stats()
	limiter := stats["rate_limit"].(map[string]any)
	assert.Equal(t, true, limiter["enabled"])
	assert.Equal(t, 3, limiter["burst"])
	assert.Equal(t, "http://localhost:8000", stats["base_url"])
}

func TestRateLimiterHonoursContext(t *testing.T) {
	cfg := testBackendConfig("http://localhost:8000")
	cfg.RateLimit = config.ClientRateLimit{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	c := NewClient(cfg, nil)
	c.limiter.Allow() // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Health(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
	assert.True(t, errors.IsCode(err, errors.ErrCodeNetworkTimeout), "got %v", err)
}
