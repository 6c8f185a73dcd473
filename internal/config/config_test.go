package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{".pdf"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, 500*time.Millisecond, cfg.Upload.ProgressInterval)
	assert.Equal(t, 10, cfg.Upload.ProgressStep)
	assert.Equal(t, 90, cfg.Upload.ProgressCap)
	assert.Equal(t, "wevolve", cfg.Store.Namespace)
	assert.NotEmpty(t, cfg.Store.Path)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("WEVOLVE_BACKEND_BASEURL", "http://parser.internal:9000/")
	t.Setenv("WEVOLVE_BACKEND_SKILLGAPMODE", "Skills")
	t.Setenv("WEVOLVE_STORE_PATH", filepath.Join(t.TempDir(), "s.json"))
	t.Setenv("WEVOLVE_SERVER_PORT", "4000")

	cfg, err := NewLoader().Quiet().Load()
	require.NoError(t, err)

	assert.Equal(t, "http://parser.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "skills", cfg.Backend.SkillGapMode)
	assert.Equal(t, "4000", cfg.Server.Port)
}

func TestLoadExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend:
  baseURL: https://api.example.com
upload:
  maxFileSize: 1048576
store:
  driver: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	l := NewLoader().Quiet()
	l.SetConfigFile(path)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxFileSize)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.App.LogLevel = "verbose" },
			errorMsg: "invalid log level",
		},
		{
			name:     "unsupported default format",
			mutate:   func(c *Config) { c.App.DefaultFormat = "xml" },
			errorMsg: "invalid default format",
		},
		{
			name:     "relative backend url",
			mutate:   func(c *Config) { c.Backend.BaseURL = "localhost:8000" },
			errorMsg: "backend base URL",
		},
		{
			name:     "unknown skill gap mode",
			mutate:   func(c *Config) { c.Backend.SkillGapMode = "both" },
			errorMsg: "invalid skill gap mode",
		},
		{
			name:     "breaker threshold",
			mutate:   func(c *Config) { c.Backend.CircuitBreaker.FailureThreshold = 1.5 },
			errorMsg: "failure threshold",
		},
		{
			name:     "zero upload limit",
			mutate:   func(c *Config) { c.Upload.MaxFileSize = 0 },
			errorMsg: "max file size",
		},
		{
			name:     "progress cap at 100",
			mutate:   func(c *Config) { c.Upload.ProgressCap = 100 },
			errorMsg: "progress cap",
		},
		{
			name:     "unknown store driver",
			mutate:   func(c *Config) { c.Store.Driver = "sqlite" },
			errorMsg: "invalid store driver",
		},
		{
			name:     "redis without addr",
			mutate:   func(c *Config) { c.Store.Driver = "redis"; c.Store.Redis.Addr = "" },
			errorMsg: "redis address",
		},
		{
			name:     "request size below upload limit",
			mutate:   func(c *Config) { c.Server.MaxRequestSize = 1024 },
			errorMsg: "max request size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".wevolve", "s.json"), expandHome("~/.wevolve/s.json"))
	assert.Equal(t, "/tmp/s.json", expandHome("/tmp/s.json"))
}
