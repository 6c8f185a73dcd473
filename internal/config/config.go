package config

import (
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. WEVOLVE_BACKEND_BASEURL
const EnvPrefix = "WEVOLVE"

// Config holds all application configuration
// Precedence Order:
// 1. Command line flags bound to keys
// 2. Environment Variables (WEVOLVE_BACKEND_BASEURL, etc., .env included)
// 3. Config File values
// 4. Default values - Lowest priority
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Store         StoreConfig         `mapstructure:"store"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
}

// BackendConfig describes the external parsing, job and skill gap service
type BackendConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
	Paths   BackendPaths  `mapstructure:"paths"`

	// SkillGapMode selects the request shape: "role" sends target_role_id,
	// "skills" sends target_skills
	SkillGapMode string `mapstructure:"skillGapMode"`
	DefaultRole  string `mapstructure:"defaultRole"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	RateLimit      ClientRateLimit      `mapstructure:"rateLimit"`
}

// BackendPaths are joined to BaseURL
type BackendPaths struct {
	Parse      string `mapstructure:"parse"`
	JobSearch  string `mapstructure:"jobSearch"`
	JobMatch   string `mapstructure:"jobMatch"`
	SkillGap   string `mapstructure:"skillGap"`
	SaveResume string `mapstructure:"saveResume"`
	Health     string `mapstructure:"health"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ClientRateLimit throttles outbound backend calls
type ClientRateLimit struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// UploadConfig holds intake limits and the progress simulation settings
type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"maxFileSize"`
	AllowedExtensions []string `mapstructure:"allowedExtensions"`
	AllowedMIMETypes  []string `mapstructure:"allowedMimeTypes"`
	InspectPDF        bool     `mapstructure:"inspectPDF"`

	ProgressInterval time.Duration `mapstructure:"progressInterval"`
	ProgressStep     int           `mapstructure:"progressStep"`
	ProgressCap      int           `mapstructure:"progressCap"`
}

// StoreConfig selects where the profile is cached
type StoreConfig struct {
	Driver    string        `mapstructure:"driver"` // file, redis, memory
	Path      string        `mapstructure:"path"`
	Namespace string        `mapstructure:"namespace"`
	Watch     bool          `mapstructure:"watch"`
	Debounce  time.Duration `mapstructure:"debounce"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the redis connection used by the redis driver
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds the local page server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	MaxRequestSize  int64         `mapstructure:"maxRequestSize"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles the application metric groups
type CustomMetricsConfig struct {
	Uploads        bool `mapstructure:"uploads"`
	Backend        bool `mapstructure:"backend"`
	ProfileEdits   bool `mapstructure:"profileEdits"`
	Infrastructure bool `mapstructure:"infrastructure"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Loader builds a Config. Flags may be bound to keys before Load is called.
type Loader struct {
	v      *viper.Viper
	quiet  bool
	loaded bool
}

// NewLoader prepares viper with defaults, env handling and search paths.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/wevolve/")
	v.AddConfigPath("$HOME/.wevolve")
	v.AddConfigPath(".")

	return &Loader{v: v}
}

// Viper exposes the underlying instance for flag binding
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Quiet suppresses the configuration source summary
func (l *Loader) Quiet() *Loader {
	l.quiet = true
	return l
}

// SetConfigFile pins an explicit config file instead of the search paths
func (l *Loader) SetConfigFile(path string) {
	if path != "" {
		l.v.SetConfigFile(path)
	}
}

// Load reads .env, the config file and the environment, then validates.
func (l *Loader) Load() (*Config, error) {
	if !l.loaded {
		// a missing .env is the normal case
		_ = godotenv.Load()
		l.loaded = true
	}

	configFileUsed := ""
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = l.v.ConfigFileUsed()
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()

	if !l.quiet {
		config.logConfigurationSources(configFileUsed)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return NewLoader().Load()
}

// Default returns the built-in configuration without reading files or the
// environment. Used by tests.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Printf("[CONFIG] failed to decode defaults: %v", err)
	}
	config.applyFallbacks()
	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.App.LogLevel) {
		return fmt.Errorf("invalid log level: %s", c.App.LogLevel)
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend base URL must be an absolute http(s) URL: %q", c.Backend.BaseURL)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if c.Backend.SkillGapMode != "role" && c.Backend.SkillGapMode != "skills" {
		return fmt.Errorf("invalid skill gap mode: %s (use role or skills)", c.Backend.SkillGapMode)
	}

	if cb := c.Backend.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failure threshold must be in (0, 1]")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max file size must be positive")
	}

	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed upload extension is required")
	}

	if c.Upload.ProgressInterval <= 0 || c.Upload.ProgressStep <= 0 {
		return fmt.Errorf("upload progress interval and step must be positive")
	}

	if c.Upload.ProgressCap <= 0 || c.Upload.ProgressCap >= 100 {
		return fmt.Errorf("upload progress cap must be between 1 and 99")
	}

	switch c.Store.Driver {
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the file driver")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.MaxRequestSize < c.Upload.MaxFileSize {
		return fmt.Errorf("server max request size (%d) must not be smaller than the upload limit (%d)",
			c.Server.MaxRequestSize, c.Upload.MaxFileSize)
	}

	return nil
}
