package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// applyFallbacks fills values that depend on the environment or on other keys
func (c *Config) applyFallbacks() {
	c.applyBackendDefaults()
	c.applyStoreDefaults()
	c.applyObservabilityDefaults()
}

// applyBackendDefaults normalizes the base URL so paths can be appended
func (c *Config) applyBackendDefaults() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	c.Backend.SkillGapMode = strings.ToLower(strings.TrimSpace(c.Backend.SkillGapMode))
}

// applyStoreDefaults resolves the cache file location
func (c *Config) applyStoreDefaults() {
	if c.Store.Namespace == "" {
		c.Store.Namespace = "wevolve"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath()
	}
	c.Store.Path = expandHome(c.Store.Path)
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	// Set console output based on log level if not explicitly configured
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func defaultStorePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wevolve", "state.json")
	}
	return filepath.Join(".", ".wevolve", "state.json")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	// Try to get hostname, fallback to default
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"WEVOLVE_BACKEND_BASEURL",
		"WEVOLVE_BACKEND_SKILLGAPMODE",
		"WEVOLVE_STORE_DRIVER",
		"WEVOLVE_STORE_PATH",
		"WEVOLVE_STORE_REDIS_ADDR",
		"WEVOLVE_STORE_REDIS_PASSWORD",
		"WEVOLVE_SERVER_PORT",
		"WEVOLVE_SERVER_HOST",
		"WEVOLVE_APP_LOGLEVEL",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			// Mask sensitive values
			if strings.Contains(strings.ToLower(envVar), "password") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Backend: %s (skill gap mode: %s)", c.Backend.BaseURL, c.Backend.SkillGapMode)
	log.Printf("[CONFIG] Upload limit: %d bytes, extensions: %v", c.Upload.MaxFileSize, c.Upload.AllowedExtensions)
	log.Printf("[CONFIG] Store: %s", c.storeSummary())
	log.Printf("[CONFIG] Server: %s:%s", c.Server.Host, c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func (c *Config) storeSummary() string {
	switch c.Store.Driver {
	case "redis":
		if c.Store.Redis.Password != "" {
			return fmt.Sprintf("redis %s db=%d (password ***CONFIGURED***)", c.Store.Redis.Addr, c.Store.Redis.DB)
		}
		return fmt.Sprintf("redis %s db=%d", c.Store.Redis.Addr, c.Store.Redis.DB)
	case "file":
		return fmt.Sprintf("file %s (watch=%t)", c.Store.Path, c.Store.Watch)
	default:
		return c.Store.Driver
	}
}
