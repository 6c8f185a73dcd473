package backend

import (
	stderrors "errors"
	"testing"
	"time"

	"wevolve/internal/config"
)

func testBreakerConfig() *config.CircuitBreakerConfig {
	return &config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
}

func TestCircuitBreakerConfigurationMapping(t *testing.T) {
	cb := NewCircuitBreaker("Test", testBreakerConfig(), nil)
	if cb == nil {
		t.Fatal("Circuit breaker should not be nil")
	}

	stats := cb.GetStats()
	name, ok := stats["name"].(string)
	if !ok {
		t.Fatal("Circuit breaker name not found")
	}
	if name != "Backend-Test" {
		t.Errorf("Expected circuit breaker name 'Backend-Test', got '%s'", name)
	}

	state, ok := stats["state"].(string)
	if !ok {
		t.Fatal("Circuit breaker state not found")
	}
	if state != "closed" {
		t.Errorf("Expected initial state 'closed', got '%s'", state)
	}

	if enabled, _ := stats["enabled"].(bool); !enabled {
		t.Error("Circuit breaker should be enabled")
	}
	if !cb.IsHealthy() {
		t.Error("Circuit breaker should be healthy initially")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.Enabled = false

	cb := NewCircuitBreaker("Test", cfg, nil)
	if cb != nil {
		t.Error("Circuit breaker should be nil when disabled")
	}

	// nil breakers still run the call
	out, err := cb.Execute(func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(out) != "ok" {
		t.Errorf("Expected passthrough result, got %q, %v", out, err)
	}
	if !cb.IsHealthy() {
		t.Error("Disabled circuit breaker should report healthy")
	}
	if enabled, _ := cb.GetStats()["enabled"].(bool); enabled {
		t.Error("Disabled circuit breaker should report enabled=false")
	}
}

func TestCircuitBreakerTripsOnServerErrors(t *testing.T) {
	cb := NewCircuitBreaker("Trip", testBreakerConfig(), nil)
	failing := func() ([]byte, error) { return nil, &statusError{status: 503} }

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(failing)
	}

	if cb.IsHealthy() {
		t.Fatal("Circuit breaker should be open after repeated server errors")
	}

	_, err := cb.Execute(func() ([]byte, error) { return []byte("ok"), nil })
	if !isBreakerRejection(err) {
		t.Errorf("Expected open state rejection, got %v", err)
	}
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	cb := NewCircuitBreaker("Client", testBreakerConfig(), nil)
	notFound := &statusError{status: 404}

	for i := 0; i < 10; i++ {
		_, err := cb.Execute(func() ([]byte, error) { return nil, notFound })
		if !stderrors.Is(err, notFound) {
			t.Fatalf("Expected the call error to be returned, got %v", err)
		}
	}

	if !cb.IsHealthy() {
		t.Error("Client errors must not open the circuit breaker")
	}
}
