// Package healthcheck test helpers
// Provides common utilities and helpers for health check testing
package healthcheck

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// MockChecker provides a configurable mock checker for testing
type MockChecker struct {
	name      string
	status    Status
	message   string
	duration  time.Duration
	metadata  interface{}
	delay     time.Duration
	err       error
	callCount int
	mu        sync.Mutex
}

// NewMockChecker creates a new mock checker
func NewMockChecker(name string) *MockChecker {
	return &MockChecker{
		name:   name,
		status: StatusHealthy,
	}
}

// WithStatus sets the status to return
func (m *MockChecker) WithStatus(status Status) *MockChecker {
	m.status = status
	return m
}

// WithMessage sets the message to return
func (m *MockChecker) WithMessage(message string) *MockChecker {
	m.message = message
	return m
}

// WithDuration sets the duration to return
func (m *MockChecker) WithDuration(duration time.Duration) *MockChecker {
	m.duration = duration
	return m
}

// WithMetadata sets the metadata to return
func (m *MockChecker) WithMetadata(metadata interface{}) *MockChecker {
	m.metadata = metadata
	return m
}

// WithDelay sets a delay before returning the check result
func (m *MockChecker) WithDelay(delay time.Duration) *MockChecker {
	m.delay = delay
	return m
}

// WithError sets an error condition
func (m *MockChecker) WithError(err error) *MockChecker {
	m.err = err
	return m
}

// Check implements the Checker interface
func (m *MockChecker) Check(ctx context.Context) Check {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	start := time.Now()

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return Check{
				Name:        m.name,
				Status:      StatusUnhealthy,
				Message:     "Context cancelled",
				LastChecked: start,
				Duration:    time.Since(start),
			}
		}
	}

	if m.err != nil {
		return Check{
			Name:        m.name,
			Status:      StatusUnhealthy,
			Message:     m.err.Error(),
			LastChecked: start,
			Duration:    time.Since(start),
		}
	}

	return Check{
		Name:        m.name,
		Status:      m.status,
		Message:     m.message,
		LastChecked: start,
		Duration:    m.duration,
		Metadata:    m.metadata,
	}
}

// GetCallCount returns the number of times Check was called
func (m *MockChecker) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// ResetCallCount resets the call counter
func (m *MockChecker) ResetCallCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
}

// FailingChecker provides a checker that always fails
type FailingChecker struct {
	name    string
	message string
}

// NewFailingChecker creates a new failing checker
func NewFailingChecker(name, message string) *FailingChecker {
	return &FailingChecker{
		name:    name,
		message: message,
	}
}

// Check implements the Checker interface
func (f *FailingChecker) Check(ctx context.Context) Check {
	return Check{
		Name:        f.name,
		Status:      StatusUnhealthy,
		Message:     f.message,
		LastChecked: time.Now(),
		Duration:    time.Millisecond,
	}
}

// SlowChecker provides a checker that takes a specified amount of time
type SlowChecker struct {
	name     string
	duration time.Duration
}

// NewSlowChecker creates a new slow checker
func NewSlowChecker(name string, duration time.Duration) *SlowChecker {
	return &SlowChecker{
		name:     name,
		duration: duration,
	}
}

// Check implements the Checker interface
func (s *SlowChecker) Check(ctx context.Context) Check {
	start := time.Now()

	timer := time.NewTimer(s.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return Check{
			Name:        s.name,
			Status:      StatusHealthy,
			Message:     "Slow check completed",
			LastChecked: start,
			Duration:    time.Since(start),
		}
	case <-ctx.Done():
		return Check{
			Name:        s.name,
			Status:      StatusUnhealthy,
			Message:     "Check timed out",
			LastChecked: start,
			Duration:    time.Since(start),
		}
	}
}

// UnreachableServiceChecker simulates an unreachable external service
type UnreachableServiceChecker struct {
	name string
}

// NewUnreachableServiceChecker creates a new unreachable service checker
func NewUnreachableServiceChecker(name string) *UnreachableServiceChecker {
	return &UnreachableServiceChecker{name: name}
}

// Check implements the Checker interface
func (u *UnreachableServiceChecker) Check(ctx context.Context) Check {
	start := time.Now()

	conn, err := net.DialTimeout("tcp", "192.0.2.1:80", 1*time.Second)
	if conn != nil {
		conn.Close()
	}

	return Check{
		Name:        u.name,
		Status:      StatusUnhealthy,
		Message:     fmt.Sprintf("Service unreachable: %v", err),
		LastChecked: start,
		Duration:    time.Since(start),
	}
}

// TestCircuitBreakerConfig provides test configuration for circuit breakers
func TestCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond, // Short timeout for tests
		MaxRequests:      2,
	}
}

// TestMetricsConfig provides test configuration for metrics
func TestMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "test",
		Subsystem: "healthcheck",
		Enabled:   true,
	}
}

// WaitForCircuitBreakerState waits for a circuit breaker to reach a specific state
func WaitForCircuitBreakerState(t *testing.T, cb *CircuitBreaker, expectedState CircuitBreakerState, timeout time.Duration) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if cb.GetState() == expectedState {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Failf(t, "Circuit breaker state timeout",
		"Expected state %s, got %s", expectedState, cb.GetState())
}

// AssertDependencyOrder verifies that dependencies are returned in topological order
func AssertDependencyOrder(t *testing.T, dependencies []DependencyStatus, expectedOrder []string) {
	require.Len(t, dependencies, len(expectedOrder), "Dependency count mismatch")

	for i, expected := range expectedOrder {
		require.Equal(t, expected, dependencies[i].Name,
			"Dependency order mismatch at position %d", i)
	}
}

// CreateTestDependency creates a test dependency with specified characteristics
func CreateTestDependency(name string, depType DependencyType, critical bool, deps []string, checker Checker) Dependency {
	return NewBasicDependency(name, depType, critical, deps, checker)
}

// AssertCheckResult validates a health check result
func AssertCheckResult(t *testing.T, check Check, expectedStatus Status, expectedName string) {
	require.Equal(t, expectedName, check.Name, "Check name mismatch")
	require.Equal(t, expectedStatus, check.Status, "Check status mismatch")
	require.NotZero(t, check.LastChecked, "LastChecked should be set")
	require.True(t, check.Duration >= 0, "Duration should be non-negative")
}

// AssertResponseStructure validates the structure of a health check response
func AssertResponseStructure(t *testing.T, response Response) {
	require.NotEmpty(t, response.Version, "Version should not be empty")
	require.NotZero(t, response.Timestamp, "Timestamp should be set")
	require.Contains(t, []Status{StatusHealthy, StatusDegraded, StatusUnhealthy},
		response.Status, "Status should be valid")
	require.True(t, response.TotalDuration >= 0, "TotalDuration should be non-negative")

	for _, check := range response.Checks {
		AssertCheckResult(t, check, check.Status, check.Name)
	}
}

// AssertEnterpriseResponseStructure validates the structure of an enterprise health check response
func AssertEnterpriseResponseStructure(t *testing.T, response EnterpriseResponse) {
	AssertResponseStructure(t, response.Response)

	require.NotEmpty(t, response.SystemInfo.Hostname, "Hostname should not be empty")
	require.NotEmpty(t, response.SystemInfo.Platform, "Platform should not be empty")
	require.NotEmpty(t, response.SystemInfo.Architecture, "Architecture should not be empty")
	require.True(t, response.SystemInfo.CPUCores > 0, "CPU cores should be positive")
	require.True(t, response.SystemInfo.Memory.Total > 0, "Memory total should be positive")
}
