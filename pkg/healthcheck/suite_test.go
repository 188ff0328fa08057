// Package healthcheck test suite
// Comprehensive test suite runner and test organization
package healthcheck

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// MaxSuiteCheckDuration bounds how long a Check call of a handful of
// fast checkers should take; the engine's own cascade budgets each food
// in milliseconds, and a startup preflight shouldn't dwarf that.
const MaxSuiteCheckDuration = 200 * time.Millisecond

// HealthCheckTestSuite provides a comprehensive test suite for health check functionality
type HealthCheckTestSuite struct {
	suite.Suite
	logger *zap.Logger
}

// SetupSuite runs before the entire test suite
func (suite *HealthCheckTestSuite) SetupSuite() {
	suite.logger = zap.NewNop() // Silent logger for tests
}

// TestBasicHealthCheck tests basic health check functionality
func (suite *HealthCheckTestSuite) TestBasicHealthCheck() {
	hc := New("1.0.0", suite.logger)
	checker := NewMockChecker("test").WithStatus(StatusHealthy)
	hc.Register("test", checker)

	response := hc.Check(context.Background())

	AssertResponseStructure(suite.T(), response)
	suite.Equal(StatusHealthy, response.Status)
	suite.Len(response.Checks, 1)
}

// TestCircuitBreakerIntegration tests circuit breaker integration
func (suite *HealthCheckTestSuite) TestCircuitBreakerIntegration() {
	ehc := NewEnterpriseHealthCheck("1.0.0", suite.logger)
	checker := NewMockChecker("database").WithStatus(StatusHealthy)
	config := TestCircuitBreakerConfig()

	ehc.RegisterWithCircuitBreaker("database", checker, config)

	response := ehc.CheckWithMode(context.Background(), ModeStandard)

	AssertEnterpriseResponseStructure(suite.T(), response)
	suite.Equal(StatusHealthy, response.Status)
	suite.Len(response.CircuitBreakers, 1)
}

// TestDependencyManagement tests dependency management functionality
func (suite *HealthCheckTestSuite) TestDependencyManagement() {
	dm := NewDependencyManager(suite.logger)

	dbChecker := NewMockChecker("database").WithStatus(StatusHealthy)
	dbDep := DatabaseDependency("postgres", true, dbChecker)
	dm.Register(dbDep)

	cacheChecker := NewMockChecker("cache").WithStatus(StatusHealthy)
	cacheDep := CreateTestDependency("redis", DependencyTypeCache, false, []string{"postgres"}, cacheChecker)
	dm.Register(cacheDep)

	results := dm.CheckAll(context.Background())

	suite.Len(results, 2)
	AssertDependencyOrder(suite.T(), results, []string{"postgres", "redis"})
}

// TestMetricsCollection tests metrics collection functionality
func (suite *HealthCheckTestSuite) TestMetricsCollection() {
	config := TestMetricsConfig()
	metrics := NewHealthMetricsWithConfig(config)

	metrics.RecordCheck(StatusHealthy, 10*time.Millisecond)
	metrics.RecordCheckByName("test", StatusHealthy, 10*time.Millisecond)
	metrics.RecordCheckError("test", "test_error")
	metrics.RecordDependencyStatus("postgres", DependencyTypeDatabase, true, StatusHealthy)
	metrics.RecordCircuitBreakerState("circuit", StateClosed)
	metrics.RecordCircuitTrip("circuit", "test_reason")

	registry := metrics.GetMetricsHandler()
	suite.NotNil(registry)
}

// TestPerformanceRequirements tests performance requirements
func (suite *HealthCheckTestSuite) TestPerformanceRequirements() {
	hc := New("1.0.0", suite.logger)

	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("test_%d", i)
		checker := NewMockChecker(name).WithStatus(StatusHealthy).WithDuration(10 * time.Millisecond)
		hc.Register(name, checker)
	}

	start := time.Now()
	response := hc.Check(context.Background())
	duration := time.Since(start)

	suite.Equal(StatusHealthy, response.Status)
	suite.Less(duration, MaxSuiteCheckDuration)
}

// TestErrorHandling tests comprehensive error handling
func (suite *HealthCheckTestSuite) TestErrorHandling() {
	hc := New("1.0.0", suite.logger)

	failingChecker := NewFailingChecker("failing", "Test failure")
	hc.Register("failing", failingChecker)

	response := hc.Check(context.Background())

	suite.Equal(StatusUnhealthy, response.Status)
	suite.Len(response.Checks, 1)
	suite.Equal(StatusUnhealthy, response.Checks[0].Status)
	suite.Contains(response.Checks[0].Message, "Test failure")
}

// TestConcurrentAccess tests concurrent access scenarios
func (suite *HealthCheckTestSuite) TestConcurrentAccess() {
	hc := New("1.0.0", suite.logger)
	checker := NewMockChecker("concurrent").WithStatus(StatusHealthy)
	hc.Register("concurrent", checker)

	ctx := context.Background()
	const numGoroutines, numChecks = 10, 5
	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer func() { done <- true }()
			for j := 0; j < numChecks; j++ {
				hc.Check(ctx)
			}
		}()
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	response := hc.Check(ctx)
	suite.Equal(StatusHealthy, response.Status)
}

// TestSuite_RunAll runs the comprehensive test suite
func TestSuite_RunAll(t *testing.T) {
	suite.Run(t, new(HealthCheckTestSuite))
}

// BenchmarkSuite provides performance benchmarks
type BenchmarkSuite struct {
	suite.Suite
	hc  *HealthCheck
	ehc *EnterpriseHealthCheck
}

// SetupSuite runs before benchmark suite
func (suite *BenchmarkSuite) SetupSuite() {
	suite.hc = New("1.0.0", zap.NewNop())
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("checker_%d", i)
		checker := NewMockChecker(name).WithStatus(StatusHealthy)
		suite.hc.Register(name, checker)
	}

	suite.ehc = NewEnterpriseHealthCheck("1.0.0", zap.NewNop())
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("checker_%d", i)
		checker := NewMockChecker(name).WithStatus(StatusHealthy)
		suite.ehc.Register(name, checker)

		depName := fmt.Sprintf("dep_%d", i)
		depChecker := NewMockChecker(depName).WithStatus(StatusHealthy)
		dep := CreateTestDependency(depName, DependencyTypeService, false, []string{}, depChecker)
		suite.ehc.RegisterDependency(dep)
	}
}

// TestBenchmarkBasicHealthCheck benchmarks basic health checks
func (suite *BenchmarkSuite) TestBenchmarkBasicHealthCheck() {
	ctx := context.Background()

	suite.hc.Check(ctx)

	start := time.Now()
	for i := 0; i < 100; i++ {
		response := suite.hc.Check(ctx)
		suite.Equal(StatusHealthy, response.Status)
	}
	duration := time.Since(start)

	avgDuration := duration / 100
	suite.Less(avgDuration, 10*time.Millisecond, "Average health check should be under 10ms")
}

// TestBenchmarkEnterpriseHealthCheck benchmarks enterprise health checks
func (suite *BenchmarkSuite) TestBenchmarkEnterpriseHealthCheck() {
	ctx := context.Background()

	suite.ehc.CheckWithMode(ctx, ModeDeep)

	start := time.Now()
	for i := 0; i < 50; i++ {
		response := suite.ehc.CheckWithMode(ctx, ModeDeep)
		AssertEnterpriseResponseStructure(suite.T(), response)
		suite.Equal(StatusHealthy, response.Status)
	}
	duration := time.Since(start)

	avgDuration := duration / 50
	suite.Less(avgDuration, 50*time.Millisecond, "Average enterprise health check should be under 50ms")
}

// TestBenchmarkSuite_RunAll runs the benchmark suite
func TestBenchmarkSuite_RunAll(t *testing.T) {
	suite.Run(t, new(BenchmarkSuite))
}
