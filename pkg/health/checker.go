package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

// HealthChecker monitors the health of all system components
type HealthChecker struct {
	postgres     *sql.DB
	redisClient  *redis.Client
	dependencies map[string]HealthCheckFunc
	startTime    time.Time
}

// HealthStatus represents the overall system health
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Summary    HealthSummary              `json:"summary"`
}

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	LastChecked  time.Time     `json:"last_checked"`
	Error        string        `json:"error,omitempty"`
	Details      interface{}   `json:"details,omitempty"`
}

// HealthSummary provides a high-level health overview
type HealthSummary struct {
	TotalComponents     int    `json:"total_components"`
	HealthyComponents   int    `json:"healthy_components"`
	UnhealthyComponents int    `json:"unhealthy_components"`
	OverallHealth       string `json:"overall_health"`
}

// HealthCheckFunc is a function that checks the health of a component
type HealthCheckFunc func(ctx context.Context) (ComponentHealth, error)

// NewHealthChecker creates a new health checker instance
func NewHealthChecker(postgres *sql.DB, redisClient *redis.Client) *HealthChecker {
	hc := &HealthChecker{
		postgres:     postgres,
		redisClient:  redisClient,
		dependencies: make(map[string]HealthCheckFunc),
		startTime:    time.Now(),
	}

	hc.registerBuiltinChecks()

	return hc
}

// RegisterHealthCheck adds a custom health check, e.g. for the statement provider
func (hc *HealthChecker) RegisterHealthCheck(name string, checkFunc HealthCheckFunc) {
	hc.dependencies[name] = checkFunc
}

// CheckHealth performs a comprehensive health check of all components
func (hc *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	components := make(map[string]ComponentHealth)

	for name, checkFunc := range hc.dependencies {
		componentHealth, err := hc.checkComponentHealth(ctx, name, checkFunc)
		if err != nil {
			componentHealth = ComponentHealth{
				Status:      "unhealthy",
				LastChecked: time.Now(),
				Error:       err.Error(),
			}
		}
		components[name] = componentHealth
	}

	healthyCount := 0
	totalCount := len(components)

	for _, component := range components {
		if component.Status == "healthy" {
			healthyCount++
		}
	}

	var overallStatus string
	switch {
	case healthyCount == totalCount:
		overallStatus = "healthy"
	case healthyCount > totalCount/2:
		overallStatus = "degraded"
	default:
		overallStatus = "unhealthy"
	}

	return &HealthStatus{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Version:    version,
		Uptime:     time.Since(hc.startTime),
		Components: components,
		Summary: HealthSummary{
			TotalComponents:     totalCount,
			HealthyComponents:   healthyCount,
			UnhealthyComponents: totalCount - healthyCount,
			OverallHealth:       overallStatus,
		},
	}
}

// registerBuiltinChecks registers the default health checks
func (hc *HealthChecker) registerBuiltinChecks() {
	hc.dependencies["postgresql"] = func(ctx context.Context) (ComponentHealth, error) {
		start := time.Now()

		if hc.postgres == nil {
			return ComponentHealth{}, fmt.Errorf("PostgreSQL client not initialized")
		}

		var result int
		err := hc.postgres.QueryRowContext(ctx, "SELECT 1").Scan(&result)
		if err != nil {
			return ComponentHealth{}, fmt.Errorf("PostgreSQL query failed: %w", err)
		}

		stats := hc.postgres.Stats()

		return ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start),
			LastChecked:  time.Now(),
			Details: map[string]interface{}{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			},
		}, nil
	}

	hc.dependencies["redis"] = func(ctx context.Context) (ComponentHealth, error) {
		start := time.Now()

		if hc.redisClient == nil {
			return ComponentHealth{}, fmt.Errorf("Redis client not initialized")
		}

		pong, err := hc.redisClient.Ping(ctx).Result()
		if err != nil {
			return ComponentHealth{}, fmt.Errorf("Redis ping failed: %w", err)
		}

		if pong != "PONG" {
			return ComponentHealth{}, fmt.Errorf("Redis ping returned unexpected response: %s", pong)
		}

		return ComponentHealth{
			Status:       "healthy",
			ResponseTime: time.Since(start),
			LastChecked:  time.Now(),
			Details: map[string]interface{}{
				"ping_response": pong,
			},
		}, nil
	}
}

// checkComponentHealth executes a health check for a specific component
func (hc *HealthChecker) checkComponentHealth(ctx context.Context, name string, checkFunc HealthCheckFunc) (ComponentHealth, error) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()

	componentHealth, err := checkFunc(checkCtx)
	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: time.Since(start),
			LastChecked:  time.Now(),
			Error:        err.Error(),
		}, err
	}

	if componentHealth.ResponseTime == 0 {
		componentHealth.ResponseTime = time.Since(start)
	}
	if componentHealth.LastChecked.IsZero() {
		componentHealth.LastChecked = time.Now()
	}

	return componentHealth, nil
}

// GetComponentHealth returns the health of a specific component
func (hc *HealthChecker) GetComponentHealth(ctx context.Context, componentName string) (*ComponentHealth, error) {
	checkFunc, exists := hc.dependencies[componentName]
	if !exists {
		return nil, fmt.Errorf("component '%s' not found", componentName)
	}

	componentHealth, err := hc.checkComponentHealth(ctx, componentName, checkFunc)
	if err != nil {
		return &componentHealth, err
	}

	return &componentHealth, nil
}

// IsHealthy returns true if all components are healthy
func (hc *HealthChecker) IsHealthy(ctx context.Context) bool {
	return hc.CheckHealth(ctx).Status == "healthy"
}

// GetReadinessStatus checks if the system is ready to serve requests.
// Only the storage backends are critical; the statement provider being
// down degrades freshness but cached suggestions can still be served.
func (hc *HealthChecker) GetReadinessStatus(ctx context.Context) *HealthStatus {
	criticalComponents := []string{"postgresql", "redis"}

	readinessStatus := &HealthStatus{
		Timestamp:  time.Now(),
		Version:    version,
		Uptime:     time.Since(hc.startTime),
		Components: make(map[string]ComponentHealth),
	}

	healthyCount := 0
	totalCount := len(criticalComponents)

	for _, componentName := range criticalComponents {
		checkFunc, exists := hc.dependencies[componentName]
		if !exists {
			continue
		}

		componentHealth, err := hc.checkComponentHealth(ctx, componentName, checkFunc)
		if err != nil {
			componentHealth = ComponentHealth{
				Status:      "unhealthy",
				LastChecked: time.Now(),
				Error:       err.Error(),
			}
		}

		readinessStatus.Components[componentName] = componentHealth

		if componentHealth.Status == "healthy" {
			healthyCount++
		}
	}

	if healthyCount == totalCount {
		readinessStatus.Status = "ready"
	} else {
		readinessStatus.Status = "not_ready"
	}

	readinessStatus.Summary = HealthSummary{
		TotalComponents:     totalCount,
		HealthyComponents:   healthyCount,
		UnhealthyComponents: totalCount - healthyCount,
		OverallHealth:       readinessStatus.Status,
	}

	return readinessStatus
}

// GetLivenessStatus checks if the process is alive; no dependency calls
func (hc *HealthChecker) GetLivenessStatus(ctx context.Context) *HealthStatus {
	return &HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    time.Since(hc.startTime),
		Summary: HealthSummary{
			TotalComponents:   1,
			HealthyComponents: 1,
			OverallHealth:     "alive",
		},
	}
}

// StartPeriodicHealthChecks runs health checks in the background
func (hc *HealthChecker) StartPeriodicHealthChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthStatus := hc.CheckHealth(ctx)

			if healthStatus.Status != "healthy" {
				fmt.Printf("Health check warning: %s - %d/%d components healthy\n",
					healthStatus.Status,
					healthStatus.Summary.HealthyComponents,
					healthStatus.Summary.TotalComponents)
			}
		}
	}
}
