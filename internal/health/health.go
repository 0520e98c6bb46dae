package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the service is degraded but operational.
	StatusDegraded Status = "degraded"
)

// DefaultReadinessTimeout bounds all readiness checks of one request.
const DefaultReadinessTimeout = 5 * time.Second

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check represents an individual health check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc performs one readiness check. It must honor ctx.
type CheckFunc func(ctx context.Context) Check

// Checker serves the liveness, health and readiness endpoints.
type Checker struct {
	version   string
	startTime time.Time
	logger    observability.Logger
	timeout   time.Duration
	draining  atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker(version string, logger observability.Logger) *Checker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	GetHealthMetrics().Init()
	return &Checker{
		version:   version,
		startTime: time.Now(),
		logger:    logger,
		timeout:   DefaultReadinessTimeout,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a readiness check under name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a readiness check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// ReplaceChecks swaps every registered check for checks, as done after a
// configuration reload changes the set of endpoints.
func (c *Checker) ReplaceChecks(checks map[string]CheckFunc) {
	next := make(map[string]CheckFunc, len(checks))
	for name, fn := range checks {
		next[name] = fn
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = next
}

// CheckNames returns the registered check names in order.
func (c *Checker) CheckNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDraining marks the process as shutting down. A draining process
// reports unhealthy readiness so load balancers stop routing to it.
func (c *Checker) SetDraining(draining bool) {
	c.draining.Store(draining)
}

// Health returns the health status.
func (c *Checker) Health() HealthResponse {
	GetHealthMetrics().checksTotal.WithLabelValues("liveness").Inc()
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every check concurrently and aggregates the result.
// Any unhealthy check makes the process unhealthy; degraded checks only
// degrade it.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	metrics := GetHealthMetrics()
	metrics.checksTotal.WithLabelValues("readiness").Inc()

	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(checks)+1),
		Timestamp: time.Now(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			check := fn(ctx)
			metrics.setCheckStatus(name, check.Status != StatusUnhealthy)

			if check.Status != StatusHealthy {
				c.logger.Warn("readiness check failed",
					observability.String("check", name),
					observability.String("status", string(check.Status)),
					observability.String("message", check.Message),
				)
			}

			mu.Lock()
			response.Checks[name] = check
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	if c.draining.Load() {
		response.Checks["draining"] = Check{Status: StatusUnhealthy, Message: "shutting down"}
	}

	for _, check := range response.Checks {
		switch check.Status {
		case StatusUnhealthy:
			response.Status = StatusUnhealthy
		case StatusDegraded:
			if response.Status != StatusUnhealthy {
				response.Status = StatusDegraded
			}
		}
	}

	metrics.setCheckStatus("overall", response.Status != StatusUnhealthy)
	return response
}

// HealthHandler returns an HTTP handler for the health endpoint.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		c.writeJSON(w, http.StatusOK, c.Health())
	}
}

// ReadinessHandler returns an HTTP handler for the readiness endpoint.
// It answers 503 while unhealthy.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Readiness(r.Context())

		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.writeJSON(w, statusCode, response)
	}
}

// LivenessHandler returns an HTTP handler for the liveness endpoint.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// RegisterRoutes mounts /health, /ready and /live on mux.
func (c *Checker) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", c.HealthHandler())
	mux.HandleFunc("/ready", c.ReadinessHandler())
	mux.HandleFunc("/live", c.LivenessHandler())
}

func (c *Checker) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.logger.Debug("failed to write health response", observability.Error(err))
	}
}
