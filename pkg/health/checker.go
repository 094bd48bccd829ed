// Package health reports whether the console and its backend are usable.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status     Status `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// Check defines a single health check.
type Check struct {
	Name     string
	Check    func(ctx context.Context) error
	Timeout  time.Duration
	Critical bool // If true, failure makes overall status unhealthy
}

// Checker manages health checks for the application.
type Checker struct {
	checks  []Check
	version string
	now     func() time.Time
	mu      sync.RWMutex
}

// NewChecker creates a checker reporting version.
func NewChecker(version string) *Checker {
	return &Checker{version: version, now: time.Now}
}

// AddCheck adds a check whose failure degrades the status.
func (hc *Checker) AddCheck(name string, check func(context.Context) error, timeout time.Duration) {
	hc.add(Check{Name: name, Check: check, Timeout: timeout})
}

// AddCriticalCheck adds a check whose failure makes the status unhealthy.
func (hc *Checker) AddCriticalCheck(name string, check func(context.Context) error, timeout time.Duration) {
	hc.add(Check{Name: name, Check: check, Timeout: timeout, Critical: true})
}

func (hc *Checker) add(c Check) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, c)
}

// Check runs all checks concurrently and returns the overall status.
func (hc *Checker) Check(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	checks := make([]Check, len(hc.checks))
	copy(checks, hc.checks)
	hc.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: hc.now(),
		Version:   hc.version,
	}

	type namedResult struct {
		name     string
		result   CheckResult
		critical bool
	}

	results := make(chan namedResult, len(checks))
	var wg sync.WaitGroup

	for _, c := range checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()

			timeout := check.Timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := check.Check(checkCtx)

			result := CheckResult{
				Status:     StatusHealthy,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				result.Status = StatusUnhealthy
				result.Error = err.Error()
			}
			results <- namedResult{name: check.Name, result: result, critical: check.Critical}
		}(c)
	}

	wg.Wait()
	close(results)

	for r := range results {
		status.Checks[r.name] = r.result
		if r.result.Status == StatusHealthy {
			continue
		}
		if r.critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}
	return status
}

// LivenessHandler answers 200 while the process runs.
func (hc *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"timestamp": hc.now(),
		})
	})
}

// ReadinessHandler answers 200 unless a critical check fails, then 503.
func (hc *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := hc.Check(r.Context())
		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// BackendCheck reports the admin backend reachable when ping succeeds.
func BackendCheck(ping func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("backend unreachable: %w", err)
		}
		return nil
	}
}

// BreakerCheck fails while the backend circuit is open.
func BreakerCheck(state func() fmt.Stringer) func(context.Context) error {
	return func(ctx context.Context) error {
		if s := state().String(); s == "open" {
			return fmt.Errorf("backend circuit is %s", s)
		}
		return nil
	}
}

// SessionsCheck fails when live sessions reach max.
func SessionsCheck(count func() int, max int) func(context.Context) error {
	return func(ctx context.Context) error {
		if n := count(); max > 0 && n >= max {
			return fmt.Errorf("%d live sessions, limit %d", n, max)
		}
		return nil
	}
}
