package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChecker_AllPass(t *testing.T) {
	hc := NewChecker("1.0.0")
	hc.AddCheck("sessions", func(ctx context.Context) error { return nil }, time.Second)
	hc.AddCriticalCheck("backend", func(ctx context.Context) error { return nil }, time.Second)

	status := hc.Check(context.Background())

	if status.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(status.Checks))
	}
	if status.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", status.Version)
	}
}

func TestChecker_Status(t *testing.T) {
	fail := func(ctx context.Context) error { return errors.New("down") }
	pass := func(ctx context.Context) error { return nil }

	tests := []struct {
		name     string
		setup    func(*Checker)
		want     Status
		wantCode int
	}{
		{"non critical failure degrades", func(hc *Checker) {
			hc.AddCheck("sessions", fail, time.Second)
			hc.AddCriticalCheck("backend", pass, time.Second)
		}, StatusDegraded, http.StatusOK},
		{"critical failure", func(hc *Checker) {
			hc.AddCheck("sessions", pass, time.Second)
			hc.AddCriticalCheck("backend", fail, time.Second)
		}, StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker("test")
			tt.setup(hc)

			rec := httptest.NewRecorder()
			hc.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected status code %d, got %d", tt.wantCode, rec.Code)
			}
			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if status.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, status.Status)
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	hc := NewChecker("test")
	hc.AddCriticalCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	status := hc.Check(context.Background())
	if status.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %s", status.Status)
	}
	if !strings.Contains(status.Checks["slow"].Error, "deadline") {
		t.Errorf("expected deadline error, got %q", status.Checks["slow"].Error)
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := NewChecker("test")
	hc.AddCriticalCheck("backend", func(ctx context.Context) error { return errors.New("down") }, time.Second)

	rec := httptest.NewRecorder()
	hc.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected liveness to ignore checks, got %d", rec.Code)
	}
}

func TestBackendCheck(t *testing.T) {
	check := BackendCheck(func(ctx context.Context) error { return errors.New("connection refused") })
	err := check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "backend unreachable") {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

type state string

func (s state) String() string { return string(s) }

func TestBreakerCheck(t *testing.T) {
	current := state("closed")
	check := BreakerCheck(func() fmt.Stringer { return current })
	if err := check(context.Background()); err != nil {
		t.Errorf("expected closed breaker to pass, got %v", err)
	}
	current = "open"
	if err := check(context.Background()); err == nil {
		t.Error("expected open breaker to fail")
	}
}

func TestSessionsCheck(t *testing.T) {
	n := 3
	check := SessionsCheck(func() int { return n }, 4)
	if err := check(context.Background()); err != nil {
		t.Errorf("expected pass below limit, got %v", err)
	}
	n = 4
	if err := check(context.Background()); err == nil {
		t.Error("expected failure at limit")
	}
	if err := SessionsCheck(func() int { return 100 }, 0)(context.Background()); err != nil {
		t.Errorf("expected no limit when max is 0, got %v", err)
	}
}
