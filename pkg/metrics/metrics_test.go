package metrics

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestConsole_Handler(t *testing.T) {
	c := NewConsole("eventadmin")
	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed("normal")
	c.Submit("event", "success")
	c.Submit("event", "success")
	c.Submit("acl", "conflict")
	c.ConflictCheck("no_conflict")
	c.BackendCall("GET", 200, 20*time.Millisecond)
	c.BackendCall("POST", 0, 10*time.Millisecond)
	c.Upload("stored")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"# TYPE eventadmin_sessions_active gauge",
		"eventadmin_sessions_active 1\n",
		"eventadmin_sessions_total 2\n",
		`eventadmin_sessions_ended_total{reason="normal"} 1`,
		`eventadmin_wizard_submits_total{kind="event",outcome="success"} 2`,
		`eventadmin_wizard_submits_total{kind="acl",outcome="conflict"} 1`,
		`eventadmin_conflict_checks_total{outcome="no_conflict"} 1`,
		`eventadmin_backend_calls_total{method="GET",code="2xx"} 1`,
		`eventadmin_backend_calls_total{method="POST",code="error"} 1`,
		"eventadmin_backend_call_seconds_count 2\n",
		`eventadmin_uploads_total{outcome="stored"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output:\n%s", want, body)
		}
	}
}

func TestConsole_Nil(t *testing.T) {
	var c *Console
	c.SessionOpened()
	c.SessionClosed("normal")
	c.Submit("event", "success")
	c.ConflictCheck("conflicts")
	c.BackendCall("GET", 500, time.Second)
	c.Upload("failed")
}

func TestCounterVec(t *testing.T) {
	cv := NewCounterVec("x", "x", "a", "b")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cv.Inc("1", "2")
		}()
	}
	wg.Wait()

	if got := cv.Value("1", "2"); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
	cv.Inc("1")
	if got := cv.Value("1", ""); got != 1 {
		t.Errorf("expected missing labels to be empty, got %d", got)
	}
	if got := cv.Value("3", "4"); got != 0 {
		t.Errorf("expected 0 for unseen labels, got %d", got)
	}
}

func TestCounter_AddIgnoresNegative(t *testing.T) {
	c := NewCounter("x", "x")
	c.Add(3)
	c.Add(-2)
	if c.Value() != 3 {
		t.Errorf("expected 3, got %d", c.Value())
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram("h", "h")
	if s := h.Stats(); s.Count != 0 || s.Avg != 0 {
		t.Errorf("expected empty stats, got %+v", s)
	}
	for _, v := range []float64{4, 1, 7} {
		h.Observe(v)
	}
	s := h.Stats()
	if s.Count != 3 || s.Sum != 12 || s.Min != 1 || s.Max != 7 || s.Avg != 4 {
		t.Errorf("unexpected stats %+v", s)
	}

	if d := h.Timer().Stop(); d < 0 {
		t.Errorf("expected non-negative duration, got %v", d)
	}
	if h.Stats().Count != 4 {
		t.Errorf("expected the timer to record an observation")
	}
}
