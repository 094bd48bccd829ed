package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(WithOutput(&buf), WithJSON(), WithLevel(slog.LevelInfo))

	logger.Debug("hidden")
	logger.With(Wizard("event", "w1")).Warn("submit failed",
		Page("summary"),
		Endpoint("POST", "/admin-ng/event/new"),
		Err(errors.New("boom")),
		Int("status", 500),
	)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	for key, want := range map[string]any{
		"msg":      "submit failed",
		"level":    "WARN",
		"wizard":   "event/w1",
		"page":     "summary",
		"endpoint": "POST /admin-ng/event/new",
		"error":    "boom",
		"status":   float64(500),
	} {
		if got[key] != want {
			t.Errorf("expected %s=%v, got %v", key, want, got[key])
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestContextLogger(t *testing.T) {
	if L(context.Background()) != DefaultLogger {
		t.Error("expected DefaultLogger without a context logger")
	}
	nop := NopLogger{}
	if L(ContextWithLogger(context.Background(), nop)) != Logger(nop) {
		t.Error("expected the context logger")
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(WithOutput(&buf), WithJSON(), WithLevel(slog.LevelDebug))

	var inner Logger
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = L(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/events/new", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if inner == DefaultLogger || inner == nil {
		t.Error("expected a request scoped logger in the handler context")
	}
	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["request_id"] != "req-1" || lines[0]["path"] != "/events/new" || lines[0]["status"] != float64(http.StatusTeapot) {
		t.Errorf("unexpected request line %v", lines[0])
	}
}
