// Package metrics counts what the console does and exposes the counts in
// the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Console holds the console's metrics. A nil *Console records nothing, so
// components can call it unconditionally.
type Console struct {
	SessionsActive *Gauge
	SessionsTotal  *Counter
	SessionsEnded  *CounterVec

	Submits        *CounterVec
	ConflictChecks *CounterVec

	BackendCalls   *CounterVec
	BackendLatency *Histogram

	Uploads *CounterVec

	registry *Registry
}

// NewConsole registers the console metrics under namespace.
func NewConsole(namespace string) *Console {
	reg := NewRegistry(namespace)
	return &Console{
		SessionsActive: reg.Gauge("sessions_active", "Live sessions currently open"),
		SessionsTotal:  reg.Counter("sessions_total", "Live sessions opened"),
		SessionsEnded:  reg.CounterVec("sessions_ended_total", "Live sessions ended", "reason"),

		Submits:        reg.CounterVec("wizard_submits_total", "Wizard submissions", "kind", "outcome"),
		ConflictChecks: reg.CounterVec("conflict_checks_total", "Pre-submit conflict checks", "outcome"),

		BackendCalls:   reg.CounterVec("backend_calls_total", "Calls to the admin backend", "method", "code"),
		BackendLatency: reg.Histogram("backend_call_seconds", "Admin backend call latency"),

		Uploads: reg.CounterVec("uploads_total", "Browser uploads", "outcome"),

		registry: reg,
	}
}

// Handler serves the metrics.
func (c *Console) Handler() http.Handler {
	return c.registry.Handler()
}

// SessionOpened records a new live session.
func (c *Console) SessionOpened() {
	if c == nil {
		return
	}
	c.SessionsActive.Inc()
	c.SessionsTotal.Inc()
}

// SessionClosed records the end of a live session.
func (c *Console) SessionClosed(reason string) {
	if c == nil {
		return
	}
	c.SessionsActive.Dec()
	c.SessionsEnded.Inc(reason)
}

// Submit records the outcome of a wizard submission.
func (c *Console) Submit(kind, outcome string) {
	if c == nil {
		return
	}
	c.Submits.Inc(kind, outcome)
}

// ConflictCheck records the outcome of a conflict check.
func (c *Console) ConflictCheck(outcome string) {
	if c == nil {
		return
	}
	c.ConflictChecks.Inc(outcome)
}

// BackendCall records one backend round trip. A zero status means the call
// failed before a response arrived.
func (c *Console) BackendCall(method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = fmt.Sprintf("%dxx", status/100)
	}
	c.BackendCalls.Inc(method, code)
	c.BackendLatency.ObserveDuration(d)
}

// Upload records a browser upload.
func (c *Console) Upload(outcome string) {
	if c == nil {
		return
	}
	c.Uploads.Inc(outcome)
}

// Registry owns a set of named metrics.
type Registry struct {
	namespace string

	mu      sync.Mutex
	metrics []metric
}

type metric interface {
	write(w io.Writer, name string)
	describe() (name, help, kind string)
}

// NewRegistry creates an empty registry. Metric names are prefixed with
// namespace.
func NewRegistry(namespace string) *Registry {
	return &Registry{namespace: namespace}
}

func (r *Registry) add(m metric) {
	r.mu.Lock()
	r.metrics = append(r.metrics, m)
	r.mu.Unlock()
}

// Counter registers a counter.
func (r *Registry) Counter(name, help string) *Counter {
	c := &Counter{name: name, help: help}
	r.add(c)
	return c
}

// Gauge registers a gauge.
func (r *Registry) Gauge(name, help string) *Gauge {
	g := &Gauge{name: name, help: help}
	r.add(g)
	return g
}

// CounterVec registers a labelled counter.
func (r *Registry) CounterVec(name, help string, labels ...string) *CounterVec {
	cv := NewCounterVec(name, help, labels...)
	r.add(cv)
	return cv
}

// Histogram registers a histogram.
func (r *Registry) Histogram(name, help string) *Histogram {
	h := NewHistogram(name, help)
	r.add(h)
	return h
}

// WriteTo writes every metric in registration order.
func (r *Registry) WriteTo(w io.Writer) {
	r.mu.Lock()
	metrics := make([]metric, len(r.metrics))
	copy(metrics, r.metrics)
	r.mu.Unlock()

	for _, m := range metrics {
		name, help, kind := m.describe()
		full := r.namespace + "_" + name
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", full, help, full, kind)
		m.write(w, full)
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WriteTo(w)
	})
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// NewCounter creates an unregistered counter.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds delta, which must not be negative.
func (c *Counter) Add(delta int64) {
	if delta > 0 {
		c.value.Add(delta)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

func (c *Counter) describe() (string, string, string) { return c.name, c.help, "counter" }

func (c *Counter) write(w io.Writer, name string) {
	fmt.Fprintf(w, "%s %d\n", name, c.Value())
}

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// Set sets the gauge.
func (g *Gauge) Set(v int64) {
	g.value.Store(v)
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.value.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.value.Add(-1)
}

// Value returns the current value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

func (g *Gauge) describe() (string, string, string) { return g.name, g.help, "gauge" }

func (g *Gauge) write(w io.Writer, name string) {
	fmt.Fprintf(w, "%s %d\n", name, g.Value())
}

// CounterVec is a family of counters keyed by label values.
type CounterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]*Counter
}

// NewCounterVec creates an unregistered counter family.
func NewCounterVec(name, help string, labels ...string) *CounterVec {
	return &CounterVec{
		name:   name,
		help:   help,
		labels: labels,
		values: make(map[string]*Counter),
	}
}

// labelSep cannot appear in a label value read from a request.
const labelSep = "\xff"

// With returns the counter for the given label values. Missing values are
// empty and extra values are ignored.
func (cv *CounterVec) With(values ...string) *Counter {
	key := cv.key(values)

	cv.mu.RLock()
	c, ok := cv.values[key]
	cv.mu.RUnlock()
	if ok {
		return c
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	if c, ok := cv.values[key]; ok {
		return c
	}
	c = NewCounter(cv.name, cv.help)
	cv.values[key] = c
	return c
}

func (cv *CounterVec) key(values []string) string {
	vals := make([]string, len(cv.labels))
	copy(vals, values)
	return strings.Join(vals, labelSep)
}

// Inc increments the counter for the given label values.
func (cv *CounterVec) Inc(values ...string) {
	cv.With(values...).Inc()
}

// Value returns the count for the given label values.
func (cv *CounterVec) Value(values ...string) int64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	if c, ok := cv.values[cv.key(values)]; ok {
		return c.Value()
	}
	return 0
}

func (cv *CounterVec) describe() (string, string, string) { return cv.name, cv.help, "counter" }

func (cv *CounterVec) write(w io.Writer, name string) {
	cv.mu.RLock()
	keys := make([]string, 0, len(cv.values))
	for k := range cv.values {
		keys = append(keys, k)
	}
	cv.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		vals := strings.Split(k, labelSep)
		pairs := make([]string, len(cv.labels))
		for i, label := range cv.labels {
			pairs[i] = fmt.Sprintf("%s=%q", label, vals[i])
		}
		cv.mu.RLock()
		v := cv.values[k].Value()
		cv.mu.RUnlock()
		fmt.Fprintf(w, "%s{%s} %d\n", name, strings.Join(pairs, ","), v)
	}
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name string
	help string

	mu    sync.Mutex
	sum   float64
	count int64
	min   float64
	max   float64
}

// NewHistogram creates an unregistered histogram.
func NewHistogram(name, help string) *Histogram {
	return &Histogram{name: name, help: help}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.sum += v
	h.count++
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Timer starts timing an operation. Call Stop on the result to record it.
func (h *Histogram) Timer() *Timer {
	return &Timer{histogram: h, start: time.Now()}
}

// Stats returns a snapshot of the histogram.
func (h *Histogram) Stats() HistogramStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := HistogramStats{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
	if h.count > 0 {
		s.Avg = h.sum / float64(h.count)
	}
	return s
}

func (h *Histogram) describe() (string, string, string) { return h.name, h.help, "summary" }

func (h *Histogram) write(w io.Writer, name string) {
	s := h.Stats()
	fmt.Fprintf(w, "%s_sum %g\n%s_count %d\n%s_min %g\n%s_max %g\n", name, s.Sum, name, s.Count, name, s.Min, name, s.Max)
}

// HistogramStats summarizes a histogram.
type HistogramStats struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64
}

// Timer measures one operation.
type Timer struct {
	histogram *Histogram
	start     time.Time
}

// Stop records the time elapsed since the timer started.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.histogram.ObserveDuration(d)
	return d
}
