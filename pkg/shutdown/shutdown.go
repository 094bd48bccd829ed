// Package shutdown runs ordered cleanup hooks when the console stops.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("shutdown: hooks already ran")

// Hook priorities. Lower runs earlier.
const (
	PriorityHTTP     = 100
	PrioritySessions = 200
	PriorityBroker   = 300
	PriorityStore    = 400
)

// Hook is one step of the shutdown sequence.
type Hook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// Sequence collects hooks and runs them once, in priority order. Hooks with
// equal priority run in registration order.
type Sequence struct {
	timeout time.Duration
	logger  logging.Logger

	mu    sync.Mutex
	hooks []Hook
	ran   bool
}

// New creates a sequence whose hooks share a deadline of timeout.
func New(timeout time.Duration, logger logging.Logger) *Sequence {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Sequence{timeout: timeout, logger: logger}
}

// Add registers a hook.
func (s *Sequence) Add(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, Hook{Name: name, Priority: priority, Fn: fn})
}

// AddCloser registers c.Close as a hook.
func (s *Sequence) AddCloser(name string, priority int, c io.Closer) {
	s.Add(name, priority, func(context.Context) error { return c.Close() })
}

// AddFunc registers a hook that cannot fail.
func (s *Sequence) AddFunc(name string, priority int, fn func()) {
	s.Add(name, priority, func(context.Context) error {
		fn()
		return nil
	})
}

// Run executes every hook. A failing hook does not stop the sequence; the
// errors are joined. Once the deadline passes the remaining hooks are
// skipped.
func (s *Sequence) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	s.ran = true
	hooks := make([]Hook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority < hooks[j].Priority
	})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var errs []error
	for i, h := range hooks {
		if ctx.Err() != nil {
			skipped := make([]string, 0, len(hooks)-i)
			for _, rest := range hooks[i:] {
				skipped = append(skipped, rest.Name)
			}
			s.logger.Warn("shutdown deadline reached", logging.Any("skipped", skipped))
			return errors.Join(append(errs, fmt.Errorf("shutdown: %w", ctx.Err()))...)
		}

		start := time.Now()
		err := h.Fn(ctx)
		if err != nil {
			s.logger.Warn("shutdown hook failed", logging.String("hook", h.Name), logging.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
			continue
		}
		s.logger.Debug("shutdown hook done",
			logging.String("hook", h.Name),
			logging.Duration("duration", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}
