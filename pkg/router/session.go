package router

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
)

// Inbound is a browser event.
type Inbound struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Outbound is a server frame. Type is "render" or "error".
type Outbound struct {
	Type    string `json:"type"`
	HTML    string `json:"html,omitempty"`
	Message string `json:"message,omitempty"`
}

// session owns one component. Every component call happens on the goroutine
// running run.
type session struct {
	id        string
	component core.Component
	conn      *websocket.Conn
	timeouts  core.TimeoutConfig
	logger    logging.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	infos   chan any
	changed chan struct{}
	done    chan struct{}
	stopped atomic.Bool
}

func newSession(ctx context.Context, id string, c core.Component, conn *websocket.Conn, t core.TimeoutConfig, logger logging.Logger) *session {
	ctx, cancel := context.WithCancel(ctx)
	return &session{
		id:        id,
		component: c,
		conn:      conn,
		timeouts:  t,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		infos:     make(chan any, 16),
		changed:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Dispatch implements core.Dispatcher. Messages for an ended session are
// dropped.
func (s *session) Dispatch(msg any) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.infos <- msg:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// markChanged schedules a re-render. Bursts coalesce into one.
func (s *session) markChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *session) shutdown() {
	s.stopped.Store(true)
	s.cancel()
}

func (s *session) run(params core.Params, session core.Session) core.TerminateReason {
	defer s.cancel()

	if a, ok := s.component.(core.Attacher); ok {
		a.Attach(s.ctx, s)
	}

	mountCtx, cancel := s.withTimeout(s.timeouts.Mount)
	err := s.component.Mount(mountCtx, params, session)
	cancel()
	if err != nil {
		s.logger.Error("mount failed", logging.Err(err))
		s.write(Outbound{Type: "error", Message: err.Error()})
		return core.TerminateError
	}
	if err := s.render(); err != nil {
		return core.TerminateError
	}

	events := make(chan Inbound)
	readErr := make(chan error, 1)
	go s.readLoop(events, readErr)

	var idle <-chan time.Time
	var idleTimer *time.Timer
	if s.timeouts.Idle > 0 {
		idleTimer = time.NewTimer(s.timeouts.Idle)
		defer idleTimer.Stop()
		idle = idleTimer.C
	}

	for {
		var err error
		select {
		case ev := <-events:
			if idleTimer != nil {
				idleTimer.Reset(s.timeouts.Idle)
			}
			err = s.handle(func(ctx context.Context) error {
				return s.component.HandleEvent(ctx, ev.Event, ev.Payload)
			})
		case msg := <-s.infos:
			err = s.handle(func(ctx context.Context) error {
				return s.component.HandleInfo(ctx, msg)
			})
		case <-s.changed:
			err = s.render()
		case rerr := <-readErr:
			switch websocket.CloseStatus(rerr) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return core.TerminateNormal
			}
			if s.stopped.Load() {
				return core.TerminateShutdown
			}
			s.logger.Debug("read failed", logging.Err(rerr))
			return core.TerminateError
		case <-idle:
			return core.TerminateTimeout
		case <-s.ctx.Done():
			return core.TerminateShutdown
		}
		if err != nil {
			return core.TerminateError
		}
	}
}

// handle runs fn, reports its error to the browser and re-renders. Only a
// failed write ends the session.
func (s *session) handle(fn func(ctx context.Context) error) error {
	ctx, cancel := s.withTimeout(s.timeouts.Event)
	err := fn(ctx)
	cancel()
	if err != nil {
		s.logger.Warn("handler failed", logging.Err(err))
		if werr := s.write(Outbound{Type: "error", Message: err.Error()}); werr != nil {
			return werr
		}
	}
	return s.render()
}

func (s *session) render() error {
	renderer := s.component.Render(s.ctx)
	if renderer == nil {
		s.logger.Error("render failed", logging.Err(ErrNilRenderer))
		return ErrNilRenderer
	}
	var buf bytes.Buffer
	if err := renderer.Render(s.ctx, &buf); err != nil {
		s.logger.Error("render failed", logging.Err(err))
		return err
	}
	return s.write(Outbound{Type: "render", HTML: buf.String()})
}

func (s *session) write(msg Outbound) error {
	ctx, cancel := s.withTimeout(s.timeouts.WebSocketWrite)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Debug("write failed", logging.Err(err))
		}
		return err
	}
	return nil
}

func (s *session) readLoop(events chan<- Inbound, readErr chan<- error) {
	for {
		var in Inbound
		if err := wsjson.Read(s.ctx, s.conn, &in); err != nil {
			readErr <- err
			return
		}
		if in.Event == "" {
			continue
		}
		select {
		case events <- in:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *session) withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(s.ctx)
	}
	return context.WithTimeout(s.ctx, d)
}

func (s *session) close(reason core.TerminateReason) {
	defer close(s.done)
	switch reason {
	case core.TerminateNormal:
		s.conn.Close(websocket.StatusNormalClosure, "")
	case core.TerminateShutdown:
		s.conn.Close(websocket.StatusGoingAway, "server shutting down")
	case core.TerminateTimeout:
		s.conn.Close(websocket.StatusPolicyViolation, "idle")
	default:
		s.conn.CloseNow()
	}
}
