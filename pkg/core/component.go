// Package core defines live components and the console configuration.
package core

import (
	"context"
	"io"
	"sync"
)

// Component is a stateful server-side view driven by browser events.
// All methods of one component are called from a single session goroutine.
type Component interface {
	// Name returns the component type, used in logs.
	Name() string

	// Mount is called once before the first render.
	Mount(ctx context.Context, params Params, session Session) error

	// Render returns the current HTML representation of the component.
	Render(ctx context.Context) Renderer

	// HandleEvent processes a browser event such as a click or form change.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// HandleInfo processes a message produced on the server, typically the
	// result of work started with BaseComponent.Go.
	HandleInfo(ctx context.Context, msg any) error

	// Terminate is called when the session ends.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer writes HTML.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc is an adapter to allow ordinary functions to be used as Renderers.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params contains URL query parameters of the connection.
type Params map[string]string

// Get returns a parameter value or empty string if not found.
func (p Params) Get(key string) string {
	return p[key]
}

// GetDefault returns a parameter value or the default if not found.
func (p Params) GetDefault(key, defaultValue string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return defaultValue
}

// Session contains data about the authenticated admin.
type Session map[string]any

// Get returns a session value.
func (s Session) Get(key string) any {
	return s[key]
}

// GetString returns a session value as string.
func (s Session) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// TerminateReason indicates why a component is being terminated.
type TerminateReason int

const (
	// TerminateNormal indicates clean disconnection.
	TerminateNormal TerminateReason = iota
	// TerminateShutdown indicates server shutdown.
	TerminateShutdown
	// TerminateError indicates termination due to an error.
	TerminateError
	// TerminateTimeout indicates termination due to inactivity.
	TerminateTimeout
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateNormal:
		return "normal"
	case TerminateShutdown:
		return "shutdown"
	case TerminateError:
		return "error"
	case TerminateTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Dispatcher delivers server-side messages to a component's HandleInfo.
type Dispatcher interface {
	// Dispatch queues msg. It reports false when the session has ended and
	// the message was dropped.
	Dispatch(msg any) bool
}

// Attacher is implemented by components that run background work. The
// session calls Attach before Mount; ctx is cancelled when the session ends.
type Attacher interface {
	Attach(ctx context.Context, d Dispatcher)
}

// BaseComponent provides default implementations for Component methods and
// session-scoped background work. Embed it by value.
type BaseComponent struct {
	mu         sync.Mutex
	ctx        context.Context
	dispatcher Dispatcher
	wg         sync.WaitGroup
}

// Attach binds the component to a session.
func (bc *BaseComponent) Attach(ctx context.Context, d Dispatcher) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.ctx = ctx
	bc.dispatcher = d
}

// Context returns the session context, or a cancelled context when the
// component is not attached.
func (bc *BaseComponent) Context() context.Context {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.ctx == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return bc.ctx
}

// Go runs fn in its own goroutine with the session context and delivers its
// result to HandleInfo. Results arriving after the session ended are dropped.
// Go reports false when there is no live session to run in.
func (bc *BaseComponent) Go(fn func(ctx context.Context) any) bool {
	bc.mu.Lock()
	ctx, d := bc.ctx, bc.dispatcher
	bc.mu.Unlock()

	if ctx == nil || d == nil || ctx.Err() != nil {
		return false
	}

	bc.wg.Add(1)
	go func() {
		defer bc.wg.Done()
		msg := fn(ctx)
		if msg == nil || ctx.Err() != nil {
			return
		}
		d.Dispatch(msg)
	}()
	return true
}

// Send delivers msg to HandleInfo without running anything.
func (bc *BaseComponent) Send(msg any) bool {
	bc.mu.Lock()
	d := bc.dispatcher
	bc.mu.Unlock()
	if d == nil {
		return false
	}
	return d.Dispatch(msg)
}

// Wait blocks until every goroutine started with Go has returned.
func (bc *BaseComponent) Wait() {
	bc.wg.Wait()
}

// Name returns an empty string (override in your component).
func (bc *BaseComponent) Name() string {
	return ""
}

// Mount does nothing by default.
func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

// HandleEvent does nothing by default.
func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

// HandleInfo does nothing by default.
func (bc *BaseComponent) HandleInfo(ctx context.Context, msg any) error {
	return nil
}

// Terminate does nothing by default.
func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}
