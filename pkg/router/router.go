// Package router serves live components over HTTP and WebSocket.
package router

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/metrics"
	"github.com/gabrielmiguelok/eventadmin/pkg/pubsub"
)

// Common router errors.
var (
	ErrNilRenderer = errors.New("component returned nil renderer")
)

// Factory creates a fresh component for one page view or session.
type Factory func() core.Component

// Middleware is a function that wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// ErrorHandler handles errors during the initial render.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Router routes live pages and plain handlers.
type Router struct {
	mux            *http.ServeMux
	middleware     []Middleware
	errorHandler   ErrorHandler
	pubsub         pubsub.PubSub
	topics         []string
	logger         logging.Logger
	title          string
	script         string
	originPatterns []string
	readLimit      int64
	timeouts       core.TimeoutConfig
	metrics        *metrics.Console

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Router.
type Option func(*Router)

// WithPubSub re-renders every live session when a message arrives on any of
// topics.
func WithPubSub(ps pubsub.PubSub, topics ...string) Option {
	return func(r *Router) {
		r.pubsub = ps
		r.topics = topics
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithTitle sets the document title of rendered pages.
func WithTitle(title string) Option {
	return func(r *Router) {
		r.title = title
	}
}

// WithScript sets the URL of the client script loaded by every page.
func WithScript(src string) Option {
	return func(r *Router) {
		r.script = src
	}
}

// WithOriginPatterns allows WebSocket connections from other origins.
func WithOriginPatterns(patterns ...string) Option {
	return func(r *Router) {
		r.originPatterns = patterns
	}
}

// WithReadLimit bounds inbound WebSocket messages.
func WithReadLimit(n int64) Option {
	return func(r *Router) {
		if n > 0 {
			r.readLimit = n
		}
	}
}

// WithTimeouts sets the session timeouts.
func WithTimeouts(t core.TimeoutConfig) Option {
	return func(r *Router) {
		r.timeouts = t
	}
}

// WithMetrics counts live sessions in m.
func WithMetrics(m *metrics.Console) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// New creates a new router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logging.DefaultLogger,
		title:     "Event Admin",
		script:    "/assets/admin.js",
		readLimit: 1 << 20,
		timeouts:  core.DefaultTimeoutConfig(),
		sessions:  make(map[string]*session),
	}
	r.errorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		r.logger.Error("render failed", logging.String("path", req.URL.Path), logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the router. Middleware applies to routes
// registered after the call.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// SetErrorHandler sets the error handler.
func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.errorHandler = handler
}

// Handle registers a standard HTTP handler.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, r.wrap(handler))
}

// HandleFunc registers a standard HTTP handler function.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

// Assets serves fsys under prefix.
func (r *Router) Assets(prefix string, fsys fs.FS) {
	prefix = "/" + strings.Trim(prefix, "/") + "/"
	r.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.FS(fsys))))
}

// Live registers a live page at path.
func (r *Router) Live(path string, factory Factory) {
	r.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if isWebSocketRequest(req) {
			r.serveSocket(w, req, factory)
			return
		}
		r.renderPage(w, req, factory)
	}))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Sessions returns the number of live sessions.
func (r *Router) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown ends every live session and waits for them to terminate or for
// ctx to expire.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	live := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.RUnlock()

	for _, s := range live {
		s.shutdown()
	}
	for _, s := range live {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *Router) wrap(h http.Handler) http.Handler {
	r.mu.RLock()
	middleware := make([]Middleware, len(r.middleware))
	copy(middleware, r.middleware)
	r.mu.RUnlock()

	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

var shell = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="{{.Script}}" defer></script>
</head>
<body>
<main id="live" data-live="{{.Live}}">{{.Content}}</main>
</body>
</html>
`))

// renderPage mounts a throwaway component and renders it inside the page
// shell. The browser script then opens a session at the same URL.
func (r *Router) renderPage(w http.ResponseWriter, req *http.Request, factory Factory) {
	ctx := req.Context()
	component := factory()

	if err := component.Mount(ctx, extractParams(req), extractSession(req)); err != nil {
		r.errorHandler(w, req, err)
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	renderer := component.Render(ctx)
	if renderer == nil {
		r.errorHandler(w, req, ErrNilRenderer)
		return
	}
	var buf bytes.Buffer
	if err := renderer.Render(ctx, &buf); err != nil {
		r.errorHandler(w, req, err)
		return
	}

	live := req.URL.Path
	if req.URL.RawQuery != "" {
		live += "?" + req.URL.RawQuery
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := shell.Execute(w, map[string]any{
		"Title":   r.title,
		"Script":  r.script,
		"Live":    live,
		"Content": template.HTML(buf.String()),
	})
	if err != nil {
		r.logger.Warn("failed to write page", logging.Err(err))
	}
}

func (r *Router) serveSocket(w http.ResponseWriter, req *http.Request, factory Factory) {
	conn, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: r.originPatterns,
	})
	if err != nil {
		r.logger.Warn("websocket accept failed", logging.Err(err))
		return
	}
	conn.SetReadLimit(r.readLimit)

	component := factory()
	id := uuid.NewString()
	logger := r.logger.With(
		logging.String("session", id),
		logging.String("component", component.Name()),
	)
	// Sessions end on close or Shutdown, not on request cancellation.
	ctx := logging.ContextWithLogger(context.WithoutCancel(req.Context()), logger)
	s := newSession(ctx, id, component, conn, r.timeouts, logger)

	var subs []pubsub.Subscription
	if r.pubsub != nil {
		for _, topic := range r.topics {
			sub, err := r.pubsub.Subscribe(topic, func([]byte) { s.markChanged() })
			if err != nil {
				logger.Warn("subscribe failed", logging.String("topic", topic), logging.Err(err))
				continue
			}
			subs = append(subs, sub)
		}
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	r.metrics.SessionOpened()

	logger.Debug("session started")
	reason := s.run(extractParams(req), extractSession(req))

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	r.metrics.SessionClosed(reason.String())

	if err := component.Terminate(context.Background(), reason); err != nil {
		logger.Warn("terminate failed", logging.Err(err))
	}
	s.close(reason)
	logger.Debug("session ended", logging.String("reason", reason.String()))
}

// extractSession describes the admin behind the request.
func extractSession(req *http.Request) core.Session {
	session := core.Session{"remote_addr": req.RemoteAddr}
	if user, _, ok := req.BasicAuth(); ok {
		session["user"] = user
	} else if user := req.Header.Get("X-Forwarded-User"); user != "" {
		session["user"] = user
	}
	if id := GetRequestID(req.Context()); id != "" {
		session["request_id"] = id
	}
	return session
}

// extractParams extracts the first value of every query parameter.
func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

// isWebSocketRequest checks if this is a WebSocket upgrade request.
func isWebSocketRequest(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Upgrade"), "websocket")
}
