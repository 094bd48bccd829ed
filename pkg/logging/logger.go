// Package logging provides structured logging for the admin console.
package logging

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// Field represents a log field.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Wizard tags a log line with the wizard kind and instance id.
func Wizard(kind, id string) Field {
	return Field{Key: "wizard", Value: kind + "/" + id}
}

// Page tags a log line with a wizard page name.
func Page(name string) Field {
	return Field{Key: "page", Value: name}
}

// Endpoint tags a log line with a backend endpoint.
func Endpoint(method, path string) Field {
	return Field{Key: "endpoint", Value: method + " " + path}
}

// SlogLogger implements Logger using slog.
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

type loggerConfig struct {
	level  slog.Level
	output io.Writer
	json   bool
}

// LoggerOption configures the logger.
type LoggerOption func(*loggerConfig)

// WithLevel sets the log level.
func WithLevel(level slog.Level) LoggerOption {
	return func(c *loggerConfig) {
		c.level = level
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) LoggerOption {
	return func(c *loggerConfig) {
		c.output = w
	}
}

// WithJSON enables JSON output.
func WithJSON() LoggerOption {
	return func(c *loggerConfig) {
		c.json = true
	}
}

// NewSlogLogger creates a new slog-based logger.
func NewSlogLogger(opts ...LoggerOption) *SlogLogger {
	config := &loggerConfig{
		level:  slog.LevelInfo,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(config)
	}

	handlerOpts := &slog.HandlerOptions{Level: config.level}
	var handler slog.Handler
	if config.json {
		handler = slog.NewJSONHandler(config.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(config.output, handlerOpts)
	}

	return &SlogLogger{
		logger: slog.New(handler),
		ctx:    context.Background(),
	}
}

// ParseLevel maps a config string onto a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) toAttrs(fields []Field) []any {
	attrs := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		attrs = append(attrs, f.Key, f.Value)
	}
	return attrs
}

func (l *SlogLogger) Debug(msg string, fields ...Field) {
	l.logger.DebugContext(l.ctx, msg, l.toAttrs(fields)...)
}

func (l *SlogLogger) Info(msg string, fields ...Field) {
	l.logger.InfoContext(l.ctx, msg, l.toAttrs(fields)...)
}

func (l *SlogLogger) Warn(msg string, fields ...Field) {
	l.logger.WarnContext(l.ctx, msg, l.toAttrs(fields)...)
}

func (l *SlogLogger) Error(msg string, fields ...Field) {
	l.logger.ErrorContext(l.ctx, msg, l.toAttrs(fields)...)
}

// With returns a logger with additional fields.
func (l *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{
		logger: l.logger.With(l.toAttrs(fields)...),
		ctx:    l.ctx,
	}
}

// WithContext returns a logger bound to ctx.
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	return &SlogLogger{
		logger: l.logger,
		ctx:    ctx,
	}
}

type loggerContextKey struct{}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// L returns the logger carried by ctx, or DefaultLogger.
func L(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(Logger); ok && logger != nil {
		return logger
	}
	return DefaultLogger
}

// DefaultLogger is the process-wide fallback logger.
var DefaultLogger Logger = NewSlogLogger()

// SetDefault replaces DefaultLogger.
func SetDefault(logger Logger) {
	DefaultLogger = logger
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field)        {}
func (NopLogger) Info(msg string, fields ...Field)         {}
func (NopLogger) Warn(msg string, fields ...Field)         {}
func (NopLogger) Error(msg string, fields ...Field)        {}
func (l NopLogger) With(fields ...Field) Logger            { return l }
func (l NopLogger) WithContext(ctx context.Context) Logger { return l }

// RequestLogger logs HTTP requests and stores a request-scoped logger in the
// request context.
func RequestLogger(logger Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}

			reqLogger := logger.With(
				String("request_id", reqID),
				String("method", r.Method),
				String("path", r.URL.Path),
			)
			ctx := ContextWithLogger(r.Context(), reqLogger)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			reqLogger.Debug("request completed",
				Int("status", rw.status),
				Duration("duration", time.Since(start)),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("logging: response writer does not support hijacking")
	}
	return hj.Hijack()
}
