package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnexpectedResponse is wrapped by StatusError.
	ErrUnexpectedResponse = errors.New("unexpected backend response")

	// ErrEmptyConflict is a conflict response that names no events.
	ErrEmptyConflict = errors.New("api: conflict response without events")
)

// StatusError is a backend response with a status the caller did not accept.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func newStatusError(method, path string, status int, body []byte) *StatusError {
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	return &StatusError{Method: method, Path: path, StatusCode: status, Body: text}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedResponse
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == code
}
