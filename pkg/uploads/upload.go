// Package uploads proxies browser file uploads to the backend's file store.
package uploads

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/metrics"
)

// Common errors.
var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrNoFile          = errors.New("no file uploaded")
	ErrUploadFailed    = errors.New("upload failed")
)

// Uploader stores a file and names it. *api.Client implements it.
type Uploader interface {
	UploadFile(ctx context.Context, filename string, r io.Reader) (api.Upload, error)
}

// Config configures upload behavior.
type Config struct {
	// Accept is a list of allowed MIME types. "video/*" style wildcards
	// match a whole family.
	Accept []string

	// MaxFileSize is the maximum file size in bytes.
	MaxFileSize int64

	// Field is the multipart field carrying the file.
	Field string

	// Metrics counts uploads. Nil disables counting.
	Metrics *metrics.Console
}

// DefaultConfig accepts any media file up to 2GB.
func DefaultConfig() Config {
	return Config{
		Accept:      []string{"video/*", "audio/*", "image/*"},
		MaxFileSize: 2 << 30,
		Field:       "file",
	}
}

// Result is the JSON answer of a successful upload.
type Result struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Handler streams one multipart file to an Uploader without buffering it
// on disk.
type Handler struct {
	config   Config
	uploader Uploader
	logger   logging.Logger
}

// NewHandler creates a handler. Zero config fields take DefaultConfig values.
func NewHandler(cfg Config, uploader Uploader, logger logging.Logger) *Handler {
	def := DefaultConfig()
	if len(cfg.Accept) == 0 {
		cfg.Accept = def.Accept
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = def.MaxFileSize
	}
	if cfg.Field == "" {
		cfg.Field = def.Field
	}
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Handler{config: cfg, uploader: uploader, logger: logger}
}

// ServeHTTP handles upload requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	result, err := h.upload(r)
	if err != nil {
		code := statusFor(err)
		h.logger.Warn("upload rejected",
			logging.Int("status", code),
			logging.Err(err),
		)
		h.config.Metrics.Upload("rejected")
		writeError(w, code, err)
		return
	}
	h.config.Metrics.Upload("stored")

	h.logger.Info("file uploaded",
		logging.String("id", result.ID),
		logging.String("filename", result.Filename),
		logging.Any("size", result.Size),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

func (h *Handler) upload(r *http.Request) (Result, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return Result{}, ErrNoFile
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return Result{}, ErrNoFile
		}
		if err != nil {
			return Result{}, err
		}
		if part.FormName() != h.config.Field || part.FileName() == "" {
			part.Close()
			continue
		}
		defer part.Close()

		body := bufio.NewReaderSize(part, 512)
		contentType := partType(part.Header.Get("Content-Type"))
		if contentType == "" || contentType == "application/octet-stream" {
			head, _ := body.Peek(512)
			contentType = partType(http.DetectContentType(head))
		}
		if !isAllowedType(h.config.Accept, contentType) {
			return Result{}, ErrInvalidFileType
		}

		lr := &limitedReader{r: body, remaining: h.config.MaxFileSize}
		filename := sanitizeFilename(part.FileName())
		uploaded, err := h.uploader.UploadFile(r.Context(), filename, lr)
		if lr.exceeded.Load() {
			return Result{}, ErrFileTooLarge
		}
		if err != nil {
			return Result{}, errors.Join(ErrUploadFailed, err)
		}
		return Result{
			ID:          uploaded.ID,
			Filename:    filename,
			Size:        lr.read.Load(),
			ContentType: contentType,
		}, nil
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// limitedReader fails once more than remaining bytes are read. The
// uploader may read it from another goroutine.
type limitedReader struct {
	r         io.Reader
	remaining int64
	read      atomic.Int64
	exceeded  atomic.Bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.read.Add(int64(n))
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded.Store(true)
		return n, ErrFileTooLarge
	}
	return n, err
}

func partType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mediaType
}

func isAllowedType(accept []string, contentType string) bool {
	for _, allowed := range accept {
		if allowed == "*/*" || allowed == contentType {
			return true
		}
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(contentType, prefix) {
				return true
			}
		}
	}
	return false
}

func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	filename = strings.Map(func(r rune) rune {
		if r == '/' || r == '\x00' || r < 0x20 {
			return '_'
		}
		return r
	}, filename)

	if filename == "." || filename == "/" {
		filename = "upload"
	}
	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		filename = filename[:255-len(ext)] + ext
	}
	return filename
}
