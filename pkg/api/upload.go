package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// ErrEmptyUploadID is returned when the backend accepts a file without
// naming it.
var ErrEmptyUploadID = errors.New("api: backend returned an empty file id")

// UploadFile streams r to the backend's static file storage as filename.
// Only a 201 answer counts as success; its body carries the file id.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) (Upload, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("BODY", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req := request{
		method:      http.MethodPost,
		path:        PathStaticFiles,
		body:        pr,
		contentType: mw.FormDataContentType(),
	}
	status, body, err := c.do(ctx, req)
	// Unblock the writer if the request ended before the body was consumed.
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return Upload{}, err
	}
	if status != http.StatusCreated {
		return Upload{}, newStatusError(req.method, req.path, status, body)
	}

	id, err := parseUploadID(body)
	if err != nil {
		return Upload{}, err
	}
	return Upload{ID: id, Filename: filename}, nil
}

// parseUploadID accepts either a bare id or {"id": "..."}.
func parseUploadID(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var out Created
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("api: failed to parse upload response: %w", err)
		}
		body = []byte(out.ID)
	}
	id := strings.TrimSpace(string(body))
	if id == "" {
		return "", ErrEmptyUploadID
	}
	return id, nil
}
