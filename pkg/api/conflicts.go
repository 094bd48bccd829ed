package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
)

// ConflictRequest is the wire form of a single conflict query.
type ConflictRequest struct {
	EventID string           `json:"id,omitempty"`
	Device  string           `json:"device"`
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"`
	Repeat  *schedule.Repeat `json:"rrule,omitempty"`
}

// BulkConflict lists the conflicts of one event in a bulk query.
type BulkConflict struct {
	EventID   string              `json:"eventId"`
	Conflicts []schedule.Conflict `json:"conflicts"`
}

func (c *Client) conflictRequest(p schedule.Proposal) ConflictRequest {
	req := ConflictRequest{
		EventID: p.ExcludeEventID,
		Device:  p.Device,
		Start:   c.local(p.Start),
		End:     c.local(p.End),
	}
	if p.Repeat != nil {
		r := *p.Repeat
		r.Until = c.local(r.Until)
		req.Repeat = &r
	}
	return req
}

// Conflicts asks the backend for events overlapping p. The backend answers
// 204 when the schedule is free and 409 with the conflicting events. A 409
// naming no events is ErrEmptyConflict.
// Conflicts implements schedule.Source.
func (c *Client) Conflicts(ctx context.Context, p schedule.Proposal) ([]schedule.Conflict, error) {
	r, err := jsonRequest(http.MethodPost, PathEventConflicts, c.conflictRequest(p))
	if err != nil {
		return nil, err
	}
	status, body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusConflict:
		var out []schedule.Conflict
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("api: failed to parse conflicts: %w", err)
		}
		if len(out) == 0 {
			return nil, ErrEmptyConflict
		}
		return out, nil
	default:
		return nil, newStatusError(r.method, r.path, status, body)
	}
}

// BulkConflicts checks many proposals in one request. Each proposal's
// ExcludeEventID names the event being rescheduled. BulkConflicts implements
// schedule.BulkSource.
func (c *Client) BulkConflicts(ctx context.Context, proposals []schedule.Proposal) ([]schedule.Conflict, error) {
	reqs := make([]ConflictRequest, len(proposals))
	for i, p := range proposals {
		reqs[i] = c.conflictRequest(p)
	}
	r, err := jsonRequest(http.MethodPost, PathBulkConflicts, reqs)
	if err != nil {
		return nil, err
	}
	status, body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusConflict:
		var groups []BulkConflict
		if err := json.Unmarshal(body, &groups); err != nil {
			return nil, fmt.Errorf("api: failed to parse bulk conflicts: %w", err)
		}
		var out []schedule.Conflict
		for _, g := range groups {
			out = append(out, g.Conflicts...)
		}
		if len(out) == 0 {
			return nil, ErrEmptyConflict
		}
		return out, nil
	default:
		return nil, newStatusError(r.method, r.path, status, body)
	}
}
