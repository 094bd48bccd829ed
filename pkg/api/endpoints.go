package api

import (
	"context"
	"net/http"
	"net/url"
)

// Backend paths.
const (
	PathEvents         = "/admin-ng/event/events.json"
	PathNewEvent       = "/admin-ng/event/new"
	PathEventConflicts = "/admin-ng/event/new/conflicts"
	PathBulkUpdate     = "/admin-ng/event/bulk/update"
	PathBulkConflicts  = "/admin-ng/event/bulk/conflicts"
	PathWorkflows      = "/admin-ng/event/new/processing"
	PathNewSeries      = "/admin-ng/series/new"
	PathThemes         = "/admin-ng/themes/themes.json"
	PathNewTheme       = "/admin-ng/themes"
	PathNewUser        = "/admin-ng/users"
	PathNewGroup       = "/admin-ng/groups"
	PathNewACL         = "/admin-ng/acl"
	PathRoles          = "/admin-ng/acl/roles.json"
	PathAgents         = "/admin-ng/capture-agents/agents.json"
	PathNewTask        = "/admin-ng/tasks/new"
	PathStaticFiles    = "/staticfiles"
	PathHealth         = "/info/health"
)

// CreateEvent creates an event. Source times are sent in the client's zone.
func (c *Client) CreateEvent(ctx context.Context, e NewEvent) (Created, error) {
	e.Source.Start = c.local(e.Source.Start)
	e.Source.End = c.local(e.Source.End)
	if e.Source.Repeat != nil {
		r := *e.Source.Repeat
		r.Until = c.local(r.Until)
		e.Source.Repeat = &r
	}
	var out Created
	err := c.sendJSON(ctx, http.MethodPost, PathNewEvent, e, &out, http.StatusCreated)
	return out, err
}

// CreateSeries creates a series.
func (c *Client) CreateSeries(ctx context.Context, s NewSeries) (Created, error) {
	var out Created
	err := c.sendJSON(ctx, http.MethodPost, PathNewSeries, s, &out, http.StatusCreated)
	return out, err
}

// CreateTheme creates a theme.
func (c *Client) CreateTheme(ctx context.Context, t NewTheme) (Created, error) {
	var out Created
	err := c.sendJSON(ctx, http.MethodPost, PathNewTheme, t, &out, http.StatusCreated, http.StatusOK)
	return out, err
}

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, u NewUser) error {
	return c.sendJSON(ctx, http.MethodPost, PathNewUser, u, nil, http.StatusCreated)
}

// CreateGroup creates a group.
func (c *Client) CreateGroup(ctx context.Context, g NewGroup) error {
	return c.sendJSON(ctx, http.MethodPost, PathNewGroup, g, nil, http.StatusCreated)
}

// CreateACL creates an access policy template.
func (c *Client) CreateACL(ctx context.Context, a NewACL) (Created, error) {
	var out Created
	err := c.sendJSON(ctx, http.MethodPost, PathNewACL, a, &out, http.StatusCreated, http.StatusOK)
	return out, err
}

// UpdateScheduling reschedules several events at once.
func (c *Client) UpdateScheduling(ctx context.Context, changes []SchedulingChange) error {
	local := make([]SchedulingChange, len(changes))
	for i, ch := range changes {
		ch.Start = c.local(ch.Start)
		ch.End = c.local(ch.End)
		local[i] = ch
	}
	return c.sendJSON(ctx, http.MethodPut, PathBulkUpdate, local, nil, http.StatusOK, http.StatusNoContent)
}

// StartTask runs a workflow on existing events.
func (c *Client) StartTask(ctx context.Context, t NewTask) error {
	return c.sendJSON(ctx, http.MethodPost, PathNewTask, t, nil, http.StatusCreated)
}

// Workflows lists the workflow definitions tagged tag.
func (c *Client) Workflows(ctx context.Context, tag string) ([]Workflow, error) {
	var out []Workflow
	var q url.Values
	if tag != "" {
		q = url.Values{"tags": {tag}}
	}
	err := c.getJSON(ctx, PathWorkflows, q, &out)
	return out, err
}

// Agents lists the capture agents.
func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	var out []Agent
	err := c.getJSON(ctx, PathAgents, nil, &out)
	return out, err
}

// Roles lists the assignable roles.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var out []Role
	err := c.getJSON(ctx, PathRoles, nil, &out)
	return out, err
}

// Themes lists the themes.
func (c *Client) Themes(ctx context.Context) ([]Theme, error) {
	var out []Theme
	err := c.getJSON(ctx, PathThemes, nil, &out)
	return out, err
}

// Events lists events, optionally filtered by the backend's filter syntax.
func (c *Client) Events(ctx context.Context, filter string) ([]Event, error) {
	var out []Event
	var q url.Values
	if filter != "" {
		q = url.Values{"filter": {filter}}
	}
	err := c.getJSON(ctx, PathEvents, q, &out)
	return out, err
}
