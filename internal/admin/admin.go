// Package admin implements the console's creation wizards and the
// notification views as live components.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/metrics"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
	"github.com/gabrielmiguelok/eventadmin/pkg/state"
)

// Backend is the subset of the admin API the wizards call. *api.Client
// implements it.
type Backend interface {
	CreateEvent(ctx context.Context, e api.NewEvent) (api.Created, error)
	CreateSeries(ctx context.Context, s api.NewSeries) (api.Created, error)
	CreateTheme(ctx context.Context, t api.NewTheme) (api.Created, error)
	CreateUser(ctx context.Context, u api.NewUser) error
	CreateGroup(ctx context.Context, g api.NewGroup) error
	CreateACL(ctx context.Context, a api.NewACL) (api.Created, error)
	UpdateScheduling(ctx context.Context, changes []api.SchedulingChange) error
	StartTask(ctx context.Context, t api.NewTask) error

	Workflows(ctx context.Context, tag string) ([]api.Workflow, error)
	Agents(ctx context.Context) ([]api.Agent, error)
	Roles(ctx context.Context) ([]api.Role, error)
	Themes(ctx context.Context) ([]api.Theme, error)
	Events(ctx context.Context, filter string) ([]api.Event, error)
}

var _ Backend = (*api.Client)(nil)

// Deps are the services shared by every admin view.
type Deps struct {
	Backend Backend
	Notify  *notify.Store

	// Checker runs the pre-submit conflict check. Nil skips it.
	Checker *schedule.Checker

	// Drafts persists partially filled wizards. Nil disables resuming.
	Drafts   state.Store
	DraftTTL time.Duration

	// Metrics counts submissions and conflict checks. Nil disables counting.
	Metrics *metrics.Console

	Location *time.Location
	Logger   logging.Logger
}

func (d Deps) location() *time.Location {
	if d.Location == nil {
		return time.Local
	}
	return d.Location
}

func (d Deps) logger() logging.Logger {
	if d.Logger == nil {
		return logging.DefaultLogger
	}
	return d.Logger
}

// Lookups are the option lists a wizard loads from the backend on mount.
type Lookups struct {
	Workflows []api.Workflow
	Agents    []api.Agent
	Roles     []api.Role
	Themes    []api.Theme
	Events    []api.Event
}

// Env is what a wizard definition sees while building fields and binding
// input: the loaded option lists and the console time zone.
type Env struct {
	Lookups
	Location *time.Location
}

func (e Env) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

// Workflow returns the workflow with id.
func (l Lookups) Workflow(id string) (api.Workflow, bool) {
	for _, wf := range l.Workflows {
		if wf.ID == id {
			return wf, true
		}
	}
	return api.Workflow{}, false
}

// Agent returns the capture agent named name.
func (l Lookups) Agent(name string) (api.Agent, bool) {
	for _, a := range l.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return api.Agent{}, false
}

// Event returns the listed event with id.
func (l Lookups) Event(id string) (api.Event, bool) {
	for _, e := range l.Events {
		if e.ID == id {
			return e, true
		}
	}
	return api.Event{}, false
}

// lookup names one option list.
type lookup int

const (
	needWorkflows lookup = 1 << iota
	needAgents
	needRoles
	needThemes
	needEvents
)

// Workflow tags used when listing workflows.
const (
	tagUpload = "upload"
	tagTasks  = "archive"
)

// loadLookups fetches the lists in need. The first failure aborts the load.
func loadLookups(ctx context.Context, b Backend, need lookup, workflowTag string) (Lookups, error) {
	var (
		l   Lookups
		err error
	)
	if need&needWorkflows != 0 {
		if l.Workflows, err = b.Workflows(ctx, workflowTag); err != nil {
			return l, fmt.Errorf("load workflows: %w", err)
		}
	}
	if need&needAgents != 0 {
		if l.Agents, err = b.Agents(ctx); err != nil {
			return l, fmt.Errorf("load capture agents: %w", err)
		}
	}
	if need&needRoles != 0 {
		if l.Roles, err = b.Roles(ctx); err != nil {
			return l, fmt.Errorf("load roles: %w", err)
		}
	}
	if need&needThemes != 0 {
		if l.Themes, err = b.Themes(ctx); err != nil {
			return l, fmt.Errorf("load themes: %w", err)
		}
	}
	if need&needEvents != 0 {
		if l.Events, err = b.Events(ctx, ""); err != nil {
			return l, fmt.Errorf("load events: %w", err)
		}
	}
	return l, nil
}
