package admin

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

// fakeBackend records every mutation and serves fixed option lists.
type fakeBackend struct {
	mu sync.Mutex

	events     []api.NewEvent
	series     []api.NewSeries
	themes     []api.NewTheme
	users      []api.NewUser
	groups     []api.NewGroup
	acls       []api.NewACL
	scheduling [][]api.SchedulingChange
	tasks      []api.NewTask

	submitErr error
	loadErr   error

	workflows []api.Workflow
	agents    []api.Agent
	roles     []api.Role
	themeList []api.Theme
	eventList []api.Event
}

func (b *fakeBackend) CreateEvent(ctx context.Context, e api.NewEvent) (api.Created, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return api.Created{}, b.submitErr
	}
	b.events = append(b.events, e)
	return api.Created{ID: "event-1"}, nil
}

func (b *fakeBackend) CreateSeries(ctx context.Context, s api.NewSeries) (api.Created, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return api.Created{}, b.submitErr
	}
	b.series = append(b.series, s)
	return api.Created{ID: "series-1"}, nil
}

func (b *fakeBackend) CreateTheme(ctx context.Context, t api.NewTheme) (api.Created, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return api.Created{}, b.submitErr
	}
	b.themes = append(b.themes, t)
	return api.Created{ID: "theme-1"}, nil
}

func (b *fakeBackend) CreateUser(ctx context.Context, u api.NewUser) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return b.submitErr
	}
	b.users = append(b.users, u)
	return nil
}

func (b *fakeBackend) CreateGroup(ctx context.Context, g api.NewGroup) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return b.submitErr
	}
	b.groups = append(b.groups, g)
	return nil
}

func (b *fakeBackend) CreateACL(ctx context.Context, a api.NewACL) (api.Created, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return api.Created{}, b.submitErr
	}
	b.acls = append(b.acls, a)
	return api.Created{ID: "acl-1"}, nil
}

func (b *fakeBackend) UpdateScheduling(ctx context.Context, changes []api.SchedulingChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return b.submitErr
	}
	b.scheduling = append(b.scheduling, changes)
	return nil
}

func (b *fakeBackend) StartTask(ctx context.Context, t api.NewTask) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return b.submitErr
	}
	b.tasks = append(b.tasks, t)
	return nil
}

func (b *fakeBackend) Workflows(ctx context.Context, tag string) ([]api.Workflow, error) {
	return b.workflows, b.loadErr
}

func (b *fakeBackend) Agents(ctx context.Context) ([]api.Agent, error) {
	return b.agents, b.loadErr
}

func (b *fakeBackend) Roles(ctx context.Context) ([]api.Role, error) {
	return b.roles, b.loadErr
}

func (b *fakeBackend) Themes(ctx context.Context) ([]api.Theme, error) {
	return b.themeList, b.loadErr
}

func (b *fakeBackend) Events(ctx context.Context, filter string) ([]api.Event, error) {
	return b.eventList, b.loadErr
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		workflows: []api.Workflow{
			{ID: "fast", Title: "Fast", Fields: []api.WorkflowField{
				{Name: "publish", Type: "checkbox", Default: "true"},
				{Name: "quality", Type: "select", Default: "hd", Options: []string{"sd", "hd"}},
			}},
			{ID: "archive", Title: "Archive only"},
		},
		agents: []api.Agent{{Name: "room-1", Inputs: []string{"camera", "screen"}}},
		roles:  []api.Role{{Name: "ROLE_ADMIN"}, {Name: "ROLE_STUDENT"}},
	}
}

// chanDispatcher hands background results back to the test goroutine.
type chanDispatcher chan any

func (c chanDispatcher) Dispatch(msg any) bool {
	c <- msg
	return true
}

type harness[S wizard.Snapshot] struct {
	t      *testing.T
	ctx    context.Context
	cancel context.CancelFunc
	view   *View[S]
	msgs   chanDispatcher
	store  *notify.Store
}

func testDeps(t *testing.T, b Backend) Deps {
	store := notify.NewStore()
	t.Cleanup(store.Close)
	return Deps{
		Backend:  b,
		Notify:   store,
		Location: time.UTC,
		Logger:   logging.NopLogger{},
	}
}

// mount attaches a view to a test session, mounts it and applies the
// option list load.
func mount[S wizard.Snapshot](t *testing.T, def Definition[S], deps Deps, params core.Params) *harness[S] {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness[S]{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
		view:   NewView(def, deps),
		msgs:   make(chanDispatcher, 8),
		store:  deps.Notify,
	}
	h.view.Attach(ctx, h.msgs)
	if err := h.view.Mount(ctx, params, core.Session{}); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	h.deliver()
	return h
}

// deliver waits for one background result and applies it.
func (h *harness[S]) deliver() {
	h.t.Helper()
	select {
	case msg := <-h.msgs:
		if err := h.view.HandleInfo(h.ctx, msg); err != nil {
			h.t.Fatalf("HandleInfo(%T): %v", msg, err)
		}
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for a background result")
	}
}

func (h *harness[S]) event(name string, payload map[string]any) {
	h.t.Helper()
	if err := h.view.HandleEvent(h.ctx, name, payload); err != nil {
		h.t.Fatalf("HandleEvent(%s): %v", name, err)
	}
}

func (h *harness[S]) page() string {
	return h.view.Controller().Page().Name
}

func (h *harness[S]) render() string {
	h.t.Helper()
	var sb strings.Builder
	if err := h.view.Render(h.ctx).Render(h.ctx, &sb); err != nil {
		h.t.Fatalf("Render: %v", err)
	}
	return sb.String()
}

func keys(list []notify.Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.Key
	}
	return out
}

func hasKey(list []notify.Notification, key string) bool {
	for _, n := range list {
		if n.Key == key {
			return true
		}
	}
	return false
}
