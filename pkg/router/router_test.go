package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/pubsub"
)

type testComponent struct {
	core.BaseComponent

	mu         sync.Mutex
	count      int
	info       string
	params     core.Params
	terminated chan core.TerminateReason
}

func newTestComponent() *testComponent {
	return &testComponent{terminated: make(chan core.TerminateReason, 1)}
}

func (c *testComponent) Name() string { return "test" }

func (c *testComponent) Mount(ctx context.Context, params core.Params, session core.Session) error {
	if params.Get("fail") == "1" {
		return errors.New("mount refused")
	}
	c.mu.Lock()
	c.params = params
	c.mu.Unlock()
	return nil
}

func (c *testComponent) mountedParams() core.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

func (c *testComponent) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p>count=%d info=%s</p>", c.count, c.info)
		return err
	})
}

func (c *testComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "inc":
		c.count++
	case "boom":
		return errors.New("boom")
	case "async":
		c.Go(func(ctx context.Context) any { return "async-done" })
	}
	return nil
}

func (c *testComponent) HandleInfo(ctx context.Context, msg any) error {
	c.info, _ = msg.(string)
	return nil
}

func (c *testComponent) Terminate(ctx context.Context, reason core.TerminateReason) error {
	c.terminated <- reason
	return nil
}

type liveFixture struct {
	mu        sync.Mutex
	router    *Router
	server    *httptest.Server
	ps        *pubsub.MemoryPubSub
	component *testComponent
}

func newLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	f := &liveFixture{ps: pubsub.NewMemoryPubSub(8)}
	f.router = New(WithPubSub(f.ps, "notifications"), WithLogger(logging.NopLogger{}))

	f.router.Live("/live", func() core.Component {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.component = newTestComponent()
		return f.component
	})
	f.server = httptest.NewServer(f.router)
	t.Cleanup(func() {
		f.server.Close()
		f.ps.Close()
	})
	return f
}

func (f *liveFixture) comp() *testComponent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.component
}

func (f *liveFixture) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/live?wizard=abc"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) Outbound {
	t.Helper()
	var out Outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out
}

func expectRender(t *testing.T, ctx context.Context, conn *websocket.Conn, want string) {
	t.Helper()
	out := readFrame(t, ctx, conn)
	if out.Type != "render" || !strings.Contains(out.HTML, want) {
		t.Fatalf("expected render containing %q, got %+v", want, out)
	}
}

func waitReason(t *testing.T, c *testComponent) core.TerminateReason {
	t.Helper()
	select {
	case reason := <-c.terminated:
		return reason
	case <-time.After(2 * time.Second):
		t.Fatal("component was not terminated")
		return 0
	}
}

func TestRouter_InitialRender(t *testing.T) {
	r := New(WithLogger(logging.NopLogger{}), WithTitle("Admin"))
	var component *testComponent
	r.Live("/page", func() core.Component {
		component = newTestComponent()
		return component
	})

	req := httptest.NewRequest(http.MethodGet, "/page?wizard=w1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Admin</title>",
		`<script src="/assets/admin.js" defer></script>`,
		`data-live="/page?wizard=w1"`,
		"<p>count=0 info=</p>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got:\n%s", want, body)
		}
	}
	if component.mountedParams().Get("wizard") != "w1" {
		t.Errorf("expected query params passed to Mount, got %v", component.params)
	}
	if reason := waitReason(t, component); reason != core.TerminateNormal {
		t.Errorf("expected normal termination, got %v", reason)
	}
}

func TestRouter_InitialRenderMountError(t *testing.T) {
	r := New(WithLogger(logging.NopLogger{}))
	r.Live("/page", func() core.Component { return newTestComponent() })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page?fail=1", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestRouter_SessionEvents(t *testing.T) {
	f := newLiveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx)
	expectRender(t, ctx, conn, "count=0")

	if err := wsjson.Write(ctx, conn, Inbound{Event: "inc"}); err != nil {
		t.Fatal(err)
	}
	expectRender(t, ctx, conn, "count=1")

	if f.comp().mountedParams().Get("wizard") != "abc" {
		t.Errorf("expected wizard param abc, got %v", f.comp().mountedParams())
	}
}

func TestRouter_SessionHandlerError(t *testing.T) {
	f := newLiveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx)
	expectRender(t, ctx, conn, "count=0")

	wsjson.Write(ctx, conn, Inbound{Event: "boom"})
	out := readFrame(t, ctx, conn)
	if out.Type != "error" || out.Message != "boom" {
		t.Errorf("expected error frame 'boom', got %+v", out)
	}
	expectRender(t, ctx, conn, "count=0")
}

func TestRouter_SessionAsyncResult(t *testing.T) {
	f := newLiveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx)
	expectRender(t, ctx, conn, "count=0")

	wsjson.Write(ctx, conn, Inbound{Event: "async"})
	expectRender(t, ctx, conn, "count=0")
	expectRender(t, ctx, conn, "info=async-done")
}

func TestRouter_PubSubRerenders(t *testing.T) {
	f := newLiveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx)
	expectRender(t, ctx, conn, "count=0")

	if err := f.ps.Publish("notifications", []byte("changed")); err != nil {
		t.Fatal(err)
	}
	expectRender(t, ctx, conn, "count=0")
}

func TestRouter_SessionClose(t *testing.T) {
	f := newLiveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx)
	expectRender(t, ctx, conn, "count=0")
	conn.Close(websocket.StatusNormalClosure, "")

	if reason := waitReason(t, f.comp()); reason != core.TerminateNormal {
		t.Errorf("expected normal termination, got %v", reason)
	}
	if f.comp().Send("late") {
		t.Error("expected messages after termination to be dropped")
	}
}

func TestRouter_Shutdown(t *testing.T) {
	f := newLiveFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := f.dial(t, ctx)
	expectRender(t, ctx, conn, "count=0")
	if f.router.Sessions() != 1 {
		t.Fatalf("expected 1 live session, got %d", f.router.Sessions())
	}

	if err := f.router.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if reason := waitReason(t, f.comp()); reason != core.TerminateShutdown {
		t.Errorf("expected shutdown termination, got %v", reason)
	}
	if f.router.Sessions() != 0 {
		t.Errorf("expected no live sessions, got %d", f.router.Sessions())
	}

	var out Outbound
	if err := wsjson.Read(ctx, conn, &out); err == nil {
		t.Error("expected the connection to be closed")
	}
}
