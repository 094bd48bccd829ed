package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
)

// Notification list filters.
const (
	FilterGlobal       = "global"
	FilterGlobalErrors = "errors"
)

// NotificationList shows the global notifications. Its "filter" parameter
// or event switches between all global entries and global errors only.
type NotificationList struct {
	core.BaseComponent

	store  *notify.Store
	filter string
}

// NewNotificationList creates the view over store.
func NewNotificationList(store *notify.Store) *NotificationList {
	return &NotificationList{store: store, filter: FilterGlobal}
}

func (n *NotificationList) Name() string { return "notifications" }

func (n *NotificationList) Mount(ctx context.Context, params core.Params, session core.Session) error {
	n.setFilter(params.GetDefault("filter", FilterGlobal))
	return nil
}

func (n *NotificationList) setFilter(f string) {
	if f == FilterGlobalErrors {
		n.filter = FilterGlobalErrors
		return
	}
	n.filter = FilterGlobal
}

// Entries returns the notifications the current filter selects.
func (n *NotificationList) Entries() []notify.Notification {
	if n.filter == FilterGlobalErrors {
		return n.store.GlobalErrors()
	}
	return n.store.Global()
}

func (n *NotificationList) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	in := forms.Values(payload)
	switch event {
	case "filter":
		n.setFilter(in.String("filter"))
	case "dismiss":
		n.store.Remove(in.Int("id"))
	case "hide":
		n.store.SetHidden(in.Int("id"), true)
	case "clear":
		n.store.ClearByContext(notify.GlobalContext)
	default:
		return fmt.Errorf("unknown event %q", event)
	}
	return nil
}

func (n *NotificationList) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		bw := bufio.NewWriter(w)
		bw.WriteString(`<section class="notification-list">`)
		bw.WriteString(`<nav class="filters">`)
		for _, f := range []struct{ value, label string }{
			{FilterGlobal, "All"},
			{FilterGlobalErrors, "Errors"},
		} {
			class := ""
			if f.value == n.filter {
				class = ` class="active"`
			}
			fmt.Fprintf(bw, `<button type="button"%s data-event="filter" data-filter="%s">%s</button>`, class, f.value, f.label)
		}
		bw.WriteString(`<button type="button" data-event="clear">Clear all</button>`)
		bw.WriteString(`</nav>`)

		entries := n.Entries()
		if len(entries) == 0 {
			bw.WriteString(`<p class="empty">No notifications.</p>`)
		}
		renderNotifications(bw, entries)
		bw.WriteString(`</section>`)
		return bw.Flush()
	})
}
