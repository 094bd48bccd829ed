package admin

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
)

const displayLayout = "2006-01-02 15:04"

// Render draws the step indicator, the wizard's notifications and the
// current page.
func (v *View[S]) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		bw := bufio.NewWriter(w)
		c := v.ctrl

		fmt.Fprintf(bw, `<section class="wizard" data-wizard="%s" data-wizard-id="%s">`, esc(c.Kind()), esc(c.ID()))
		fmt.Fprintf(bw, `<h1>%s</h1>`, esc(v.def.Title()))

		renderNotifications(bw, v.deps.Notify.ByContext(c.Context()))

		switch {
		case v.done:
			bw.WriteString(`<div class="wizard-done">`)
			bw.WriteString(`<p>Your changes have been saved.</p>`)
			bw.WriteString(`<button type="button" data-event="restart">Start over</button>`)
			bw.WriteString(`</div></section>`)
			return bw.Flush()
		case c.Closed():
			bw.WriteString(`<div class="wizard-closed">`)
			bw.WriteString(`<button type="button" data-event="restart">Start over</button>`)
			bw.WriteString(`</div></section>`)
			return bw.Flush()
		}

		bw.WriteString(`<ol class="steps">`)
		for _, s := range c.Steps() {
			if !s.Visible {
				continue
			}
			class := "step"
			switch {
			case s.Active:
				class += " active"
			case s.Done:
				class += " done"
			}
			fmt.Fprintf(bw, `<li class="%s">%s</li>`, class, esc(pageLabel(s.Name)))
		}
		bw.WriteString(`</ol>`)

		page := c.Page().Name
		fmt.Fprintf(bw, `<form class="wizard-page" data-page="%s" novalidate>`, esc(page))
		if v.loading {
			bw.WriteString(`<p class="loading">Loading…</p>`)
		}
		if err := forms.RenderAll(bw, v.def.Fields(page, c.Values(), v.env), c.Errors()); err != nil {
			return err
		}
		renderConflicts(bw, v.conflicts, v.env.Location)

		bw.WriteString(`<nav class="wizard-nav">`)
		disabled := func(off bool) string {
			if off {
				return " disabled"
			}
			return ""
		}
		busy := c.Submitting()
		fmt.Fprintf(bw, `<button type="button" data-event="cancel"%s>Cancel</button>`, disabled(busy))
		fmt.Fprintf(bw, `<button type="button" data-event="back"%s>Back</button>`, disabled(busy || c.IsFirst()))
		if c.IsLast() {
			label := "Create"
			if busy {
				label = "Saving…"
			}
			fmt.Fprintf(bw, `<button type="button" class="primary" data-event="submit"%s>%s</button>`,
				disabled(busy || !c.CanAdvance() || v.loadErr), label)
		} else {
			fmt.Fprintf(bw, `<button type="button" class="primary" data-event="next"%s>Next</button>`,
				disabled(busy || !c.CanAdvance()))
		}
		bw.WriteString(`</nav></form></section>`)
		return bw.Flush()
	})
}

func renderNotifications(w *bufio.Writer, list []notify.Notification) {
	w.WriteString(`<div class="notifications">`)
	for _, n := range list {
		if n.Hidden {
			continue
		}
		fmt.Fprintf(w, `<div class="notification notification-%s" data-id="%d">`, esc(string(n.Type)), n.ID)
		fmt.Fprintf(w, `<span>%s</span>`, esc(notify.Text(n)))
		fmt.Fprintf(w, `<button type="button" class="close" data-event="dismiss" data-id="%d">&times;</button>`, n.ID)
		w.WriteString(`</div>`)
	}
	w.WriteString(`</div>`)
}

func renderConflicts(w *bufio.Writer, list []schedule.Conflict, loc *time.Location) {
	if len(list) == 0 {
		return
	}
	w.WriteString(`<table class="conflicts"><thead><tr><th>Event</th><th>Start</th><th>End</th></tr></thead><tbody>`)
	for _, c := range list {
		fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td>%s</td></tr>`,
			esc(c.Title), esc(c.Start.In(loc).Format(displayLayout)), esc(c.End.In(loc).Format(displayLayout)))
	}
	w.WriteString(`</tbody></table>`)
}

// pageLabel turns a page name such as "upload-asset" into "Upload asset".
func pageLabel(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ReplaceAll(name, "-", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

func esc(s string) string {
	return html.EscapeString(s)
}
