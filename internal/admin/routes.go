package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
	"github.com/gabrielmiguelok/eventadmin/pkg/router"
)

// Screen is one entry of the console menu.
type Screen struct {
	Path  string
	Title string
}

// Screens lists the live pages Register mounts, in menu order.
var Screens = []Screen{
	{"/events/new", EventWizard{}.Title()},
	{"/series/new", SeriesWizard{}.Title()},
	{"/themes/new", ThemeWizard{}.Title()},
	{"/users/new", UserWizard{}.Title()},
	{"/groups/new", GroupWizard{}.Title()},
	{"/acls/new", ACLWizard{}.Title()},
	{"/events/scheduling", SchedulingWizard{}.Title()},
	{"/events/tasks", TaskWizard{}.Title()},
	{"/notifications", "Notifications"},
}

// Register mounts every admin screen on r.
func Register(r *router.Router, deps Deps) {
	if deps.Notify == nil {
		deps.Notify = notify.NewStore()
	}
	r.Live("/events/new", func() core.Component { return NewView[EventSnapshot](EventWizard{}, deps) })
	r.Live("/series/new", func() core.Component { return NewView[SeriesSnapshot](SeriesWizard{}, deps) })
	r.Live("/themes/new", func() core.Component { return NewView[ThemeSnapshot](ThemeWizard{}, deps) })
	r.Live("/users/new", func() core.Component { return NewView[UserSnapshot](UserWizard{}, deps) })
	r.Live("/groups/new", func() core.Component { return NewView[GroupSnapshot](GroupWizard{}, deps) })
	r.Live("/acls/new", func() core.Component { return NewView[ACLSnapshot](ACLWizard{}, deps) })
	r.Live("/events/scheduling", func() core.Component { return NewView[SchedulingSnapshot](SchedulingWizard{}, deps) })
	r.Live("/events/tasks", func() core.Component { return NewView[TaskSnapshot](TaskWizard{}, deps) })
	r.Live("/notifications", func() core.Component { return NewNotificationList(deps.Notify) })
	r.Live("/{$}", func() core.Component { return &menu{} })
}

// menu is the start page.
type menu struct {
	core.BaseComponent
}

func (m *menu) Name() string { return "menu" }

func (m *menu) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		bw := bufio.NewWriter(w)
		bw.WriteString(`<nav class="menu"><ul>`)
		for _, s := range Screens {
			fmt.Fprintf(bw, `<li><a href="%s">%s</a></li>`, esc(s.Path), esc(s.Title))
		}
		bw.WriteString(`</ul></nav>`)
		return bw.Flush()
	})
}
