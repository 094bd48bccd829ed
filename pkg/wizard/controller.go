package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
)

// Common wizard errors.
var (
	ErrNoPages          = errors.New("wizard has no pages")
	ErrNoVisiblePage    = errors.New("wizard has no visible page")
	ErrDuplicatePage    = errors.New("duplicate page name")
	ErrUntaggedSnapshot = errors.New("snapshot kind is empty")
	ErrNoSubmitter      = errors.New("wizard has no submit function")
	ErrInvalidPage      = errors.New("current page is invalid")
	ErrNoNextPage       = errors.New("no visible page after the current one")
	ErrNoPreviousPage   = errors.New("no visible page before the current one")
	ErrNotFinalPage     = errors.New("submit is only allowed on the final page")
	ErrSubmitInProgress = errors.New("submit already in progress")
	ErrClosed           = errors.New("wizard is closed")
	ErrInvalidIndex     = errors.New("page index out of range or not visible")
)

// Notifier receives the notifications a wizard raises.
type Notifier interface {
	Create(n notify.Notification) int
}

// Config defines one wizard kind.
type Config[S Snapshot] struct {
	// ID names the wizard instance. Empty generates a fresh id.
	ID string

	Pages   []Page[S]
	Initial S

	// Submit sends the final snapshot to the backend.
	Submit func(ctx context.Context, values S) error

	// Context is the notification context of the wizard's form region.
	Context string

	// SuccessKey and FailureKey are the message keys raised after submit.
	// An empty SuccessKey raises nothing on success.
	SuccessKey string
	FailureKey string

	Notifier Notifier
	Logger   logging.Logger
}

// Controller owns the page index and snapshot of one open wizard. It has a
// single owner and is not safe for concurrent use.
type Controller[S Snapshot] struct {
	id         string
	kind       string
	pages      []Page[S]
	index      int
	values     S
	errs       forms.Errors
	submit     func(ctx context.Context, values S) error
	context    string
	successKey string
	failureKey string
	notifier   Notifier
	logger     logging.Logger
	submitting bool
	closed     bool
}

// New validates cfg and opens a wizard on its first visible page.
func New[S Snapshot](cfg Config[S]) (*Controller[S], error) {
	if len(cfg.Pages) == 0 {
		return nil, ErrNoPages
	}
	if cfg.Initial.Kind() == "" {
		return nil, ErrUntaggedSnapshot
	}
	if cfg.Submit == nil {
		return nil, ErrNoSubmitter
	}
	seen := make(map[string]bool, len(cfg.Pages))
	for _, p := range cfg.Pages {
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePage, p.Name)
		}
		seen[p.Name] = true
	}

	pages := make([]Page[S], len(cfg.Pages))
	copy(pages, cfg.Pages)

	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	c := &Controller[S]{
		id:         id,
		kind:       cfg.Initial.Kind(),
		pages:      pages,
		values:     cfg.Initial,
		errs:       forms.Errors{},
		submit:     cfg.Submit,
		context:    cfg.Context,
		successKey: cfg.SuccessKey,
		failureKey: cfg.FailureKey,
		notifier:   cfg.Notifier,
	}
	c.logger = logger.With(logging.Wizard(c.Kind(), c.id))

	first, ok := c.nextVisible(-1)
	if !ok {
		return nil, ErrNoVisiblePage
	}
	c.index = first
	return c, nil
}

// ID returns the instance id of this wizard.
func (c *Controller[S]) ID() string { return c.id }

// Kind returns the snapshot kind.
func (c *Controller[S]) Kind() string { return c.kind }

// Context returns the notification context of the wizard.
func (c *Controller[S]) Context() string { return c.context }

// Index returns the current page index.
func (c *Controller[S]) Index() int { return c.index }

// Page returns the current page.
func (c *Controller[S]) Page() Page[S] { return c.pages[c.index] }

// Values returns the current snapshot.
func (c *Controller[S]) Values() S { return c.values }

// Errors returns the result of the last validation of the current page.
func (c *Controller[S]) Errors() forms.Errors { return c.errs }

// Closed reports whether the wizard was submitted or closed.
func (c *Controller[S]) Closed() bool { return c.closed }

// Submitting reports whether a submit is in flight.
func (c *Controller[S]) Submitting() bool { return c.submitting }

// CanAdvance reports whether the current page's rule accepts the snapshot.
// It drives the enabled state of the next and submit controls.
func (c *Controller[S]) CanAdvance() bool {
	return !c.closed && !c.submitting && c.pages[c.index].check(c.values).Empty()
}

// IsFirst reports whether no visible page precedes the current one.
func (c *Controller[S]) IsFirst() bool {
	_, ok := c.prevVisible(c.index, false)
	return !ok
}

// IsLast reports whether no visible page follows the current one.
func (c *Controller[S]) IsLast() bool {
	_, ok := c.nextVisible(c.index)
	return !ok
}

// Steps describes every page for the step indicator.
func (c *Controller[S]) Steps() []Step {
	steps := make([]Step, len(c.pages))
	for i, p := range c.pages {
		steps[i] = Step{
			Index:   i,
			Name:    p.Name,
			Active:  i == c.index,
			Done:    i < c.index,
			Visible: p.visible(c.values),
		}
	}
	return steps
}

// Validate stores values as the snapshot and applies the current page's
// rule. Only the current page is checked.
func (c *Controller[S]) Validate(values S) forms.Errors {
	if c.closed {
		return forms.Errors{}
	}
	c.values = values
	c.errs = c.pages[c.index].check(values)
	return c.errs
}

// Advance stores values and moves to the next visible page. An invalid
// current page keeps the index and returns ErrInvalidPage.
func (c *Controller[S]) Advance(values S) (int, error) {
	if c.closed {
		return c.index, ErrClosed
	}
	if !c.Validate(values).Empty() {
		return c.index, ErrInvalidPage
	}
	next, ok := c.nextVisible(c.index)
	if !ok {
		return c.index, ErrNoNextPage
	}
	c.logger.Debug("wizard advance",
		logging.Page(c.pages[c.index].Name),
		logging.String("to", c.pages[next].Name),
	)
	c.index = next
	c.errs = forms.Errors{}
	return c.index, nil
}

// Retreat stores values and moves to the previous visible page. skipTwo
// steps over one more visible page, stopping at the first visible page.
// Retreat does not validate.
func (c *Controller[S]) Retreat(values S, skipTwo bool) (int, error) {
	if c.closed {
		return c.index, ErrClosed
	}
	c.values = values
	prev, ok := c.prevVisible(c.index, skipTwo)
	if !ok {
		return c.index, ErrNoPreviousPage
	}
	c.logger.Debug("wizard retreat",
		logging.Page(c.pages[c.index].Name),
		logging.String("to", c.pages[prev].Name),
	)
	c.index = prev
	c.errs = forms.Errors{}
	return c.index, nil
}

// Restore repositions a resumed wizard. The target page must be visible for
// values.
func (c *Controller[S]) Restore(index int, values S) error {
	if c.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(c.pages) || !c.pages[index].visible(values) {
		return ErrInvalidIndex
	}
	c.values = values
	c.index = index
	c.errs = forms.Errors{}
	return nil
}

// BeginSubmit checks that values may be submitted from the current page and
// marks the submit in flight. The caller sends the returned snapshot and
// reports the outcome with FinishSubmit.
func (c *Controller[S]) BeginSubmit(values S) (S, error) {
	var zero S
	switch {
	case c.closed:
		return zero, ErrClosed
	case c.submitting:
		return zero, ErrSubmitInProgress
	}
	errs := c.Validate(values)
	if !c.IsLast() {
		return zero, ErrNotFinalPage
	}
	if !errs.Empty() {
		return zero, ErrInvalidPage
	}
	c.submitting = true
	return c.values, nil
}

// FinishSubmit records the outcome of a submit started with BeginSubmit. On
// success the wizard closes and discards its snapshot. On failure an error
// notification is raised in the wizard's context and the snapshot is kept.
func (c *Controller[S]) FinishSubmit(err error) error {
	if !c.submitting {
		return nil
	}
	c.submitting = false

	if err != nil {
		c.logger.Error("wizard submit failed", logging.Err(err))
		if c.failureKey != "" {
			c.notifyf(notify.TypeError, c.failureKey, c.context)
		}
		return err
	}

	c.logger.Info("wizard submitted")
	if c.successKey != "" {
		c.notifyf(notify.TypeSuccess, c.successKey, notify.GlobalContext)
	}
	c.close()
	return nil
}

// AbortSubmit ends a submit started with BeginSubmit without sending it,
// for instance when a pre-submit check rejects the snapshot. No
// notification is raised.
func (c *Controller[S]) AbortSubmit() {
	c.submitting = false
}

// Submit validates the final page, sends the snapshot and applies the
// outcome. It is BeginSubmit and FinishSubmit in one call.
func (c *Controller[S]) Submit(ctx context.Context, values S) error {
	snapshot, err := c.BeginSubmit(values)
	if err != nil {
		return err
	}
	return c.FinishSubmit(c.submit(ctx, snapshot))
}

// Send calls the configured submit function with snapshot. Callers that run
// the request off the owning goroutine use it between BeginSubmit and
// FinishSubmit.
func (c *Controller[S]) Send(ctx context.Context, snapshot S) error {
	return c.submit(ctx, snapshot)
}

// Close discards the snapshot. Further operations return ErrClosed.
func (c *Controller[S]) Close() {
	if !c.closed {
		c.logger.Debug("wizard closed")
	}
	c.close()
}

func (c *Controller[S]) close() {
	var zero S
	c.closed = true
	c.submitting = false
	c.values = zero
	c.errs = forms.Errors{}
}

func (c *Controller[S]) notifyf(t notify.Type, key, context string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Create(notify.Notification{Key: key, Type: t, Context: context})
}

func (c *Controller[S]) nextVisible(from int) (int, bool) {
	for i := from + 1; i < len(c.pages); i++ {
		if c.pages[i].visible(c.values) {
			return i, true
		}
	}
	return 0, false
}

// prevVisible finds the visible page before from. skipTwo steps over one
// more visible page when there is one.
func (c *Controller[S]) prevVisible(from int, skipTwo bool) (int, bool) {
	prev, ok := c.visibleBefore(from)
	if !ok || !skipTwo {
		return prev, ok
	}
	if extra, ok := c.visibleBefore(prev); ok {
		return extra, true
	}
	return prev, true
}

func (c *Controller[S]) visibleBefore(from int) (int, bool) {
	for i := from - 1; i >= 0; i-- {
		if c.pages[i].visible(c.values) {
			return i, true
		}
	}
	return 0, false
}
