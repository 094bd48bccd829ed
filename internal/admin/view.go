package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabrielmiguelok/eventadmin/pkg/core"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
	"github.com/gabrielmiguelok/eventadmin/pkg/state"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

// ErrNoSession is returned when work that needs a live session is requested
// from a component that is not attached to one.
var ErrNoSession = errors.New("admin: no live session")

// Messages names the notification context and result messages of a wizard.
type Messages struct {
	Context string
	Success string
	Failure string
}

// Definition describes one wizard kind: its pages, the fields each page
// shows, how browser input maps onto the snapshot and how the snapshot is
// sent.
type Definition[S wizard.Snapshot] interface {
	Title() string
	Pages() []wizard.Page[S]
	Initial() S
	Messages() Messages

	// Load fetches the option lists the pages need.
	Load(ctx context.Context, b Backend) (Lookups, error)

	// Fields returns the inputs of page bound to values.
	Fields(page string, values S, env Env) []forms.Field

	// Bind applies the input of page to values.
	Bind(page string, values S, in forms.Values, env Env) S

	Submit(ctx context.Context, b Backend, values S) error
}

// Scheduler is implemented by definitions whose snapshot books capture
// devices. Its proposals are checked for conflicts before submit.
type Scheduler[S wizard.Snapshot] interface {
	Proposals(values S, env Env) []schedule.Proposal
}

// Messages delivered to HandleInfo.
type (
	lookupsLoaded struct {
		lookups Lookups
		err     error
	}
	conflictChecked struct {
		result schedule.Result
	}
	submitted struct {
		err error
	}
)

// View is the live component of one wizard instance. The browser sends
// "change", "next", "back", "submit", "cancel", "restart", "dismiss",
// "upload_done" and "upload_failed" events.
type View[S wizard.Snapshot] struct {
	core.BaseComponent

	def    Definition[S]
	deps   Deps
	drafts *state.Drafts[S]
	logger logging.Logger

	ctrl      *wizard.Controller[S]
	env       Env
	input     forms.Values
	loading   bool
	loadErr   bool
	conflicts []schedule.Conflict
	done      bool
}

// NewView creates the component for def.
func NewView[S wizard.Snapshot](def Definition[S], deps Deps) *View[S] {
	if deps.Notify == nil {
		deps.Notify = notify.NewStore()
	}
	v := &View[S]{
		def:    def,
		deps:   deps,
		logger: deps.logger(),
		env:    Env{Location: deps.location()},
		input:  forms.Values{},
	}
	if deps.Drafts != nil {
		v.drafts = state.NewDrafts[S](deps.Drafts, def.Initial().Kind(), state.WithDraftTTL(deps.DraftTTL))
	}
	return v
}

// Name returns the component name.
func (v *View[S]) Name() string {
	return "wizard:" + v.def.Initial().Kind()
}

func (v *View[S]) kind() string {
	return v.def.Initial().Kind()
}

// Controller exposes the wizard state.
func (v *View[S]) Controller() *wizard.Controller[S] {
	return v.ctrl
}

// Mount opens the wizard. A "wizard" parameter naming a saved draft resumes
// it; an unknown or expired draft starts a fresh wizard.
func (v *View[S]) Mount(ctx context.Context, params core.Params, session core.Session) error {
	if err := v.open(ctx, params.Get("wizard")); err != nil {
		return err
	}
	v.loading = v.Go(func(ctx context.Context) any {
		l, err := v.def.Load(ctx, v.deps.Backend)
		return lookupsLoaded{lookups: l, err: err}
	})
	return nil
}

func (v *View[S]) open(ctx context.Context, id string) error {
	var draft *state.Draft[S]
	if id != "" && v.drafts != nil {
		d, err := v.drafts.Load(ctx, id)
		switch {
		case err == nil:
			draft = &d
		case errors.Is(err, state.ErrKeyNotFound):
			id = ""
		default:
			v.logger.Warn("failed to load draft", logging.String("wizard_id", id), logging.Err(err))
			id = ""
		}
	} else {
		id = ""
	}

	msgs := v.def.Messages()
	ctrl, err := wizard.New(wizard.Config[S]{
		ID:         id,
		Pages:      v.def.Pages(),
		Initial:    v.def.Initial(),
		Submit:     v.send,
		Context:    msgs.Context,
		SuccessKey: msgs.Success,
		FailureKey: msgs.Failure,
		Notifier:   v.deps.Notify,
		Logger:     v.deps.logger(),
	})
	if err != nil {
		return fmt.Errorf("open %s wizard: %w", v.def.Initial().Kind(), err)
	}
	if draft != nil {
		if err := ctrl.Restore(draft.Index, draft.Values); err != nil {
			v.logger.Warn("discarding unusable draft", logging.String("wizard_id", id), logging.Err(err))
		}
	}

	v.ctrl = ctrl
	v.input = forms.Values{}
	v.conflicts = nil
	v.done = false
	return nil
}

func (v *View[S]) send(ctx context.Context, values S) error {
	return v.def.Submit(ctx, v.deps.Backend, values)
}

// HandleEvent applies a browser event.
func (v *View[S]) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	in := forms.Values(payload)

	switch event {
	case "dismiss":
		v.deps.Notify.Remove(in.Int("id"))
		return nil
	case "restart":
		v.dropDraft(ctx)
		v.deps.Notify.ClearByContext(v.ctrl.Context())
		return v.open(ctx, "")
	}

	if v.ctrl.Closed() {
		return nil
	}

	switch event {
	case "change":
		v.ctrl.Validate(v.bind(in))
		v.conflicts = nil
		v.saveDraft(ctx)

	case "next":
		if _, err := v.ctrl.Advance(v.bind(in)); err != nil && !isNavigationError(err) {
			return err
		}
		v.input = forms.Values{}
		v.saveDraft(ctx)

	case "back":
		if _, err := v.ctrl.Retreat(v.bind(in), in.Bool("skip_two")); err != nil && !isNavigationError(err) {
			return err
		}
		v.input = forms.Values{}
		v.conflicts = nil
		v.saveDraft(ctx)

	case "submit":
		return v.submit(ctx, in)

	case "upload_done":
		field := in.String("field")
		if field == "" {
			return errors.New("upload_done without field")
		}
		v.input[field+"_id"] = in.String("id")
		v.input[field+"_filename"] = in.String("filename")
		v.ctrl.Validate(v.bind(nil))
		v.saveDraft(ctx)
		v.deps.Notify.Create(notify.Notification{
			Key:     "UPLOAD_DONE",
			Type:    notify.TypeSuccess,
			Context: v.ctrl.Context(),
			Params:  map[string]string{"filename": in.String("filename")},
		})

	case "upload_failed":
		v.logger.Warn("upload failed",
			logging.String("field", in.String("field")),
			logging.String("reason", in.String("error")),
		)
		v.deps.Notify.Create(notify.Notification{
			Key:      "UPLOAD_FAILED",
			Type:     notify.TypeError,
			Context:  v.ctrl.Context(),
			Duration: notify.Forever,
			Params:   map[string]string{"filename": in.String("filename")},
		})

	case "cancel":
		v.dropDraft(ctx)
		v.deps.Notify.ClearByContext(v.ctrl.Context())
		v.ctrl.Close()

	default:
		return fmt.Errorf("unknown event %q", event)
	}
	return nil
}

func isNavigationError(err error) bool {
	return errors.Is(err, wizard.ErrInvalidPage) ||
		errors.Is(err, wizard.ErrNoNextPage) ||
		errors.Is(err, wizard.ErrNoPreviousPage)
}

// bind merges in into the pending input of the current page and applies it
// to the snapshot.
func (v *View[S]) bind(in forms.Values) S {
	for k, val := range in {
		v.input[k] = val
	}
	return v.def.Bind(v.ctrl.Page().Name, v.ctrl.Values(), v.input, v.env)
}

func (v *View[S]) submit(ctx context.Context, in forms.Values) error {
	snapshot, err := v.ctrl.BeginSubmit(v.bind(in))
	switch {
	case errors.Is(err, wizard.ErrInvalidPage),
		errors.Is(err, wizard.ErrNotFinalPage),
		errors.Is(err, wizard.ErrSubmitInProgress):
		return nil
	case err != nil:
		return err
	}
	v.conflicts = nil
	v.deps.Notify.ClearByContext(v.ctrl.Context())
	v.saveDraft(ctx)

	var proposals []schedule.Proposal
	checker := v.deps.Checker
	if s, ok := v.def.(Scheduler[S]); ok && checker != nil {
		proposals = s.Proposals(snapshot, v.env)
	}
	send := v.ctrl.Send
	m := v.deps.Metrics

	started := v.Go(func(ctx context.Context) any {
		if len(proposals) > 0 {
			res := checker.CheckAll(ctx, proposals)
			m.ConflictCheck(res.Outcome.String())
			if !res.OK() {
				return conflictChecked{result: res}
			}
		}
		return submitted{err: send(ctx, snapshot)}
	})
	if !started {
		v.ctrl.AbortSubmit()
		return ErrNoSession
	}
	return nil
}

// HandleInfo applies the results of background work.
func (v *View[S]) HandleInfo(ctx context.Context, msg any) error {
	switch m := msg.(type) {
	case lookupsLoaded:
		v.loading = false
		if m.err != nil {
			v.loadErr = true
			v.logger.Error("failed to load wizard options", logging.Err(m.err))
			v.deps.Notify.Create(notify.Notification{
				Key:      "LOAD_FAILED",
				Type:     notify.TypeError,
				Context:  v.ctrl.Context(),
				Duration: notify.Forever,
			})
			return nil
		}
		v.loadErr = false
		v.env.Lookups = m.lookups

	case conflictChecked:
		if !v.ctrl.Submitting() {
			return nil
		}
		v.ctrl.AbortSubmit()
		v.deps.Metrics.Submit(v.kind(), m.result.Outcome.String())
		switch m.result.Outcome {
		case schedule.Conflicts:
			v.conflicts = m.result.Conflicts
			v.logger.Info("schedule conflicts found", logging.Int("count", len(m.result.Conflicts)))
			v.deps.Notify.Create(notify.Notification{
				Key:      "CONFLICT_DETECTED",
				Type:     notify.TypeError,
				Context:  v.ctrl.Context(),
				Duration: notify.Forever,
			})
		case schedule.CheckFailed:
			v.deps.Notify.Error("CONFLICT_CHECK_FAILED", v.ctrl.Context())
		}

	case submitted:
		// A restart while sending replaced the controller.
		if !v.ctrl.Submitting() {
			return nil
		}
		if err := v.ctrl.FinishSubmit(m.err); err != nil {
			v.deps.Metrics.Submit(v.kind(), "failed")
			return nil
		}
		v.deps.Metrics.Submit(v.kind(), "created")
		v.done = true
		v.input = forms.Values{}
		v.dropDraft(ctx)

	default:
		return fmt.Errorf("unexpected message %T", msg)
	}
	return nil
}

// Terminate stops background work. The draft survives so a reconnect can
// resume it.
func (v *View[S]) Terminate(ctx context.Context, reason core.TerminateReason) error {
	v.logger.Debug("wizard view terminated", logging.String("reason", reason.String()))
	return nil
}

func (v *View[S]) saveDraft(ctx context.Context) {
	if v.drafts == nil || v.ctrl.Closed() {
		return
	}
	if err := v.drafts.Save(ctx, v.ctrl.ID(), v.ctrl.Index(), v.ctrl.Values()); err != nil {
		v.logger.Warn("failed to save draft", logging.Err(err))
	}
}

func (v *View[S]) dropDraft(ctx context.Context) {
	if v.drafts == nil {
		return
	}
	if err := v.drafts.Delete(ctx, v.ctrl.ID()); err != nil && !errors.Is(err, state.ErrKeyNotFound) {
		v.logger.Warn("failed to delete draft", logging.Err(err))
	}
}
