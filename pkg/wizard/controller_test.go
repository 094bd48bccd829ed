package wizard

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/notify"
)

type testSnapshot struct {
	Title  string
	Upload bool
}

func (testSnapshot) Kind() string { return "test" }

type untagged struct{}

func (untagged) Kind() string { return "" }

type recordingNotifier struct {
	created []notify.Notification
}

func (r *recordingNotifier) Create(n notify.Notification) int {
	r.created = append(r.created, n)
	return len(r.created)
}

func nopSubmit(context.Context, testSnapshot) error { return nil }

func titleRequired(s testSnapshot) forms.Errors {
	errs := forms.Errors{}
	if s.Title == "" {
		errs.Add("title", "This field is required")
	}
	return errs
}

func newTestController(t *testing.T, pages []Page[testSnapshot], submit func(context.Context, testSnapshot) error, n Notifier) *Controller[testSnapshot] {
	t.Helper()
	if submit == nil {
		submit = nopSubmit
	}
	c, err := New(Config[testSnapshot]{
		Pages:      pages,
		Initial:    testSnapshot{},
		Submit:     submit,
		Context:    "wizard-form",
		SuccessKey: "EVENTS_CREATED",
		FailureKey: "EVENTS_NOT_CREATED",
		Notifier:   n,
		Logger:     logging.NopLogger{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		fn   func() error
	}{
		{"no pages", ErrNoPages, func() error {
			_, err := New(Config[testSnapshot]{Submit: nopSubmit})
			return err
		}},
		{"untagged", ErrUntaggedSnapshot, func() error {
			_, err := New(Config[untagged]{
				Pages:  []Page[untagged]{{Name: "a"}},
				Submit: func(context.Context, untagged) error { return nil },
			})
			return err
		}},
		{"no submit", ErrNoSubmitter, func() error {
			_, err := New(Config[testSnapshot]{Pages: []Page[testSnapshot]{{Name: "a"}}})
			return err
		}},
		{"duplicate", ErrDuplicatePage, func() error {
			_, err := New(Config[testSnapshot]{
				Pages:  []Page[testSnapshot]{{Name: "a"}, {Name: "a"}},
				Submit: nopSubmit,
			})
			return err
		}},
		{"all hidden", ErrNoVisiblePage, func() error {
			_, err := New(Config[testSnapshot]{
				Pages:  []Page[testSnapshot]{{Name: "a", Hidden: true}},
				Submit: nopSubmit,
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestNew_StartsOnFirstVisiblePage(t *testing.T) {
	c := newTestController(t, []Page[testSnapshot]{
		{Name: "a", Hidden: true},
		{Name: "b"},
	}, nil, nil)

	if c.Index() != 1 {
		t.Errorf("expected index 1, got %d", c.Index())
	}
	if !c.IsFirst() {
		t.Error("first visible page should report IsFirst")
	}
	if c.ID() == "" || c.Kind() != "test" {
		t.Errorf("unexpected identity %q/%q", c.ID(), c.Kind())
	}
}

func TestAdvance_SkipsHiddenPage(t *testing.T) {
	c := newTestController(t, []Page[testSnapshot]{
		{Name: "A"},
		{Name: "B", Hidden: true},
		{Name: "C"},
	}, nil, nil)

	idx, err := c.Advance(testSnapshot{Title: "x"})
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if idx != 2 {
		t.Fatalf("expected index 2, got %d", idx)
	}

	idx, err = c.Advance(testSnapshot{Title: "x"})
	if !errors.Is(err, ErrNoNextPage) {
		t.Errorf("second advance: expected ErrNoNextPage, got %v", err)
	}
	if idx != 2 || c.Page().Name != "C" {
		t.Errorf("expected to stay on C (2), got %s (%d)", c.Page().Name, idx)
	}
}

func TestAdvance_InvalidPageStays(t *testing.T) {
	c := newTestController(t, []Page[testSnapshot]{
		{Name: "metadata", Rule: titleRequired},
		{Name: "summary"},
	}, nil, nil)

	if c.CanAdvance() {
		t.Error("CanAdvance should be false with an empty title")
	}

	idx, err := c.Advance(testSnapshot{})
	if !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}
	if !c.Errors().Has("title") {
		t.Error("expected title error after failed advance")
	}

	if _, err := c.Advance(testSnapshot{Title: "Lecture"}); err != nil {
		t.Fatalf("advance with valid values: %v", err)
	}
	if !c.Errors().Empty() {
		t.Errorf("errors should reset on page change, got %v", c.Errors())
	}
}

func TestValidate_OnlyCurrentPage(t *testing.T) {
	c := newTestController(t, []Page[testSnapshot]{
		{Name: "a"},
		{Name: "b", Rule: titleRequired},
	}, nil, nil)

	if errs := c.Validate(testSnapshot{}); !errs.Empty() {
		t.Errorf("page a has no rule, got %v", errs)
	}
	if c.Values() != (testSnapshot{}) {
		t.Error("Validate should store the snapshot")
	}
}

func TestVisiblePredicate(t *testing.T) {
	pages := []Page[testSnapshot]{
		{Name: "source"},
		{Name: "upload", Visible: func(s testSnapshot) bool { return s.Upload }},
		{Name: "processing"},
	}

	c := newTestController(t, pages, nil, nil)
	if idx, _ := c.Advance(testSnapshot{Title: "x"}); idx != 2 {
		t.Errorf("without upload: expected index 2, got %d", idx)
	}
	if idx, _ := c.Retreat(c.Values(), false); idx != 0 {
		t.Errorf("retreat without upload: expected index 0, got %d", idx)
	}

	c = newTestController(t, pages, nil, nil)
	if idx, _ := c.Advance(testSnapshot{Title: "x", Upload: true}); idx != 1 {
		t.Errorf("with upload: expected index 1, got %d", idx)
	}
}

func TestRetreat(t *testing.T) {
	pages := []Page[testSnapshot]{
		{Name: "a"},
		{Name: "b"},
		{Name: "c", Hidden: true},
		{Name: "d"},
	}

	t.Run("skips hidden", func(t *testing.T) {
		c := newTestController(t, pages, nil, nil)
		c.Restore(3, testSnapshot{})
		if idx, err := c.Retreat(testSnapshot{}, false); err != nil || idx != 1 {
			t.Errorf("expected index 1, got %d (%v)", idx, err)
		}
	})

	t.Run("skip two", func(t *testing.T) {
		c := newTestController(t, pages, nil, nil)
		c.Restore(3, testSnapshot{})
		if idx, err := c.Retreat(testSnapshot{}, true); err != nil || idx != 0 {
			t.Errorf("expected index 0, got %d (%v)", idx, err)
		}
		if idx, err := c.Retreat(testSnapshot{}, true); !errors.Is(err, ErrNoPreviousPage) || idx != 0 {
			t.Errorf("expected ErrNoPreviousPage at 0, got %d (%v)", idx, err)
		}
	})

	t.Run("skip two passes a visible page", func(t *testing.T) {
		c := newTestController(t, []Page[testSnapshot]{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}}, nil, nil)
		c.Restore(3, testSnapshot{})
		if idx, err := c.Retreat(testSnapshot{}, true); err != nil || idx != 1 {
			t.Errorf("expected index 1, got %d (%v)", idx, err)
		}
	})

	t.Run("skip two stops at the first visible page", func(t *testing.T) {
		c := newTestController(t, []Page[testSnapshot]{{Name: "a", Hidden: true}, {Name: "b"}, {Name: "c"}}, nil, nil)
		c.Restore(2, testSnapshot{})
		if idx, err := c.Retreat(testSnapshot{}, true); err != nil || idx != 1 {
			t.Errorf("expected index 1, got %d (%v)", idx, err)
		}
	})

	t.Run("from first", func(t *testing.T) {
		c := newTestController(t, pages, nil, nil)
		idx, err := c.Retreat(testSnapshot{}, false)
		if !errors.Is(err, ErrNoPreviousPage) {
			t.Errorf("expected ErrNoPreviousPage, got %v", err)
		}
		if idx != 0 {
			t.Errorf("expected index 0, got %d", idx)
		}
	})

	t.Run("does not validate", func(t *testing.T) {
		c := newTestController(t, []Page[testSnapshot]{{Name: "a"}, {Name: "b", Rule: titleRequired}}, nil, nil)
		c.Restore(1, testSnapshot{})
		if _, err := c.Retreat(testSnapshot{}, false); err != nil {
			t.Errorf("retreat from an invalid page: %v", err)
		}
	})
}

// Random page sets and random walks never leave the index on an invisible
// page or out of range.
func TestNavigation_NeverLandsOnHiddenPage(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 200; run++ {
		n := 1 + rng.Intn(8)
		pages := make([]Page[testSnapshot], n)
		visible := 0
		for i := range pages {
			pages[i] = Page[testSnapshot]{Name: string(rune('a' + i)), Hidden: rng.Intn(3) == 0}
			if i%3 == 1 {
				pages[i].Visible = func(s testSnapshot) bool { return s.Upload }
			}
			if !pages[i].Hidden {
				visible++
			}
		}
		if visible == 0 {
			pages[rng.Intn(n)].Hidden = false
			pages[0].Hidden = false
			pages[0].Visible = nil
		}

		c, err := New(Config[testSnapshot]{Pages: pages, Initial: testSnapshot{}, Submit: nopSubmit, Logger: logging.NopLogger{}})
		if errors.Is(err, ErrNoVisiblePage) {
			continue
		}
		if err != nil {
			t.Fatalf("run %d: New: %v", run, err)
		}

		for step := 0; step < 20; step++ {
			values := testSnapshot{Title: "x", Upload: rng.Intn(2) == 0}
			if rng.Intn(2) == 0 {
				c.Advance(values)
			} else {
				c.Retreat(values, rng.Intn(4) == 0)
			}

			idx := c.Index()
			if idx < 0 || idx >= n {
				t.Fatalf("run %d: index %d out of range", run, idx)
			}
			p := pages[idx]
			if p.Hidden {
				t.Fatalf("run %d: landed on hidden page %s", run, p.Name)
			}
		}
	}
}

func TestSubmit_Success(t *testing.T) {
	n := &recordingNotifier{}
	var sent testSnapshot
	c := newTestController(t, []Page[testSnapshot]{
		{Name: "metadata", Rule: titleRequired},
		{Name: "summary"},
	}, func(_ context.Context, s testSnapshot) error {
		sent = s
		return nil
	}, n)

	if err := c.Submit(context.Background(), testSnapshot{Title: "x"}); !errors.Is(err, ErrNotFinalPage) {
		t.Fatalf("expected ErrNotFinalPage, got %v", err)
	}

	c.Advance(testSnapshot{Title: "Lecture"})
	if err := c.Submit(context.Background(), testSnapshot{Title: "Lecture"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if sent.Title != "Lecture" {
		t.Errorf("expected submitted title Lecture, got %q", sent.Title)
	}
	if !c.Closed() {
		t.Error("wizard should close after a successful submit")
	}
	if c.Values() != (testSnapshot{}) {
		t.Error("snapshot should be discarded after submit")
	}

	want := []notify.Notification{{Key: "EVENTS_CREATED", Type: notify.TypeSuccess, Context: notify.GlobalContext}}
	if diff := cmp.Diff(want, n.created); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}

	if _, err := c.Advance(testSnapshot{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after submit, got %v", err)
	}
}

func TestSubmit_FailureKeepsWizardOpen(t *testing.T) {
	n := &recordingNotifier{}
	backendErr := errors.New("backend down")
	c := newTestController(t, []Page[testSnapshot]{{Name: "summary"}}, func(context.Context, testSnapshot) error {
		return backendErr
	}, n)

	values := testSnapshot{Title: "keep me"}
	if err := c.Submit(context.Background(), values); !errors.Is(err, backendErr) {
		t.Fatalf("expected backend error, got %v", err)
	}

	if c.Closed() || c.Submitting() {
		t.Error("wizard should stay open and idle after a failed submit")
	}
	if c.Values() != values {
		t.Errorf("expected values to be kept, got %+v", c.Values())
	}

	want := []notify.Notification{{Key: "EVENTS_NOT_CREATED", Type: notify.TypeError, Context: "wizard-form"}}
	if diff := cmp.Diff(want, n.created); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
}

func TestBeginSubmit_Guards(t *testing.T) {
	c := newTestController(t, []Page[testSnapshot]{{Name: "summary", Rule: titleRequired}}, nil, nil)

	if _, err := c.BeginSubmit(testSnapshot{}); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got %v", err)
	}

	if _, err := c.BeginSubmit(testSnapshot{Title: "x"}); err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}
	if c.CanAdvance() {
		t.Error("CanAdvance should be false while submitting")
	}
	if _, err := c.BeginSubmit(testSnapshot{Title: "x"}); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("expected ErrSubmitInProgress, got %v", err)
	}

	c.Close()
	if err := c.FinishSubmit(nil); err != nil {
		t.Errorf("FinishSubmit after Close: %v", err)
	}
}

func TestAbortSubmit(t *testing.T) {
	n := &recordingNotifier{}
	c := newTestController(t, []Page[testSnapshot]{{Name: "summary"}}, nil, n)

	if _, err := c.BeginSubmit(testSnapshot{Title: "x"}); err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}
	c.AbortSubmit()
	if c.Submitting() || c.Closed() {
		t.Errorf("expected open idle wizard, got submitting=%v closed=%v", c.Submitting(), c.Closed())
	}
	if len(n.created) != 0 {
		t.Errorf("expected no notifications, got %v", n.created)
	}
	if _, err := c.BeginSubmit(testSnapshot{Title: "x"}); err != nil {
		t.Errorf("expected a new submit to start, got %v", err)
	}
}

func TestNew_ID(t *testing.T) {
	c, err := New(Config[testSnapshot]{ID: "resume-me", Pages: []Page[testSnapshot]{{Name: "a"}}, Submit: nopSubmit})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.ID() != "resume-me" {
		t.Errorf("expected id resume-me, got %s", c.ID())
	}

	other := newTestController(t, []Page[testSnapshot]{{Name: "a"}}, nil, nil)
	again := newTestController(t, []Page[testSnapshot]{{Name: "a"}}, nil, nil)
	if other.ID() == "" || other.ID() == again.ID() {
		t.Errorf("expected distinct generated ids, got %q and %q", other.ID(), again.ID())
	}
}

func TestRestore(t *testing.T) {
	c := newTestController(t, []Page[testSnapshot]{
		{Name: "a"},
		{Name: "b", Hidden: true},
		{Name: "c"},
	}, nil, nil)

	for _, idx := range []int{-1, 1, 3} {
		if err := c.Restore(idx, testSnapshot{}); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("Restore(%d): expected ErrInvalidIndex, got %v", idx, err)
		}
	}
	if err := c.Restore(2, testSnapshot{Title: "x"}); err != nil {
		t.Fatalf("Restore(2): %v", err)
	}
	if c.Index() != 2 || c.Values().Title != "x" {
		t.Errorf("unexpected state after restore: %d %+v", c.Index(), c.Values())
	}
}

func TestSteps(t *testing.T) {
	c := newTestController(t, []Page[testSnapshot]{
		{Name: "a"},
		{Name: "b", Hidden: true},
		{Name: "c"},
	}, nil, nil)
	c.Advance(testSnapshot{})

	want := []Step{
		{Index: 0, Name: "a", Done: true, Visible: true},
		{Index: 1, Name: "b", Done: true},
		{Index: 2, Name: "c", Active: true, Visible: true},
	}
	if diff := cmp.Diff(want, c.Steps()); diff != "" {
		t.Errorf("Steps (-want +got):\n%s", diff)
	}
}
