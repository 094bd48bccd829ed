package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
)

var (
	base     = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // a Monday
	midnight = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

func at(h, m int) time.Time {
	return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	x := NewIndex()
	bookings := []Booking{
		{EventID: "e1", Title: "Lecture", Device: "room-1", Interval: Interval{Start: at(1, 0), End: at(2, 0)}},
		{EventID: "e2", Title: "Seminar", Device: "room-1", Interval: Interval{Start: at(4, 0), End: at(5, 0)}},
		{EventID: "e3", Title: "Other room", Device: "room-2", Interval: Interval{Start: at(1, 0), End: at(2, 0)}},
	}
	for _, b := range bookings {
		if err := x.Add(b); err != nil {
			t.Fatalf("Add(%s): %v", b.EventID, err)
		}
	}
	return x
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"contains", Interval{at(0, 0), at(3, 0)}, Interval{at(1, 0), at(2, 0)}, true},
		{"partial", Interval{at(0, 0), at(1, 30)}, Interval{at(1, 0), at(2, 0)}, true},
		{"touching", Interval{at(0, 0), at(1, 0)}, Interval{at(1, 0), at(2, 0)}, false},
		{"disjoint", Interval{at(0, 0), at(0, 30)}, Interval{at(1, 0), at(2, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndex_ContainingIntervalConflicts(t *testing.T) {
	x := newTestIndex(t)

	got, err := x.Conflicts(context.Background(), Proposal{
		Device:   "room-1",
		Interval: Interval{Start: at(0, 30), End: at(2, 30)},
	})
	if err != nil {
		t.Fatalf("Conflicts: %v", err)
	}

	want := []Conflict{{EventID: "e1", Title: "Lecture", Start: at(1, 0), End: at(2, 0)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("conflicts (-want +got):\n%s", diff)
	}
}

func TestIndex_DisjointIntervalIsFree(t *testing.T) {
	x := newTestIndex(t)

	got, err := x.Conflicts(context.Background(), Proposal{
		Device:   "room-1",
		Interval: Interval{Start: at(2, 0), End: at(4, 0)},
	})
	if err != nil {
		t.Fatalf("Conflicts: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no conflicts, got %+v", got)
	}
}

func TestIndex_ExcludesEditedEvent(t *testing.T) {
	x := newTestIndex(t)

	got, _ := x.Conflicts(context.Background(), Proposal{
		Device:         "room-1",
		Interval:       Interval{Start: at(1, 15), End: at(1, 45)},
		ExcludeEventID: "e1",
	})
	if len(got) != 0 {
		t.Errorf("edited event should not conflict with itself, got %+v", got)
	}
}

func TestIndex_AddReplacesAndRemove(t *testing.T) {
	x := newTestIndex(t)

	if err := x.Add(Booking{EventID: "e1", Title: "Lecture", Device: "room-2", Interval: Interval{Start: at(6, 0), End: at(7, 0)}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n := len(x.Bookings("room-1")); n != 1 {
		t.Errorf("room-1 should have 1 booking after move, got %d", n)
	}
	if b, ok := x.Get("e1"); !ok || b.Device != "room-2" {
		t.Errorf("expected e1 on room-2, got %+v (ok=%v)", b, ok)
	}

	if !x.Remove("e1") {
		t.Error("Remove should report an existing booking")
	}
	if x.Remove("e1") {
		t.Error("second Remove should report false")
	}
}

func TestIndex_AddRejectsInvalid(t *testing.T) {
	x := NewIndex()
	if err := x.Add(Booking{EventID: "a", Device: "d", Interval: Interval{Start: at(2, 0), End: at(1, 0)}}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
	if err := x.Add(Booking{EventID: "a", Interval: Interval{Start: at(1, 0), End: at(2, 0)}}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}
}

func TestProposal_Expand(t *testing.T) {
	p := Proposal{
		Device:   "room-1",
		Interval: Interval{Start: base, End: base.Add(time.Hour)},
		Repeat: &Repeat{
			Weekdays: []time.Weekday{time.Monday, time.Wednesday},
			Until:    base.AddDate(0, 0, 9),
		},
	}

	got := p.Expand()
	want := []time.Time{base, base.AddDate(0, 0, 2), base.AddDate(0, 0, 7), base.AddDate(0, 0, 9)}
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Start.Equal(want[i]) || got[i].Duration() != time.Hour {
			t.Errorf("occurrence %d: got %s", i, got[i])
		}
	}
}

func TestProposal_UntilStartDay(t *testing.T) {
	p := Proposal{
		Device:   "room-1",
		Interval: Interval{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
		Repeat:   &Repeat{Weekdays: []time.Weekday{time.Monday}, Until: midnight},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected until on the start day to be valid, got %v", err)
	}
	if n := len(p.Expand()); n != 1 {
		t.Errorf("expected 1 occurrence, got %d", n)
	}
}

func TestChecker_Outcomes(t *testing.T) {
	x := newTestIndex(t)
	failing := SourceFunc(func(context.Context, Proposal) ([]Conflict, error) {
		return nil, errors.New("connection refused")
	})

	tests := []struct {
		name    string
		source  Source
		p       Proposal
		outcome Outcome
	}{
		{"conflicts", x, Proposal{Device: "room-1", Interval: Interval{at(0, 0), at(3, 0)}}, Conflicts},
		{"free", x, Proposal{Device: "room-1", Interval: Interval{at(2, 0), at(3, 0)}}, NoConflict},
		{"backend down", failing, Proposal{Device: "room-1", Interval: Interval{at(2, 0), at(3, 0)}}, CheckFailed},
		{"invalid proposal", x, Proposal{Device: "room-1", Interval: Interval{at(3, 0), at(2, 0)}}, CheckFailed},
		{"repeat until the start day", x, Proposal{
			Device:   "room-1",
			Interval: Interval{at(2, 0), at(3, 0)},
			Repeat:   &Repeat{Weekdays: []time.Weekday{time.Monday}, Until: midnight},
		}, NoConflict},
		{"repeat until before the start day", x, Proposal{
			Device:   "room-1",
			Interval: Interval{at(2, 0), at(3, 0)},
			Repeat:   &Repeat{Weekdays: []time.Weekday{time.Monday}, Until: midnight.AddDate(0, 0, -1)},
		}, CheckFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(tt.source, WithLogger(logging.NopLogger{}), WithLocation(time.UTC))
			r := c.Check(context.Background(), tt.p)
			if r.Outcome != tt.outcome {
				t.Fatalf("expected %s, got %s (%v)", tt.outcome, r.Outcome, r.Reason)
			}
			if r.OK() != (tt.outcome == NoConflict) {
				t.Errorf("OK() = %v for %s", r.OK(), r.Outcome)
			}
			if tt.outcome == CheckFailed && r.Reason == nil {
				t.Error("CheckFailed without a reason")
			}
		})
	}
}

func TestChecker_ConvertsToLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	var seen *time.Location
	src := SourceFunc(func(_ context.Context, p Proposal) ([]Conflict, error) {
		seen = p.Start.Location()
		return nil, nil
	})

	NewChecker(src, WithLocation(loc), WithLogger(logging.NopLogger{})).
		Check(context.Background(), Proposal{Device: "d", Interval: Interval{at(0, 0), at(1, 0)}})

	if seen != loc {
		t.Errorf("expected proposal in %v, got %v", loc, seen)
	}
}

func TestChecker_CheckAll(t *testing.T) {
	x := newTestIndex(t)
	c := NewChecker(x, WithLogger(logging.NopLogger{}), WithLocation(time.UTC))

	r := c.CheckAll(context.Background(), []Proposal{
		{Device: "room-1", Interval: Interval{at(4, 30), at(6, 0)}},
		{Device: "room-1", Interval: Interval{at(0, 0), at(1, 30)}},
		{Device: "room-1", Interval: Interval{at(1, 30), at(1, 45)}},
	})
	if r.Outcome != Conflicts {
		t.Fatalf("expected Conflicts, got %s", r.Outcome)
	}

	var titles []string
	for _, cf := range r.Conflicts {
		titles = append(titles, cf.Title)
	}
	if diff := cmp.Diff([]string{"Lecture", "Seminar"}, titles); diff != "" {
		t.Errorf("conflict titles (-want +got):\n%s", diff)
	}

	r = c.CheckAll(context.Background(), []Proposal{
		{Device: "room-1", Interval: Interval{at(2, 0), at(3, 0)}},
		{Device: "", Interval: Interval{at(2, 0), at(3, 0)}},
	})
	if r.Outcome != CheckFailed || !errors.Is(r.Reason, ErrNoDevice) {
		t.Errorf("expected CheckFailed(ErrNoDevice), got %s (%v)", r.Outcome, r.Reason)
	}
}
