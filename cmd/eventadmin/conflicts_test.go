package main

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
)

func TestParseProposal(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	args := []string{"hall-a", "2026-03-02T09:00", "2026-03-02T10:30"}

	p, err := parseProposal(args, "e1", nil, "", loc)
	if err != nil {
		t.Fatalf("parseProposal: %v", err)
	}
	want := schedule.Proposal{
		Device: "hall-a",
		Interval: schedule.Interval{
			Start: time.Date(2026, 3, 2, 9, 0, 0, 0, loc),
			End:   time.Date(2026, 3, 2, 10, 30, 0, 0, loc),
		},
		ExcludeEventID: "e1",
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("proposal (-want +got):\n%s", diff)
	}

	p, err = parseProposal(args, "", []string{"mo", "TH"}, "2026-03-31", loc)
	if err != nil {
		t.Fatalf("parseProposal: %v", err)
	}
	if diff := cmp.Diff([]time.Weekday{time.Monday, time.Thursday}, p.Repeat.Weekdays); diff != "" {
		t.Errorf("weekdays (-want +got):\n%s", diff)
	}

	if _, err := parseProposal(args, "", []string{"XX"}, "2026-03-31", loc); err == nil {
		t.Error("expected an unknown weekday error")
	}
	if _, err := parseProposal([]string{"hall-a", "2026-03-02T10:00", "2026-03-02T09:00"}, "", nil, "", loc); !errors.Is(err, schedule.ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := parseProposal(args, "", []string{"MO"}, "", loc); err == nil {
		t.Error("expected an error for a repetition without until")
	}
}
