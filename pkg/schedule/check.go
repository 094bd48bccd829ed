package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
)

// Outcome classifies a conflict check.
type Outcome int

const (
	// NoConflict means the proposal is safe to save.
	NoConflict Outcome = iota
	// Conflicts means existing events overlap the proposal.
	Conflicts
	// CheckFailed means the check itself could not be completed.
	CheckFailed
)

func (o Outcome) String() string {
	switch o {
	case NoConflict:
		return "no_conflict"
	case Conflicts:
		return "conflicts"
	case CheckFailed:
		return "check_failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a conflict check. Conflicts is set only for
// Conflicts and Reason only for CheckFailed.
type Result struct {
	Outcome   Outcome
	Conflicts []Conflict
	Reason    error
}

// NoConflictResult reports a free schedule.
func NoConflictResult() Result {
	return Result{Outcome: NoConflict}
}

// ConflictsResult reports overlapping events. An empty list is NoConflict.
func ConflictsResult(list []Conflict) Result {
	if len(list) == 0 {
		return NoConflictResult()
	}
	return Result{Outcome: Conflicts, Conflicts: list}
}

// FailedResult reports that the check could not run.
func FailedResult(reason error) Result {
	return Result{Outcome: CheckFailed, Reason: reason}
}

// OK reports whether the caller may proceed with the save.
func (r Result) OK() bool {
	return r.Outcome == NoConflict
}

// Source answers conflict queries, usually the backend.
type Source interface {
	Conflicts(ctx context.Context, p Proposal) ([]Conflict, error)
}

// BulkSource answers conflict queries for many proposals in one call.
// CheckAll uses it when the Source also implements it.
type BulkSource interface {
	BulkConflicts(ctx context.Context, proposals []Proposal) ([]Conflict, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, p Proposal) ([]Conflict, error)

func (f SourceFunc) Conflicts(ctx context.Context, p Proposal) ([]Conflict, error) {
	return f(ctx, p)
}

// Checker runs advisory conflict checks before a schedule is saved. The
// backend repeats the check authoritatively on save.
type Checker struct {
	source   Source
	location *time.Location
	logger   logging.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithLocation converts proposal times to loc before they are sent.
func WithLocation(loc *time.Location) CheckerOption {
	return func(c *Checker) {
		c.location = loc
	}
}

// WithLogger sets the logger for failed checks.
func WithLogger(l logging.Logger) CheckerOption {
	return func(c *Checker) {
		c.logger = l
	}
}

// NewChecker creates a checker over source.
func NewChecker(source Source, opts ...CheckerOption) *Checker {
	c := &Checker{
		source:   source,
		location: time.Local,
		logger:   logging.DefaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check queries the source for events overlapping p on the same device.
func (c *Checker) Check(ctx context.Context, p Proposal) Result {
	if err := p.Validate(); err != nil {
		return FailedResult(err)
	}
	list, err := c.source.Conflicts(ctx, c.localize(p))
	if err != nil {
		c.logFailure(err, logging.String("device", p.Device))
		return FailedResult(err)
	}
	return ConflictsResult(list)
}

func (c *Checker) localize(p Proposal) Proposal {
	p.Interval = p.Interval.In(c.location)
	if p.Repeat != nil {
		r := *p.Repeat
		r.Until = r.Until.In(c.location)
		p.Repeat = &r
	}
	return p
}

func (c *Checker) logFailure(err error, fields ...logging.Field) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.logger.Warn("conflict check failed", append(fields, logging.Err(err))...)
}

// CheckAll checks every proposal and merges the outcome. Any failed check
// fails the whole set; otherwise all conflicts are returned, ordered by start.
func (c *Checker) CheckAll(ctx context.Context, proposals []Proposal) Result {
	if bulk, ok := c.source.(BulkSource); ok {
		return c.checkBulk(ctx, bulk, proposals)
	}

	var all []Conflict
	seen := make(map[string]bool)
	for _, p := range proposals {
		r := c.Check(ctx, p)
		switch r.Outcome {
		case CheckFailed:
			return r
		case Conflicts:
			for _, cf := range r.Conflicts {
				key := cf.EventID + "|" + cf.Start.String()
				if cf.EventID != "" && seen[key] {
					continue
				}
				seen[key] = true
				all = append(all, cf)
			}
		}
	}
	sortConflicts(all)
	return ConflictsResult(all)
}

func sortConflicts(list []Conflict) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Start.Equal(list[j].Start) {
			return list[i].Start.Before(list[j].Start)
		}
		return list[i].Title < list[j].Title
	})
}

func (c *Checker) checkBulk(ctx context.Context, bulk BulkSource, proposals []Proposal) Result {
	local := make([]Proposal, len(proposals))
	for i, p := range proposals {
		if err := p.Validate(); err != nil {
			return FailedResult(err)
		}
		local[i] = c.localize(p)
	}
	list, err := bulk.BulkConflicts(ctx, local)
	if err != nil {
		c.logFailure(err, logging.Int("proposals", len(proposals)))
		return FailedResult(err)
	}
	sortConflicts(list)
	return ConflictsResult(list)
}
