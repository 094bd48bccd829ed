package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/pubsub"
)

// Topic is the pubsub topic on which every store mutation is announced.
const Topic = "notifications"

// DefaultDuration is used when a notification is created with Duration 0.
const DefaultDuration = 5

// Change describes one store mutation.
type Change struct {
	Op      string `json:"op"`
	ID      int    `json:"id,omitempty"`
	Context string `json:"context,omitempty"`
}

// Change operations.
const (
	OpCreate = "create"
	OpRemove = "remove"
	OpHide   = "hide"
	OpClear  = "clear"
)

type stopper interface {
	Stop() bool
}

// Store is the list of live notifications. Ids come from a counter owned by
// the store and are never reused. Store is safe for concurrent use.
type Store struct {
	entries []Notification
	timers  map[int]stopper
	nextID  int
	closed  bool

	defaultDuration int
	afterFunc       func(time.Duration, func()) stopper
	now             func() time.Time
	ps              pubsub.PubSub

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultDuration sets the lifetime in seconds for Duration 0.
func WithDefaultDuration(seconds int) Option {
	return func(s *Store) {
		s.defaultDuration = seconds
	}
}

// WithPubSub announces mutations on Topic.
func WithPubSub(ps pubsub.PubSub) Option {
	return func(s *Store) {
		s.ps = ps
	}
}

// withTimers replaces the removal scheduler. Used by tests.
func withTimers(afterFunc func(time.Duration, func()) stopper) Option {
	return func(s *Store) {
		s.afterFunc = afterFunc
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		timers:          make(map[int]stopper),
		defaultDuration: DefaultDuration,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create appends n and returns its id. A positive duration schedules
// removal after Duration seconds; Forever never expires.
func (s *Store) Create(n Notification) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}

	s.nextID++
	n.ID = s.nextID
	if n.Duration == 0 {
		n.Duration = s.defaultDuration
	}
	if n.Context == "" {
		n.Context = GlobalContext
	}
	n.CreatedAt = s.now()
	s.entries = append(s.entries, n)

	if n.Duration > 0 {
		id := n.ID
		s.timers[id] = s.afterFunc(time.Duration(n.Duration)*1000*time.Millisecond, func() {
			s.Remove(id)
		})
	}
	s.mu.Unlock()

	s.publish(Change{Op: OpCreate, ID: n.ID, Context: n.Context})
	return n.ID
}

// Error is a shorthand for creating an error notification in context.
func (s *Store) Error(key, context string) int {
	return s.Create(Notification{Key: key, Type: TypeError, Context: context})
}

// Remove deletes the entry with id. Removing an unknown id is a no-op.
func (s *Store) Remove(id int) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	ctx := s.entries[idx].Context
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	s.stopTimer(id)
	s.mu.Unlock()

	s.publish(Change{Op: OpRemove, ID: id, Context: ctx})
}

// SetHidden marks an entry hidden without deleting it.
func (s *Store) SetHidden(id int, hidden bool) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 || s.entries[idx].Hidden == hidden {
		s.mu.Unlock()
		return
	}
	s.entries[idx].Hidden = hidden
	ctx := s.entries[idx].Context
	s.mu.Unlock()

	s.publish(Change{Op: OpHide, ID: id, Context: ctx})
}

// ClearByContext removes every entry whose context equals context and
// returns how many were removed. "" selects GlobalContext, as in Create.
func (s *Store) ClearByContext(context string) int {
	if context == "" {
		context = GlobalContext
	}
	s.mu.Lock()
	kept := s.entries[:0]
	removed := 0
	for _, n := range s.entries {
		if n.Context == context {
			s.stopTimer(n.ID)
			removed++
			continue
		}
		kept = append(kept, n)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = Notification{}
	}
	s.entries = kept
	s.mu.Unlock()

	if removed > 0 {
		s.publish(Change{Op: OpClear, Context: context})
	}
	return removed
}

// List returns a copy of all entries in creation order.
func (s *Store) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with id.
func (s *Store) Get(id int) (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.entries[idx], true
	}
	return Notification{}, false
}

// ByContext returns visible entries of exactly context.
func (s *Store) ByContext(context string) []Notification {
	return ByContext(s.List(), context)
}

// Global returns visible entries of the global region.
func (s *Store) Global() []Notification {
	return Global(s.List())
}

// GlobalErrors returns visible global error entries.
func (s *Store) GlobalErrors() []Notification {
	return GlobalErrors(s.List())
}

// Close stops all pending removals. Create is a no-op afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id := range s.timers {
		s.stopTimer(id)
	}
}

func (s *Store) indexOf(id int) int {
	for i, n := range s.entries {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) stopTimer(id int) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Store) publish(c Change) {
	if s.ps == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	// Publishing never blocks; a full subscriber misses the change and
	// catches up on its next render.
	_ = s.ps.Publish(Topic, data)
}
