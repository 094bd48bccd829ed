package schedule

import (
	"context"
	"sort"
	"sync"
)

// Index is an in-memory set of bookings grouped by device. It answers
// conflict queries the way the backend does and is safe for concurrent use.
type Index struct {
	devices map[string][]Booking
	mu      sync.RWMutex
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{devices: make(map[string][]Booking)}
}

// Add stores b, replacing any booking with the same event id.
func (x *Index) Add(b Booking) error {
	if b.Device == "" {
		return ErrNoDevice
	}
	if !b.Valid() {
		return ErrInvalidInterval
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removeLocked(b.EventID)
	list := append(x.devices[b.Device], b)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Start.Before(list[j].Start)
	})
	x.devices[b.Device] = list
	return nil
}

// Remove deletes the booking of eventID. It reports whether one existed.
func (x *Index) Remove(eventID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(eventID)
}

func (x *Index) removeLocked(eventID string) bool {
	if eventID == "" {
		return false
	}
	for device, list := range x.devices {
		for i, b := range list {
			if b.EventID == eventID {
				x.devices[device] = append(list[:i], list[i+1:]...)
				if len(x.devices[device]) == 0 {
					delete(x.devices, device)
				}
				return true
			}
		}
	}
	return false
}

// Get returns the booking of eventID.
func (x *Index) Get(eventID string) (Booking, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, list := range x.devices {
		for _, b := range list {
			if b.EventID == eventID {
				return b, true
			}
		}
	}
	return Booking{}, false
}

// Bookings returns all bookings of device ordered by start.
func (x *Index) Bookings(device string) []Booking {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Booking, len(x.devices[device]))
	copy(out, x.devices[device])
	return out
}

// Conflicts returns the bookings on p's device that overlap any occurrence
// of p, except p.ExcludeEventID.
func (x *Index) Conflicts(_ context.Context, p Proposal) ([]Conflict, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []Conflict
	for _, occ := range p.Expand() {
		for _, b := range x.devices[p.Device] {
			if b.EventID != "" && b.EventID == p.ExcludeEventID {
				continue
			}
			if !b.Start.Before(occ.End) {
				break
			}
			if b.Overlaps(occ) {
				out = append(out, Conflict{EventID: b.EventID, Title: b.Title, Start: b.Start, End: b.End})
			}
		}
	}
	sortConflicts(out)
	return dedupe(out), nil
}

func dedupe(list []Conflict) []Conflict {
	if len(list) < 2 {
		return list
	}
	out := list[:1]
	for _, c := range list[1:] {
		prev := out[len(out)-1]
		if c.EventID != "" && c.EventID == prev.EventID && c.Start.Equal(prev.Start) {
			continue
		}
		out = append(out, c)
	}
	return out
}
