package state

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Expired entries are invisible at once
// and swept from memory periodically.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]memoryItem
	closed bool
	done   chan struct{}
	now    func() time.Time
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// NewMemoryStore creates a store that sweeps expired entries every interval.
// A non-positive interval defaults to one minute.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	if interval <= 0 {
		interval = time.Minute
	}
	ms := &MemoryStore{
		items: make(map[string]memoryItem),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	go ms.sweepLoop(interval)
	return ms
}

// Get returns a copy of the value stored under key.
func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}
	item, ok := ms.items[key]
	if !ok || item.expired(ms.now()) {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), item.value...), nil
}

// Set stores a copy of value.
func (ms *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = ms.now().Add(ttl)
	}
	ms.items[key] = item
	return nil
}

// Delete removes key.
func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	delete(ms.items, key)
	return nil
}

// Keys returns live keys matching pattern, sorted.
func (ms *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}
	now := ms.now()
	var keys []string
	for key, item := range ms.items {
		if item.expired(now) {
			continue
		}
		if ok, err := filepath.Match(pattern, key); err == nil && ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of entries held, including expired ones not yet swept.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}

// Close stops the sweeper. Further operations fail with ErrStoreClosed.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return nil
	}
	ms.closed = true
	ms.items = nil
	close(ms.done)
	return nil
}

func (ms *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.sweep()
		case <-ms.done:
			return
		}
	}
}

func (ms *MemoryStore) sweep() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, item := range ms.items {
		if item.expired(now) {
			delete(ms.items, key)
		}
	}
}
