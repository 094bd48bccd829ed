// Package pubsub fans out in-process messages to live sessions.
package pubsub

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common pubsub errors.
var (
	ErrPubSubClosed = errors.New("pubsub is closed")
)

// PubSub is the interface for pub/sub implementations.
type PubSub interface {
	// Subscribe adds a handler for a topic. Handlers of one subscription run
	// sequentially on their own goroutine.
	Subscribe(topic string, handler func(msg []byte)) (Subscription, error)

	// Publish sends a message to all subscribers of a topic. It never blocks.
	Publish(topic string, msg []byte) error

	// Close shuts down the pubsub system.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// MemoryPubSub is an in-memory PubSub for a single process.
type MemoryPubSub struct {
	topics map[string]map[string]*memorySubscription
	buffer int
	closed bool
	mu     sync.RWMutex
}

// NewMemoryPubSub creates a pubsub whose subscribers buffer up to buffer
// messages; further messages are dropped for that subscriber.
func NewMemoryPubSub(buffer int) *MemoryPubSub {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryPubSub{
		topics: make(map[string]map[string]*memorySubscription),
		buffer: buffer,
	}
}

// Subscribe adds a handler for a topic.
func (ps *MemoryPubSub) Subscribe(topic string, handler func(msg []byte)) (Subscription, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return nil, ErrPubSubClosed
	}

	sub := &memorySubscription{
		id:    uuid.NewString(),
		topic: topic,
		ps:    ps,
		ch:    make(chan []byte, ps.buffer),
		done:  make(chan struct{}),
	}
	if ps.topics[topic] == nil {
		ps.topics[topic] = make(map[string]*memorySubscription)
	}
	ps.topics[topic][sub.id] = sub

	go sub.run(handler)
	return sub, nil
}

// Publish sends a copy of msg to every subscriber of topic.
func (ps *MemoryPubSub) Publish(topic string, msg []byte) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed {
		return ErrPubSubClosed
	}

	for _, sub := range ps.topics[topic] {
		if sub.closed.Load() {
			continue
		}
		msgCopy := make([]byte, len(msg))
		copy(msgCopy, msg)
		select {
		case sub.ch <- msgCopy:
		default:
		}
	}
	return nil
}

// Close stops every subscription.
func (ps *MemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return nil
	}
	ps.closed = true
	for _, subs := range ps.topics {
		for _, sub := range subs {
			sub.stop()
		}
	}
	ps.topics = make(map[string]map[string]*memorySubscription)
	return nil
}

// SubscriberCount returns the number of subscribers of topic.
func (ps *MemoryPubSub) SubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.topics[topic])
}

type memorySubscription struct {
	id     string
	topic  string
	ps     *MemoryPubSub
	ch     chan []byte
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
}

func (s *memorySubscription) run(handler func([]byte)) {
	for {
		select {
		case msg := <-s.ch:
			if s.closed.Load() {
				return
			}
			handler(msg)
		case <-s.done:
			return
		}
	}
}

func (s *memorySubscription) stop() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
}

// Unsubscribe removes the subscription. Repeated calls are no-ops.
func (s *memorySubscription) Unsubscribe() error {
	if s.closed.Load() {
		return nil
	}
	s.stop()

	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()
	if subs := s.ps.topics[s.topic]; subs != nil {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.ps.topics, s.topic)
		}
	}
	return nil
}

func (s *memorySubscription) Topic() string {
	return s.topic
}
