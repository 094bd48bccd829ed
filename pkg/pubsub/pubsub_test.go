package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestPubSub_MessageDelivery(t *testing.T) {
	ps := NewMemoryPubSub(16)
	defer ps.Close()

	received := make(chan string, 10)
	sub, err := ps.Subscribe("notifications", func(msg []byte) {
		received <- string(msg)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	messages := []string{"create", "hide", "remove"}
	for _, msg := range messages {
		if err := ps.Publish("notifications", []byte(msg)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for i, expected := range messages {
		select {
		case got := <-received:
			if got != expected {
				t.Errorf("message %d: got %q, want %q", i, got, expected)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}
}

func TestPubSub_OtherTopicNotDelivered(t *testing.T) {
	ps := NewMemoryPubSub(16)
	defer ps.Close()

	received := make(chan struct{}, 1)
	ps.Subscribe("a", func(msg []byte) { received <- struct{}{} })
	ps.Publish("b", []byte("x"))

	select {
	case <-received:
		t.Fatal("subscriber of topic a received a message for topic b")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPubSub_DoubleUnsubscribe(t *testing.T) {
	ps := NewMemoryPubSub(16)
	defer ps.Close()

	sub, err := ps.Subscribe("topic", func(msg []byte) {})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := sub.Unsubscribe(); err != nil {
			t.Errorf("Unsubscribe #%d: %v", i+1, err)
		}
	}
	if n := ps.SubscriberCount("topic"); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
}

func TestPubSub_ClosedRejects(t *testing.T) {
	ps := NewMemoryPubSub(16)
	ps.Close()

	if _, err := ps.Subscribe("topic", func([]byte) {}); err != ErrPubSubClosed {
		t.Errorf("Subscribe after Close: got %v, want ErrPubSubClosed", err)
	}
	if err := ps.Publish("topic", nil); err != ErrPubSubClosed {
		t.Errorf("Publish after Close: got %v, want ErrPubSubClosed", err)
	}
}

func TestPubSub_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	ps := NewMemoryPubSub(4)
	defer ps.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub, err := ps.Subscribe("topic", func([]byte) {})
				if err != nil {
					t.Errorf("Subscribe: %v", err)
					return
				}
				ps.Publish("topic", []byte("m"))
				sub.Unsubscribe()
			}
		}()
	}
	wg.Wait()
}
