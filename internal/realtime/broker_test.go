package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func collect(t *testing.T, sub *Subscription, n int) []Event {
	t.Helper()
	events := make([]Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case e, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscription closed after %d events, want %d", len(events), n)
			}
			events = append(events, e)
		case <-timeout:
			t.Fatalf("timed out after %d events, want %d", len(events), n)
		}
	}
	return events
}

func TestBroker_PublishOrdering(t *testing.T) {
	b := NewBroker(nil, "test", nil)
	defer b.Close()

	sub := b.Subscribe("topic", 8)
	defer sub.Unsubscribe()

	for i := 0; i < 5; i++ {
		b.Publish(context.Background(), "topic", KindAppend, map[string]int{"i": i})
	}

	events := collect(t, sub, 5)
	for i, e := range events {
		var payload map[string]int
		if err := json.Unmarshal(e.Data, &payload); err != nil {
			t.Fatalf("unexpected payload: %v", err)
		}
		if payload["i"] != i {
			t.Fatalf("event %d out of order: got %d", i, payload["i"])
		}
	}
}

func TestBroker_TopicIsolation(t *testing.T) {
	b := NewBroker(nil, "test", nil)
	defer b.Close()

	subA := b.Subscribe("a", 8)
	defer subA.Unsubscribe()
	subB := b.Subscribe("b", 8)
	defer subB.Unsubscribe()

	b.Publish(context.Background(), "a", KindChanged, nil)

	events := collect(t, subA, 1)
	if events[0].Topic != "a" {
		t.Fatalf("unexpected topic: %q", events[0].Topic)
	}

	select {
	case e := <-subB.C:
		t.Fatalf("topic b received stray event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_UnsubscribeIdempotent(t *testing.T) {
	b := NewBroker(nil, "test", nil)
	defer b.Close()

	sub := b.Subscribe("topic", 1)
	sub.Unsubscribe()
	sub.Unsubscribe() // second call must not panic

	if _, ok := <-sub.C; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not deliver or panic.
	b.Publish(context.Background(), "topic", KindChanged, nil)
}

func TestBroker_SlowConsumerDropped(t *testing.T) {
	b := NewBroker(nil, "test", nil)
	defer b.Close()

	sub := b.Subscribe("topic", 1)

	// Fill the buffer, then overflow it.
	b.Publish(context.Background(), "topic", KindAppend, nil)
	b.Publish(context.Background(), "topic", KindAppend, nil)

	// The subscription is dropped: after draining, the channel closes.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("expected slow subscriber to be dropped")
		}
	}
}

func TestBroker_SubscribeAfterClose(t *testing.T) {
	b := NewBroker(nil, "test", nil)
	b.Close()

	sub := b.Subscribe("topic", 1)
	if _, ok := <-sub.C; ok {
		t.Fatal("subscription on a closed broker must be pre-closed")
	}
}

func TestBroker_UnmarshalablePayloadDropped(t *testing.T) {
	b := NewBroker(nil, "test", nil)
	defer b.Close()

	sub := b.Subscribe("topic", 1)
	defer sub.Unsubscribe()

	b.Publish(context.Background(), "topic", KindAppend, func() {})

	select {
	case e := <-sub.C:
		t.Fatalf("unmarshalable payload should be dropped, got %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}
