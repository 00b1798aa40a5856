// Package realtime implements the push fan-out behind every watch operation:
// an in-process topic broker bridged across instances over a Redis pub/sub
// channel. Delivery is ordered per stream and at-least-once; subscribers must
// replace state wholesale per emission rather than diff.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/AzimPial/Chat-Us/internal/logging"
)

// Event is one emission on a topic stream.
type Event struct {
	Topic string          `json:"topic"`
	Kind  string          `json:"kind"` // "append", "update", "changed", "snapshot"
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	KindAppend   = "append"
	KindUpdate   = "update"
	KindChanged  = "changed"
	KindSnapshot = "snapshot"
)

const redisChannel = "chatus:events"

// Broker fans events out to every live subscription of a topic. When a Redis
// client is configured, every publish is also pushed through a shared pub/sub
// channel so subscribers on other instances see it; the publishing instance
// skips its own bridged copies.
type Broker struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	closed     bool
	redis      *redis.Client
	instanceID string
	logger     *logging.Logger
}

type bridgeEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// NewBroker creates a broker. redisClient may be nil for single-instance
// deployments and tests; instanceID distinguishes this process on the bridge.
func NewBroker(redisClient *redis.Client, instanceID string, logger *logging.Logger) *Broker {
	if logger == nil {
		logger = logging.Default
	}
	return &Broker{
		subs:       make(map[string]map[*Subscription]struct{}),
		redis:      redisClient,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Subscription is one live stream of events for a single topic. C is closed
// after Unsubscribe or when the subscriber falls too far behind.
type Subscription struct {
	C      <-chan Event
	topic  string
	ch     chan Event
	broker *Broker
	once   sync.Once
}

// Topic returns the topic this subscription is attached to.
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe detaches the stream. It is idempotent and safe to call
// concurrently with delivery; no events are delivered after it returns.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s)
		close(s.ch)
	})
}

// Subscribe registers a new stream on topic. buffer bounds how far the
// subscriber may lag before it is dropped.
func (b *Broker) Subscribe(topic string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, ch: ch, topic: topic, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		// Already shut down; hand back a pre-closed stream.
		sub.once.Do(func() { close(ch) })
		return sub
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.topic)
		}
	}
}

// Publish marshals payload and delivers it to local subscribers of topic,
// then pushes it over the Redis bridge when one is configured. Marshal
// failures are logged and dropped; publishing never blocks on a subscriber.
func (b *Broker) Publish(ctx context.Context, topic, kind string, payload any) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			b.logger.Error("Dropping event with unmarshalable payload", map[string]interface{}{
				"topic": topic, "kind": kind, "error": err.Error(),
			})
			return
		}
		data = raw
	}
	event := Event{Topic: topic, Kind: kind, Data: data}

	b.dispatch(event)

	if b.redis != nil {
		envelope, err := json.Marshal(bridgeEnvelope{Origin: b.instanceID, Event: event})
		if err != nil {
			return
		}
		if err := b.redis.Publish(ctx, redisChannel, envelope).Err(); err != nil {
			b.logger.Warn("Redis bridge publish failed", map[string]interface{}{
				"topic": topic, "error": err.Error(),
			})
		}
	}
}

func (b *Broker) dispatch(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[event.Topic] {
		select {
		case sub.ch <- event:
		default:
			// Subscriber fell behind; drop it. It re-syncs with a fresh
			// snapshot on resubscribe.
			delete(b.subs[event.Topic], sub)
			s := sub
			go s.Unsubscribe()
		}
	}
}

// RunBridge consumes the shared Redis channel and re-dispatches events that
// originated on other instances. It returns when ctx is cancelled. Calling it
// without a Redis client is a no-op.
func (b *Broker) RunBridge(ctx context.Context) {
	if b.redis == nil {
		return
	}
	pubsub := b.redis.Subscribe(ctx, redisChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Warn("Malformed bridge event", map[string]interface{}{"error": err.Error()})
				continue
			}
			if envelope.Origin == b.instanceID {
				continue
			}
			b.dispatch(envelope.Event)
		}
	}
}

// Close drops every subscription. Further publishes are discarded.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*Subscription
	for _, set := range b.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.subs = make(map[string]map[*Subscription]struct{})
	b.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}
