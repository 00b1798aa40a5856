package services

import "context"

// EventPublisher is the slice of the realtime broker the services need.
// Publishing is fire-and-forget; a nil publisher disables fan-out (tests).
type EventPublisher interface {
	Publish(ctx context.Context, topic, kind string, payload any)
}

func publish(ctx context.Context, p EventPublisher, topic, kind string, payload any) {
	if p != nil {
		p.Publish(ctx, topic, kind, payload)
	}
}
