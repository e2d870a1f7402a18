package infrastructure

import (
	"context"

	"fortune/events"
)

// NoopEventPublisher is an event publisher that does nothing.
// Used when no NATS servers are configured.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(ctx context.Context, event events.Event) error {
	return nil
}
