// Package channel provides a buffered in-process event bus, used by tests
// and by applications embedding the starter without an external broker.
package channel

import (
	"context"

	"github.com/lei/suite-starter/internal/models"
)

// EventBus is a buffered in-process TERCC event bus
type EventBus struct {
	ch chan models.Event
}

// NewEventBus creates a bus with the given buffer size
func NewEventBus(buffer int) *EventBus {
	return &EventBus{
		ch: make(chan models.Event, buffer),
	}
}

// Emit publishes an event, blocking until there is buffer space or the
// context is cancelled
func (b *EventBus) Emit(ctx context.Context, event models.Event) error {
	select {
	case b.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Channel exposes the receive side of the bus
func (b *EventBus) Channel() <-chan models.Event {
	return b.ch
}
