package memory

import (
	"context"
	"sync"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/events"
)

// InMemoryEventBus collects published events. It backs local runs without
// EventBridge and lets tests assert on what a command published.
type InMemoryEventBus struct {
	mu        sync.RWMutex
	published []events.DomainEvent
}

var _ ports.EventBus = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{}
}

// Publish records one event
func (b *InMemoryEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch records events in order
func (b *InMemoryEventBus) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published = append(b.published, evts...)
	return nil
}

// Published returns a copy of everything published so far
func (b *InMemoryEventBus) Published() []events.DomainEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]events.DomainEvent, len(b.published))
	copy(out, b.published)
	return out
}

// EventTypes returns the type of every published event, in order
func (b *InMemoryEventBus) EventTypes() []string {
	published := b.Published()
	types := make([]string, len(published))
	for i, e := range published {
		types[i] = e.GetEventType()
	}
	return types
}
