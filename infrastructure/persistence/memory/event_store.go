package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// InMemoryEventStore keeps tree event streams as encoded envelopes, so
// reads go through the same codec as the DynamoDB store.
type InMemoryEventStore struct {
	mu      sync.RWMutex
	streams map[valueobjects.TreeID][]events.Envelope
}

var _ ports.EventStore = (*InMemoryEventStore)(nil)

// NewInMemoryEventStore creates a new in-memory event store
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		streams: make(map[valueobjects.TreeID][]events.Envelope),
	}
}

// AppendEvents adds events to a stream if its last version is expectedVersion
func (s *InMemoryEventStore) AppendEvents(ctx context.Context, treeID valueobjects.TreeID, expectedVersion int, evts []events.TreeEvent) error {
	if len(evts) == 0 {
		return nil
	}

	envelopes := make([]events.Envelope, 0, len(evts))
	for _, e := range evts {
		env, err := events.Encode(e)
		if err != nil {
			return err
		}
		envelopes = append(envelopes, env)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[treeID]
	current := 0
	if len(stream) > 0 {
		current = stream[len(stream)-1].Version
	}
	if current != expectedVersion {
		return pkgerrors.NewConflictError(fmt.Sprintf("event stream for tree %s is at version %d, expected %d", treeID, current, expectedVersion))
	}

	s.streams[treeID] = append(stream, envelopes...)
	return nil
}

// LoadEvents returns the full stream in version order
func (s *InMemoryEventStore) LoadEvents(ctx context.Context, treeID valueobjects.TreeID) ([]events.TreeEvent, error) {
	return s.LoadEventsAfter(ctx, treeID, 0)
}

// LoadEventsAfter returns events with a version greater than version
func (s *InMemoryEventStore) LoadEventsAfter(ctx context.Context, treeID valueobjects.TreeID, version int) ([]events.TreeEvent, error) {
	s.mu.RLock()
	stream := s.streams[treeID]
	s.mu.RUnlock()

	out := make([]events.TreeEvent, 0, len(stream))
	for _, env := range stream {
		if env.Version <= version {
			continue
		}
		e, err := events.Decode(env)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
