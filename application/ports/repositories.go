package ports

import (
	"context"

	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
)

// TreeRepository persists registry entries together with a snapshot of
// their tree. This is a port in hexagonal architecture; the domain does not
// know about the implementation.
type TreeRepository interface {
	// Create stores a new entry; a taken id yields *TreeAlreadyExistsError
	Create(ctx context.Context, entry *aggregates.TreeEntry) error

	// Save stores an existing entry if its stored version still equals
	// entry.Version(), then increments the version. A lost update yields a
	// CONFLICT AppError.
	Save(ctx context.Context, entry *aggregates.TreeEntry) error

	// SaveAll saves several entries atomically with the same version rules
	SaveAll(ctx context.Context, entries ...*aggregates.TreeEntry) error

	// GetByID loads an entry; a missing id yields *TreeNotFoundError
	GetByID(ctx context.Context, id valueobjects.TreeID) (*aggregates.TreeEntry, error)

	// Exists reports whether an id is taken
	Exists(ctx context.Context, id valueobjects.TreeID) (bool, error)

	// GetMain returns the entry flagged main, or nil if there is none
	GetMain(ctx context.Context) (*aggregates.TreeEntry, error)

	// List returns every entry ordered by id
	List(ctx context.Context) ([]*aggregates.TreeEntry, error)
}

// EventStore keeps the ordered stream of tree events a tree can be
// rehydrated from
type EventStore interface {
	// AppendEvents adds events to a tree's stream. expectedVersion is the
	// version of the last stored event; a mismatch yields a CONFLICT AppError.
	AppendEvents(ctx context.Context, treeID valueobjects.TreeID, expectedVersion int, evts []events.TreeEvent) error

	// LoadEvents returns the full stream in version order
	LoadEvents(ctx context.Context, treeID valueobjects.TreeID) ([]events.TreeEvent, error)

	// LoadEventsAfter returns events with a version greater than version
	LoadEventsAfter(ctx context.Context, treeID valueobjects.TreeID, version int) ([]events.TreeEvent, error)
}

// MergeRequestRepository persists merge requests
type MergeRequestRepository interface {
	Save(ctx context.Context, req *entities.MergeRequest) error
	GetByID(ctx context.Context, id string) (*entities.MergeRequest, error)
	FindPending(ctx context.Context, sourceID, targetID valueobjects.TreeID) ([]*entities.MergeRequest, error)
	ListByTarget(ctx context.Context, targetID valueobjects.TreeID) ([]*entities.MergeRequest, error)
}

// HistoryRepository is the audit collaborator: it stores the per-node
// before/after records of each successful write
type HistoryRepository interface {
	Record(ctx context.Context, entry events.HistoryRecorded) error
	ListByTree(ctx context.Context, treeID valueobjects.TreeID, limit int) ([]events.HistoryRecorded, error)
}

// EventBus publishes domain events to other services
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, evts []events.DomainEvent) error
}
