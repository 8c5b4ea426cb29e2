package memory

import (
	"context"
	"sync"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
)

// InMemoryHistoryRepository keeps audit records per tree in write order
type InMemoryHistoryRepository struct {
	mu      sync.RWMutex
	records map[valueobjects.TreeID][]events.HistoryRecorded
}

var _ ports.HistoryRepository = (*InMemoryHistoryRepository)(nil)

// NewInMemoryHistoryRepository creates a new in-memory history repository
func NewInMemoryHistoryRepository() *InMemoryHistoryRepository {
	return &InMemoryHistoryRepository{
		records: make(map[valueobjects.TreeID][]events.HistoryRecorded),
	}
}

// Record appends an audit record
func (r *InMemoryHistoryRepository) Record(ctx context.Context, entry events.HistoryRecorded) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	treeID := valueobjects.TreeID(entry.GetAggregateID())
	r.records[treeID] = append(r.records[treeID], entry)
	return nil
}

// ListByTree returns the newest records first; limit <= 0 returns all
func (r *InMemoryHistoryRepository) ListByTree(ctx context.Context, treeID valueobjects.TreeID, limit int) ([]events.HistoryRecorded, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.records[treeID]
	out := make([]events.HistoryRecorded, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, stored[i])
	}
	return out, nil
}
