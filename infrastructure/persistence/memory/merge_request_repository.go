package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// InMemoryMergeRequestRepository provides an in-memory implementation of
// MergeRequestRepository
type InMemoryMergeRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]entities.MergeRequest
}

var _ ports.MergeRequestRepository = (*InMemoryMergeRequestRepository)(nil)

// NewInMemoryMergeRequestRepository creates a new in-memory merge request repository
func NewInMemoryMergeRequestRepository() *InMemoryMergeRequestRepository {
	return &InMemoryMergeRequestRepository{
		requests: make(map[string]entities.MergeRequest),
	}
}

// Save inserts or replaces a request
func (r *InMemoryMergeRequestRepository) Save(ctx context.Context, req *entities.MergeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests[req.ID] = *req
	return nil
}

// GetByID loads a request
func (r *InMemoryMergeRequestRepository) GetByID(ctx context.Context, id string) (*entities.MergeRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, exists := r.requests[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError("merge request " + id)
	}
	return &req, nil
}

// FindPending returns the pending requests for a source/target pair
func (r *InMemoryMergeRequestRepository) FindPending(ctx context.Context, sourceID, targetID valueobjects.TreeID) ([]*entities.MergeRequest, error) {
	return r.filter(func(req entities.MergeRequest) bool {
		return req.IsPending() && req.SourceID == sourceID && req.TargetID == targetID
	}), nil
}

// ListByTarget returns every request made against a target, oldest first
func (r *InMemoryMergeRequestRepository) ListByTarget(ctx context.Context, targetID valueobjects.TreeID) ([]*entities.MergeRequest, error) {
	return r.filter(func(req entities.MergeRequest) bool {
		return req.TargetID == targetID
	}), nil
}

func (r *InMemoryMergeRequestRepository) filter(keep func(entities.MergeRequest) bool) []*entities.MergeRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.MergeRequest, 0)
	for _, req := range r.requests {
		if keep(req) {
			req := req
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
