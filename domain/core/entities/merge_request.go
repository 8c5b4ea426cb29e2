package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// MergeRequestStatus tracks a merge request through review
type MergeRequestStatus string

const (
	MergeRequestPending  MergeRequestStatus = "pending"
	MergeRequestAccepted MergeRequestStatus = "accepted"
)

// MergeRequest asks for one tree to be merged into another
type MergeRequest struct {
	ID          string              `json:"id" dynamodbav:"RequestID"`
	SourceID    valueobjects.TreeID `json:"sourceTreeId" dynamodbav:"SourceID"`
	TargetID    valueobjects.TreeID `json:"targetTreeId" dynamodbav:"TargetID"`
	RequestedBy valueobjects.UserID `json:"requestedBy" dynamodbav:"RequestedBy"`
	Status      MergeRequestStatus  `json:"status" dynamodbav:"Status"`
	CreatedAt   time.Time           `json:"createdAt" dynamodbav:"CreatedAt"`
	ResolvedAt  *time.Time          `json:"resolvedAt,omitempty" dynamodbav:"ResolvedAt,omitempty"`
}

// NewMergeRequest creates a pending request
func NewMergeRequest(sourceID, targetID valueobjects.TreeID, requestedBy valueobjects.UserID) (*MergeRequest, error) {
	if sourceID == targetID {
		return nil, pkgerrors.NewValidationError("cannot merge a tree into itself")
	}
	return &MergeRequest{
		ID:          uuid.New().String(),
		SourceID:    sourceID,
		TargetID:    targetID,
		RequestedBy: requestedBy,
		Status:      MergeRequestPending,
		CreatedAt:   time.Now(),
	}, nil
}

// IsPending reports whether the request awaits a merge
func (r *MergeRequest) IsPending() bool {
	return r.Status == MergeRequestPending
}

// Accept marks the request as fulfilled by a merge
func (r *MergeRequest) Accept() error {
	if !r.IsPending() {
		return pkgerrors.NewConflictError(fmt.Sprintf("merge request %s is already %s", r.ID, r.Status))
	}
	now := time.Now()
	r.Status = MergeRequestAccepted
	r.ResolvedAt = &now
	return nil
}
