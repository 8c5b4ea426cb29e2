package events

import (
	"time"

	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
)

// TreeCreated is raised when a tree is registered
type TreeCreated struct {
	BaseEvent
	TreeID  valueobjects.TreeID `json:"tree_id"`
	Name    string              `json:"name"`
	OwnerID valueobjects.UserID `json:"owner_id"`
}

// NewTreeCreated creates a TreeCreated event
func NewTreeCreated(treeID valueobjects.TreeID, name string, ownerID valueobjects.UserID, timestamp time.Time) TreeCreated {
	return TreeCreated{
		BaseEvent: newBase(treeID.String(), "registry.tree_created", 1, timestamp),
		TreeID:    treeID,
		Name:      name,
		OwnerID:   ownerID,
	}
}

// TreeCopied is raised when a tree is copied from another
type TreeCopied struct {
	BaseEvent
	TreeID   valueobjects.TreeID `json:"tree_id"`
	SourceID valueobjects.TreeID `json:"source_id"`
	OwnerID  valueobjects.UserID `json:"owner_id"`
}

// NewTreeCopied creates a TreeCopied event
func NewTreeCopied(treeID, sourceID valueobjects.TreeID, ownerID valueobjects.UserID, timestamp time.Time) TreeCopied {
	return TreeCopied{
		BaseEvent: newBase(treeID.String(), "registry.tree_copied", 1, timestamp),
		TreeID:    treeID,
		SourceID:  sourceID,
		OwnerID:   ownerID,
	}
}

// TreeRenamed is raised when a tree's display name changes
type TreeRenamed struct {
	BaseEvent
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// NewTreeRenamed creates a TreeRenamed event
func NewTreeRenamed(treeID valueobjects.TreeID, version int, oldName, newName string, timestamp time.Time) TreeRenamed {
	return TreeRenamed{
		BaseEvent: newBase(treeID.String(), "registry.tree_renamed", version, timestamp),
		OldName:   oldName,
		NewName:   newName,
	}
}

// MainTreeSet is raised when a tree becomes the canonical tree
type MainTreeSet struct {
	BaseEvent
	PreviousMain valueobjects.TreeID `json:"previous_main,omitempty"`
}

// NewMainTreeSet creates a MainTreeSet event
func NewMainTreeSet(treeID, previous valueobjects.TreeID, timestamp time.Time) MainTreeSet {
	return MainTreeSet{
		BaseEvent:    newBase(treeID.String(), "registry.main_tree_set", 1, timestamp),
		PreviousMain: previous,
	}
}

// MergeRequested is raised when a caller asks for source to be merged into target
type MergeRequested struct {
	BaseEvent
	RequestID   string              `json:"request_id"`
	SourceID    valueobjects.TreeID `json:"source_id"`
	RequestedBy valueobjects.UserID `json:"requested_by"`
}

// NewMergeRequested creates a MergeRequested event
func NewMergeRequested(requestID string, sourceID, targetID valueobjects.TreeID, requestedBy valueobjects.UserID, timestamp time.Time) MergeRequested {
	return MergeRequested{
		BaseEvent:   newBase(targetID.String(), "registry.merge_requested", 1, timestamp),
		RequestID:   requestID,
		SourceID:    sourceID,
		RequestedBy: requestedBy,
	}
}

// NodeChange is the before/after record of one node touched in a session
type NodeChange struct {
	NodeID valueobjects.NodeID `json:"node_id"`
	Status entities.NodeStatus `json:"status"`
	Before *entities.NodeData  `json:"before,omitempty"`
	After  *entities.NodeData  `json:"after,omitempty"`
}

// HistoryRecorded hands a session's node changes to the audit trail
type HistoryRecorded struct {
	BaseEvent
	UserID  valueobjects.UserID `json:"user_id"`
	Changes []NodeChange        `json:"changes"`
}

// NewHistoryRecorded creates a HistoryRecorded event
func NewHistoryRecorded(treeID valueobjects.TreeID, version int, userID valueobjects.UserID, changes []NodeChange, timestamp time.Time) HistoryRecorded {
	return HistoryRecorded{
		BaseEvent: newBase(treeID.String(), "history.recorded", version, timestamp),
		UserID:    userID,
		Changes:   changes,
	}
}
