package events

import (
	"time"

	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
)

// Event type names for the tree event vocabulary
const (
	TypeNodeAdded       = "tree.node_added"
	TypeNodeUpdated     = "tree.node_updated"
	TypeNodeRemoved     = "tree.node_removed"
	TypeParentEdgeAdded = "tree.parent_edge_added"
	TypeTreesMerged     = "tree.trees_merged"
)

// TreeEvent is the closed set of events a tree can be rebuilt from.
// The unexported marker keeps the set closed to this package, and every
// applier implements TreeEventVisitor, so adding a kind here breaks the
// build until each applier handles it.
type TreeEvent interface {
	DomainEvent
	Accept(v TreeEventVisitor) error
	treeEvent()
}

// TreeEventVisitor handles each tree event kind
type TreeEventVisitor interface {
	VisitNodeAdded(e NodeAdded) error
	VisitNodeUpdated(e NodeUpdated) error
	VisitNodeRemoved(e NodeRemoved) error
	VisitParentEdgeAdded(e ParentEdgeAdded) error
	VisitTreesMerged(e TreesMerged) error
}

// NodeAdded is raised when a node is inserted into a tree
type NodeAdded struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"id"`
	Name   string              `json:"name"`
}

// NewNodeAdded creates a NodeAdded event
func NewNodeAdded(treeID valueobjects.TreeID, version int, nodeID valueobjects.NodeID, name string, timestamp time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent: newBase(treeID.String(), TypeNodeAdded, version, timestamp),
		NodeID:    nodeID,
		Name:      name,
	}
}

func (e NodeAdded) Accept(v TreeEventVisitor) error { return v.VisitNodeAdded(e) }
func (NodeAdded) treeEvent()                        {}

// NodeUpdated carries the full post-update state of a node
type NodeUpdated struct {
	BaseEvent
	Node entities.NodeData `json:"node"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(treeID valueobjects.TreeID, version int, node entities.NodeData, timestamp time.Time) NodeUpdated {
	return NodeUpdated{
		BaseEvent: newBase(treeID.String(), TypeNodeUpdated, version, timestamp),
		Node:      node,
	}
}

func (e NodeUpdated) Accept(v TreeEventVisitor) error { return v.VisitNodeUpdated(e) }
func (NodeUpdated) treeEvent()                        {}

// NodeRemoved is raised when a node is deleted (its children are reparented)
type NodeRemoved struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"id"`
}

// NewNodeRemoved creates a NodeRemoved event
func NewNodeRemoved(treeID valueobjects.TreeID, version int, nodeID valueobjects.NodeID, timestamp time.Time) NodeRemoved {
	return NodeRemoved{
		BaseEvent: newBase(treeID.String(), TypeNodeRemoved, version, timestamp),
		NodeID:    nodeID,
	}
}

func (e NodeRemoved) Accept(v TreeEventVisitor) error { return v.VisitNodeRemoved(e) }
func (NodeRemoved) treeEvent()                        {}

// ParentEdgeAdded is raised when a parent edge is attached to a child
type ParentEdgeAdded struct {
	BaseEvent
	ParentID valueobjects.NodeID `json:"parentId"`
	ChildID  valueobjects.NodeID `json:"childId"`
}

// NewParentEdgeAdded creates a ParentEdgeAdded event
func NewParentEdgeAdded(treeID valueobjects.TreeID, version int, parentID, childID valueobjects.NodeID, timestamp time.Time) ParentEdgeAdded {
	return ParentEdgeAdded{
		BaseEvent: newBase(treeID.String(), TypeParentEdgeAdded, version, timestamp),
		ParentID:  parentID,
		ChildID:   childID,
	}
}

func (e ParentEdgeAdded) Accept(v TreeEventVisitor) error { return v.VisitParentEdgeAdded(e) }
func (ParentEdgeAdded) treeEvent()                        {}

// TreesMerged records a three-way merge; replaying it re-runs the merge
type TreesMerged struct {
	BaseEvent
	SourceTreeID valueobjects.TreeID `json:"sourceTreeId,omitempty"`
	Source       entities.Snapshot   `json:"sourceSnapshot"`
	Base         entities.Snapshot   `json:"baseSnapshot"`
}

// NewTreesMerged creates a TreesMerged event
func NewTreesMerged(treeID valueobjects.TreeID, version int, sourceTreeID valueobjects.TreeID, source, base entities.Snapshot, timestamp time.Time) TreesMerged {
	return TreesMerged{
		BaseEvent:    newBase(treeID.String(), TypeTreesMerged, version, timestamp),
		SourceTreeID: sourceTreeID,
		Source:       source,
		Base:         base,
	}
}

func (e TreesMerged) Accept(v TreeEventVisitor) error { return v.VisitTreesMerged(e) }
func (TreesMerged) treeEvent()                        {}
