package aggregates

import (
	"fmt"

	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
)

// treeApplier re-runs recorded events against a tree through the same
// operations that produced them, so every invariant is rechecked on replay.
type treeApplier struct {
	tree *Tree
}

var _ events.TreeEventVisitor = (*treeApplier)(nil)

func (a *treeApplier) VisitNodeAdded(e events.NodeAdded) error {
	node, err := entities.NewNode(e.NodeID, e.Name)
	if err != nil {
		return err
	}
	return a.tree.Insert(node)
}

func (a *treeApplier) VisitNodeUpdated(e events.NodeUpdated) error {
	node, err := entities.NodeFromData(e.Node)
	if err != nil {
		return err
	}
	return a.tree.Update(node)
}

func (a *treeApplier) VisitNodeRemoved(e events.NodeRemoved) error {
	return a.tree.Delete(e.NodeID)
}

func (a *treeApplier) VisitParentEdgeAdded(e events.ParentEdgeAdded) error {
	return a.tree.AddParent(e.ChildID, e.ParentID)
}

func (a *treeApplier) VisitTreesMerged(e events.TreesMerged) error {
	_, err := a.tree.MergeFrom(e.SourceTreeID, e.Base, e.Source)
	return err
}

// Rehydrate rebuilds a tree by replaying its event stream from empty
func Rehydrate(id valueobjects.TreeID, policy EdgePolicy, cfg *config.DomainConfig, stream []events.TreeEvent) (*Tree, error) {
	t := NewTreeWithConfig(id, policy, cfg)
	if err := t.Replay(stream); err != nil {
		return nil, err
	}
	return t, nil
}

// Replay applies events on top of the tree's current state. Events at or
// below the tree's version are skipped, which lets a stored snapshot be
// combined with the tail of the stream. The replayed events are not
// re-emitted as uncommitted.
func (t *Tree) Replay(stream []events.TreeEvent) error {
	pending := len(t.events)
	applier := &treeApplier{tree: t}
	for _, e := range stream {
		if e.GetVersion() <= t.version {
			continue
		}
		if err := e.Accept(applier); err != nil {
			return fmt.Errorf("replay %s at version %d: %w", e.GetEventType(), e.GetVersion(), err)
		}
		t.version = e.GetVersion()
		// Each recorded event closed its own write, so deleted ids are
		// free again for the next one.
		t.CommitSession()
	}
	t.events = t.events[:pending]
	return nil
}
