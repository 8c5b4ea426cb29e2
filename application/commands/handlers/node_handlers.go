package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/services"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// HandleAddNode inserts a node, with any edges it is created with
func (h *TreeCommandHandler) HandleAddNode(ctx context.Context, cmd commands.AddNodeCommand) error {
	entry, err := h.store.authorizeEntry(ctx, services.OpAddNode, cmd, cmd.Actor, valueobjects.TreeID(cmd.TreeID))
	if err != nil {
		return err
	}

	node, err := nodeFromFields(cmd.NodeFields)
	if err != nil {
		return err
	}
	if err := entry.Tree().Insert(node); err != nil {
		return err
	}
	entry.Touch()

	if err := h.store.commit(ctx, cmd.Actor, entry); err != nil {
		return err
	}

	h.logger.Info("Node added",
		zap.String("treeID", cmd.TreeID),
		zap.String("nodeID", cmd.NodeID),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// HandleUpdateNode replaces a node's name and edge sets. A write that would
// close a cycle leaves the stored tree as it was.
func (h *TreeCommandHandler) HandleUpdateNode(ctx context.Context, cmd commands.UpdateNodeCommand) error {
	entry, err := h.store.authorizeEntry(ctx, services.OpUpdateNode, cmd, cmd.Actor, valueobjects.TreeID(cmd.TreeID))
	if err != nil {
		return err
	}

	node, err := nodeFromFields(cmd.NodeFields)
	if err != nil {
		return err
	}
	if err := entry.Tree().Update(node); err != nil {
		return err
	}
	if len(entry.Tree().GetUncommittedEvents()) == 0 {
		return nil
	}
	entry.Touch()

	if err := h.store.commit(ctx, cmd.Actor, entry); err != nil {
		return err
	}

	h.logger.Info("Node updated",
		zap.String("treeID", cmd.TreeID),
		zap.String("nodeID", cmd.NodeID),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// HandleRemoveNode deletes a node; its children move up to its parents
func (h *TreeCommandHandler) HandleRemoveNode(ctx context.Context, cmd commands.RemoveNodeCommand) error {
	entry, err := h.store.authorizeEntry(ctx, services.OpRemoveNode, cmd, cmd.Actor, valueobjects.TreeID(cmd.TreeID))
	if err != nil {
		return err
	}

	nodeID := valueobjects.NodeID(cmd.NodeID)
	children := entry.Tree().GetChildren(nodeID)
	if err := entry.Tree().Delete(nodeID); err != nil {
		return err
	}
	entry.Touch()

	if err := h.store.commit(ctx, cmd.Actor, entry); err != nil {
		return err
	}

	h.logger.Info("Node removed",
		zap.String("treeID", cmd.TreeID),
		zap.String("nodeID", cmd.NodeID),
		zap.Int("reparented", len(children)),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// HandleAddParentEdge attaches a parent to a child
func (h *TreeCommandHandler) HandleAddParentEdge(ctx context.Context, cmd commands.AddParentEdgeCommand) error {
	entry, err := h.store.authorizeEntry(ctx, services.OpAddParentEdge, cmd, cmd.Actor, valueobjects.TreeID(cmd.TreeID))
	if err != nil {
		return err
	}

	if err := entry.Tree().AddParent(valueobjects.NodeID(cmd.ChildID), valueobjects.NodeID(cmd.ParentID)); err != nil {
		return err
	}
	if len(entry.Tree().GetUncommittedEvents()) == 0 {
		return nil
	}
	entry.Touch()

	if err := h.store.commit(ctx, cmd.Actor, entry); err != nil {
		return err
	}

	h.logger.Info("Parent edge added",
		zap.String("treeID", cmd.TreeID),
		zap.String("childID", cmd.ChildID),
		zap.String("parentID", cmd.ParentID),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

func nodeFromFields(f commands.NodeFields) (*entities.Node, error) {
	nodeID, err := valueobjects.NewNodeIDFromString(f.NodeID)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}
	node, err := entities.NewNode(nodeID, f.Name)
	if err != nil {
		return nil, err
	}

	edges := map[valueobjects.EdgeKind][]string{
		valueobjects.EdgeParent:      f.Parents,
		valueobjects.EdgeDerivedFrom: f.DerivedFrom,
		valueobjects.EdgeInfluences:  f.Influences,
	}
	for kind, targets := range edges {
		for _, target := range targets {
			node.AddEdge(kind, valueobjects.NodeID(target))
		}
	}
	return node, nil
}
