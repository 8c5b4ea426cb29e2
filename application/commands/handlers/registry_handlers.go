package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands"
	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/services"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// HandleCreateTree registers a new, empty tree owned by the caller
func (h *TreeCommandHandler) HandleCreateTree(ctx context.Context, cmd commands.CreateTreeCommand) error {
	treeID := valueobjects.TreeID(cmd.TreeID)
	if err := h.store.authorize(services.OpCreateTree, cmd, cmd.Actor, treeID); err != nil {
		return err
	}

	name, err := valueobjects.NewTreeName(cmd.Name)
	if err != nil {
		return err
	}

	kind, err := valueobjects.ParseTreeKind(cmd.Kind)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	exists, err := h.store.trees.Exists(ctx, treeID)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to check tree existence")
	}
	if exists {
		return &pkgerrors.TreeAlreadyExistsError{TreeID: cmd.TreeID}
	}

	entry, err := aggregates.NewTreeEntry(treeID, name, cmd.User(), kind, h.cfg)
	if err != nil {
		return err
	}
	if err := h.store.create(ctx, cmd.Actor, entry); err != nil {
		return err
	}

	h.logger.Info("Tree created",
		zap.String("treeID", cmd.TreeID),
		zap.String("kind", string(kind)),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// HandleCopyTree creates a new tree holding the source tree's nodes and edges
func (h *TreeCommandHandler) HandleCopyTree(ctx context.Context, cmd commands.CopyTreeCommand) error {
	treeID := valueobjects.TreeID(cmd.TreeID)
	if err := h.store.authorize(services.OpCopyTree, cmd, cmd.Actor, treeID); err != nil {
		return err
	}

	name, err := valueobjects.NewTreeName(cmd.Name)
	if err != nil {
		return err
	}

	source, err := h.store.load(ctx, valueobjects.TreeID(cmd.SourceTreeID))
	if err != nil {
		return err
	}

	exists, err := h.store.trees.Exists(ctx, treeID)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to check tree existence")
	}
	if exists {
		return &pkgerrors.TreeAlreadyExistsError{TreeID: cmd.TreeID}
	}

	copied, err := source.Copy(treeID, name, cmd.User())
	if err != nil {
		return err
	}
	if err := h.store.create(ctx, cmd.Actor, copied); err != nil {
		return err
	}

	h.logger.Info("Tree copied",
		zap.String("treeID", cmd.TreeID),
		zap.String("sourceTreeID", cmd.SourceTreeID),
		zap.Int("nodes", copied.Tree().Len()),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// HandleRenameTree changes a tree's display name
func (h *TreeCommandHandler) HandleRenameTree(ctx context.Context, cmd commands.RenameTreeCommand) error {
	entry, err := h.store.authorizeEntry(ctx, services.OpRenameTree, cmd, cmd.Actor, valueobjects.TreeID(cmd.TreeID))
	if err != nil {
		return err
	}

	name, err := valueobjects.NewTreeName(cmd.Name)
	if err != nil {
		return err
	}
	if err := entry.Rename(name); err != nil {
		return err
	}
	if len(entry.GetUncommittedEvents()) == 0 {
		return nil
	}

	return h.store.commit(ctx, cmd.Actor, entry)
}

// HandleSetMainTree flags a tree as the canonical one, clearing the flag
// from whichever tree held it before
func (h *TreeCommandHandler) HandleSetMainTree(ctx context.Context, cmd commands.SetMainTreeCommand) error {
	treeID := valueobjects.TreeID(cmd.TreeID)
	if err := h.store.authorize(services.OpSetMainTree, cmd, cmd.Actor, treeID); err != nil {
		return err
	}

	entry, err := h.store.load(ctx, treeID)
	if err != nil {
		return err
	}
	if entry.IsMain() {
		return nil
	}

	previous, err := h.store.trees.GetMain(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to load main tree")
	}

	changed := []*aggregates.TreeEntry{entry}
	var previousID valueobjects.TreeID
	if previous != nil {
		previousID = previous.ID()
		previous.ClearMain()
		changed = append(changed, previous)
	}
	entry.MarkMain(previousID)

	if err := h.store.commit(ctx, cmd.Actor, changed...); err != nil {
		return fmt.Errorf("failed to set main tree: %w", err)
	}

	h.logger.Info("Main tree set",
		zap.String("treeID", cmd.TreeID),
		zap.String("previousMain", previousID.String()),
		zap.String("userID", cmd.UserID),
	)
	return nil
}
