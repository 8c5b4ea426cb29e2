package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands"
	"github.com/jgchk/romulus-sub005/application/commands/bus"
	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	"github.com/jgchk/romulus-sub005/domain/services"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// HandleMergeTrees folds what the source added since the common base into
// the target. Pending requests for the pair are marked accepted.
func (h *TreeCommandHandler) HandleMergeTrees(ctx context.Context, cmd commands.MergeTreesCommand) error {
	target, source, err := h.loadMergePair(ctx, services.OpMergeTrees, cmd, cmd.Actor, cmd.SourceTreeID, cmd.TargetTreeID)
	if err != nil {
		return err
	}

	sourceSnapshot := source.Tree().Snapshot()
	result, err := target.Tree().MergeFrom(source.ID(), target.MergeBaseFor(source), sourceSnapshot)
	if err != nil {
		return err
	}

	target.Touch()

	changed := []*aggregates.TreeEntry{target}
	if source.OriginID() == target.ID() {
		// A copy merged back into its origin now descends from what it just
		// contributed, so a later merge only carries what it adds after this
		// point. Any other pairing keeps the source's base.
		source.Rebase(sourceSnapshot)
		changed = append(changed, source)
	}

	if err := h.store.commit(ctx, cmd.Actor, changed...); err != nil {
		return err
	}

	h.acceptPendingRequests(ctx, source.ID(), target.ID())

	h.logger.Info("Trees merged",
		zap.String("sourceTreeID", cmd.SourceTreeID),
		zap.String("targetTreeID", cmd.TargetTreeID),
		zap.Int("addedNodes", len(result.AddedNodes)),
		zap.Int("addedEdges", len(result.AddedEdges)),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// HandleRequestMergeTrees records a pending request to merge source into target
func (h *TreeCommandHandler) HandleRequestMergeTrees(ctx context.Context, cmd commands.RequestMergeTreesCommand) error {
	target, source, err := h.loadMergePair(ctx, services.OpRequestMergeTrees, cmd, cmd.Actor, cmd.SourceTreeID, cmd.TargetTreeID)
	if err != nil {
		return err
	}

	req, err := entities.NewMergeRequest(source.ID(), target.ID(), cmd.User())
	if err != nil {
		return err
	}
	if err := h.mergeRequests.Save(ctx, req); err != nil {
		return pkgerrors.Wrap(err, "failed to save merge request")
	}

	event := events.NewMergeRequested(req.ID, source.ID(), target.ID(), cmd.User(), time.Now())
	if err := h.store.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish merge request", zap.String("requestID", req.ID), zap.Error(err))
	}

	h.logger.Info("Merge requested",
		zap.String("requestID", req.ID),
		zap.String("sourceTreeID", cmd.SourceTreeID),
		zap.String("targetTreeID", cmd.TargetTreeID),
		zap.String("userID", cmd.UserID),
	)
	return nil
}

// loadMergePair authorizes against the target, then loads the source. Both
// trees must hold the same taxonomy variant.
func (h *TreeCommandHandler) loadMergePair(ctx context.Context, op services.Operation, cmd bus.Command, actor commands.Actor, sourceID, targetID string) (*aggregates.TreeEntry, *aggregates.TreeEntry, error) {
	target, err := h.store.authorizeEntry(ctx, op, cmd, actor, valueobjects.TreeID(targetID))
	if err != nil {
		return nil, nil, err
	}
	source, err := h.store.load(ctx, valueobjects.TreeID(sourceID))
	if err != nil {
		return nil, nil, err
	}
	if source.Kind() != target.Kind() {
		return nil, nil, pkgerrors.NewValidationError(
			fmt.Sprintf("cannot merge %s tree %s into %s tree %s", source.Kind(), sourceID, target.Kind(), targetID))
	}
	return target, source, nil
}

func (h *TreeCommandHandler) acceptPendingRequests(ctx context.Context, sourceID, targetID valueobjects.TreeID) {
	pending, err := h.mergeRequests.FindPending(ctx, sourceID, targetID)
	if err != nil {
		h.logger.Warn("Failed to load pending merge requests", zap.Error(err))
		return
	}
	for _, req := range pending {
		if err := req.Accept(); err != nil {
			continue
		}
		if err := h.mergeRequests.Save(ctx, req); err != nil {
			h.logger.Warn("Failed to accept merge request", zap.String("requestID", req.ID), zap.Error(err))
		}
	}
}
