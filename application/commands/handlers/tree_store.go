package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands"
	"github.com/jgchk/romulus-sub005/application/commands/bus"
	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	"github.com/jgchk/romulus-sub005/domain/services"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/jgchk/romulus-sub005/pkg/observability"
)

// treeStore is the load, authorize and persist cycle shared by every tree
// command. A command's working copy is only saved through commit; a handler
// that returns early simply drops it.
type treeStore struct {
	trees      ports.TreeRepository
	eventStore ports.EventStore
	history    ports.HistoryRepository
	eventBus   ports.EventBus
	gate       *services.RoleGate
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// authorizeEntry loads the target and checks the caller against it, then
// validates cmd. Callers holding neither WRITE nor ADMIN are refused before
// the load, since no ownership or main flag could admit them.
func (s *treeStore) authorizeEntry(ctx context.Context, op services.Operation, cmd bus.Command, actor commands.Actor, treeID valueobjects.TreeID) (*aggregates.TreeEntry, error) {
	roles := actor.RoleSet()
	if !roles.HasAny(valueobjects.RoleWrite, valueobjects.RoleAdmin) {
		return nil, s.gate.Authorize(services.AccessRequest{
			Operation: op,
			TreeID:    treeID,
			UserID:    actor.User(),
			Roles:     roles,
		})
	}

	entry, err := s.load(ctx, treeID)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Authorize(services.AccessRequest{
		Operation: op,
		TreeID:    treeID,
		UserID:    actor.User(),
		IsMain:    entry.IsMain(),
		IsOwner:   entry.IsOwnedBy(actor.User()),
		Roles:     roles,
	}); err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// authorize checks operations whose rule does not depend on the target,
// then validates cmd
func (s *treeStore) authorize(op services.Operation, cmd bus.Command, actor commands.Actor, treeID valueobjects.TreeID) error {
	if err := s.gate.Authorize(services.AccessRequest{
		Operation: op,
		TreeID:    treeID,
		UserID:    actor.User(),
		Roles:     actor.RoleSet(),
	}); err != nil {
		return err
	}
	return cmd.Validate()
}

// load reads an entry and brings its tree up to date with any events
// appended after the stored snapshot was written.
func (s *treeStore) load(ctx context.Context, treeID valueobjects.TreeID) (*aggregates.TreeEntry, error) {
	entry, err := s.trees.GetByID(ctx, treeID)
	if err != nil {
		return nil, err
	}

	tail, err := s.eventStore.LoadEventsAfter(ctx, treeID, entry.Tree().Version())
	if err != nil {
		return nil, pkgerrors.Wrap(err, fmt.Sprintf("failed to load events for tree %s", treeID))
	}
	if len(tail) > 0 {
		s.logger.Warn("Stored snapshot is behind its event stream",
			zap.String("treeID", treeID.String()),
			zap.Int("snapshotVersion", entry.Tree().Version()),
			zap.Int("pendingEvents", len(tail)),
		)
		if err := entry.Tree().Replay(tail); err != nil {
			return nil, pkgerrors.Wrap(err, fmt.Sprintf("failed to catch up tree %s", treeID))
		}
	}
	return entry, nil
}

// create persists a brand new entry
func (s *treeStore) create(ctx context.Context, actor commands.Actor, entry *aggregates.TreeEntry) error {
	if err := s.appendTreeEvents(ctx, entry); err != nil {
		return err
	}
	if err := s.trees.Create(ctx, entry); err != nil {
		return err
	}
	s.afterCommit(ctx, actor, entry)
	return nil
}

// commit persists changed entries. Tree events go to the event store first:
// its version check is what rejects a concurrent writer, and a snapshot that
// fails to save afterwards is caught up from the stream on the next load.
func (s *treeStore) commit(ctx context.Context, actor commands.Actor, entries ...*aggregates.TreeEntry) error {
	for _, entry := range entries {
		if err := s.appendTreeEvents(ctx, entry); err != nil {
			return err
		}
	}
	if err := s.trees.SaveAll(ctx, entries...); err != nil {
		return err
	}
	for _, entry := range entries {
		s.afterCommit(ctx, actor, entry)
	}
	return nil
}

func (s *treeStore) appendTreeEvents(ctx context.Context, entry *aggregates.TreeEntry) error {
	tree := entry.Tree()
	pending := tree.GetUncommittedEvents()
	if len(pending) == 0 {
		return nil
	}
	expected := tree.Version() - len(pending)
	if err := s.eventStore.AppendEvents(ctx, entry.ID(), expected, pending); err != nil {
		return pkgerrors.Wrap(err, fmt.Sprintf("failed to append events for tree %s", entry.ID()))
	}
	return nil
}

// afterCommit hands the session to the audit trail and the event bus. Both
// are best effort: the write has already been persisted.
func (s *treeStore) afterCommit(ctx context.Context, actor commands.Actor, entry *aggregates.TreeEntry) {
	tree := entry.Tree()

	published := make([]events.DomainEvent, 0)
	published = append(published, entry.GetUncommittedEvents()...)
	for _, e := range tree.GetUncommittedEvents() {
		published = append(published, e)
	}

	if changes := tree.Changes(); len(changes) > 0 {
		record := events.NewHistoryRecorded(entry.ID(), tree.Version(), actor.User(), changes, time.Now())
		if err := s.history.Record(ctx, record); err != nil {
			s.logger.Error("Failed to record history",
				zap.String("treeID", entry.ID().String()),
				zap.Error(err),
			)
		}
		published = append(published, record)
	}

	if len(published) > 0 {
		if err := s.eventBus.PublishBatch(ctx, published); err != nil {
			s.logger.Warn("Failed to publish events",
				zap.String("treeID", entry.ID().String()),
				zap.Int("count", len(published)),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordTreeSize(ctx, entry.ID().String(), tree.Len())

	entry.MarkEventsAsCommitted()
	tree.MarkEventsAsCommitted()
	tree.CommitSession()
}
