package handlers

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands"
	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/application/queries"
	"github.com/jgchk/romulus-sub005/application/queries/bus"
	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/services"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// TreeQueryHandler answers read queries against the registry
type TreeQueryHandler struct {
	trees         ports.TreeRepository
	eventStore    ports.EventStore
	history       ports.HistoryRepository
	mergeRequests ports.MergeRequestRepository
	gate          *services.RoleGate
	cfg           *config.DomainConfig
	logger        *zap.Logger
}

// NewTreeQueryHandler creates a new tree query handler
func NewTreeQueryHandler(
	trees ports.TreeRepository,
	eventStore ports.EventStore,
	history ports.HistoryRepository,
	mergeRequests ports.MergeRequestRepository,
	gate *services.RoleGate,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *TreeQueryHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeQueryHandler{
		trees:         trees,
		eventStore:    eventStore,
		history:       history,
		mergeRequests: mergeRequests,
		gate:          gate,
		cfg:           cfg,
		logger:        logger,
	}
}

// Register wires each query type to its handler method
func (h *TreeQueryHandler) Register(b *bus.QueryBus) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{queries.GetTreeQuery{}, bus.HandlerFor(h.HandleGetTree)},
		{queries.GetChildrenQuery{}, bus.HandlerFor(h.HandleGetChildren)},
		{queries.ListTreesQuery{}, bus.HandlerFor(h.HandleListTrees)},
		{queries.GetTreeHistoryQuery{}, bus.HandlerFor(h.HandleGetTreeHistory)},
		{queries.ReplayTreeQuery{}, bus.HandlerFor(h.HandleReplayTree)},
		{queries.ListMergeRequestsQuery{}, bus.HandlerFor(h.HandleListMergeRequests)},
	}

	for _, r := range registrations {
		if err := b.Register(r.query, r.handler); err != nil {
			return fmt.Errorf("register %s: %w", reflect.TypeOf(r.query).Name(), err)
		}
	}
	return nil
}

// HandleGetTree returns a tree with its nodes
func (h *TreeQueryHandler) HandleGetTree(ctx context.Context, q queries.GetTreeQuery) (*queries.TreeView, error) {
	entry, err := h.authorizedLoad(ctx, q, q.Actor, q.TreeID)
	if err != nil {
		return nil, err
	}
	view := queries.NewTreeView(entry)
	return &view, nil
}

// HandleGetChildren returns the direct children of a live node
func (h *TreeQueryHandler) HandleGetChildren(ctx context.Context, q queries.GetChildrenQuery) (*queries.ChildrenView, error) {
	entry, err := h.authorizedLoad(ctx, q, q.Actor, q.TreeID)
	if err != nil {
		return nil, err
	}

	nodeID := valueobjects.NodeID(q.NodeID)
	if !entry.Tree().Has(nodeID) {
		return nil, &pkgerrors.NodeNotFoundError{TreeID: q.TreeID, NodeID: q.NodeID}
	}

	children := entry.Tree().GetChildren(nodeID)
	view := &queries.ChildrenView{TreeID: q.TreeID, NodeID: q.NodeID, Children: make([]string, 0, len(children))}
	for _, c := range children {
		view.Children = append(view.Children, c.String())
	}
	return view, nil
}

// HandleListTrees returns a summary of every tree
func (h *TreeQueryHandler) HandleListTrees(ctx context.Context, q queries.ListTreesQuery) ([]queries.TreeSummary, error) {
	if err := h.authorize(q, q.Actor, ""); err != nil {
		return nil, err
	}

	entries, err := h.trees.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list trees")
	}
	summaries := make([]queries.TreeSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, queries.NewTreeSummary(entry))
	}
	return summaries, nil
}

// HandleGetTreeHistory returns audit records, newest first
func (h *TreeQueryHandler) HandleGetTreeHistory(ctx context.Context, q queries.GetTreeHistoryQuery) ([]queries.HistoryView, error) {
	if err := h.authorize(q, q.Actor, q.TreeID); err != nil {
		return nil, err
	}
	if err := h.mustExist(ctx, q.TreeID); err != nil {
		return nil, err
	}

	records, err := h.history.ListByTree(ctx, valueobjects.TreeID(q.TreeID), q.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load history")
	}
	views := make([]queries.HistoryView, 0, len(records))
	for _, r := range records {
		views = append(views, queries.HistoryView{
			Version:   r.GetVersion(),
			UserID:    r.UserID.String(),
			Timestamp: r.GetTimestamp(),
			Changes:   r.Changes,
		})
	}
	return views, nil
}

// HandleReplayTree rebuilds a tree from its full event stream and reports
// how the result differs from the stored snapshot. A stream that cannot be
// replayed is reported, not returned as an error.
func (h *TreeQueryHandler) HandleReplayTree(ctx context.Context, q queries.ReplayTreeQuery) (*queries.ReplayReport, error) {
	if err := h.authorize(q, q.Actor, q.TreeID); err != nil {
		return nil, err
	}

	treeID := valueobjects.TreeID(q.TreeID)
	entry, err := h.trees.GetByID(ctx, treeID)
	if err != nil {
		return nil, err
	}
	stream, err := h.eventStore.LoadEvents(ctx, treeID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load events")
	}

	report := &queries.ReplayReport{
		TreeID:        q.TreeID,
		EventCount:    len(stream),
		StoredVersion: entry.Tree().Version(),
		MissingNodes:  []string{},
		ExtraNodes:    []string{},
		ChangedNodes:  []string{},
	}
	if len(stream) > 0 {
		report.StreamVersion = stream[len(stream)-1].GetVersion()
	}

	rebuilt, err := aggregates.Rehydrate(treeID, aggregates.PolicyFor(entry.Kind()), h.cfg, stream)
	if err != nil {
		h.logger.Warn("Tree stream does not replay", zap.String("treeID", q.TreeID), zap.Error(err))
		report.Error = err.Error()
		return report, nil
	}

	stored := indexSnapshot(entry.Tree().Snapshot())
	replayed := indexSnapshot(rebuilt.Snapshot())
	for id, node := range stored {
		other, ok := replayed[id]
		switch {
		case !ok:
			report.MissingNodes = append(report.MissingNodes, id.String())
		case !reflect.DeepEqual(node, other):
			report.ChangedNodes = append(report.ChangedNodes, id.String())
		}
	}
	for id := range replayed {
		if _, ok := stored[id]; !ok {
			report.ExtraNodes = append(report.ExtraNodes, id.String())
		}
	}
	sort.Strings(report.MissingNodes)
	sort.Strings(report.ExtraNodes)
	sort.Strings(report.ChangedNodes)

	report.Consistent = len(report.MissingNodes) == 0 &&
		len(report.ExtraNodes) == 0 &&
		len(report.ChangedNodes) == 0 &&
		report.StoredVersion == report.StreamVersion
	return report, nil
}

// HandleListMergeRequests returns the requests made against a target tree
func (h *TreeQueryHandler) HandleListMergeRequests(ctx context.Context, q queries.ListMergeRequestsQuery) ([]*entities.MergeRequest, error) {
	if err := h.authorize(q, q.Actor, q.TargetTreeID); err != nil {
		return nil, err
	}
	if err := h.mustExist(ctx, q.TargetTreeID); err != nil {
		return nil, err
	}

	requests, err := h.mergeRequests.ListByTarget(ctx, valueobjects.TreeID(q.TargetTreeID))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list merge requests")
	}
	return requests, nil
}

// authorize checks read access, then validates the query. A caller without
// access never gets to see validation errors.
func (h *TreeQueryHandler) authorize(q bus.Query, actor commands.Actor, treeID string) error {
	if err := h.gate.Authorize(services.AccessRequest{
		Operation: services.OpReadTree,
		TreeID:    valueobjects.TreeID(treeID),
		UserID:    actor.User(),
		Roles:     actor.RoleSet(),
	}); err != nil {
		return err
	}
	return q.Validate()
}

func (h *TreeQueryHandler) mustExist(ctx context.Context, treeID string) error {
	exists, err := h.trees.Exists(ctx, valueobjects.TreeID(treeID))
	if err != nil {
		return pkgerrors.Wrap(err, "failed to check tree existence")
	}
	if !exists {
		return &pkgerrors.TreeNotFoundError{TreeID: treeID}
	}
	return nil
}

// authorizedLoad loads an entry, catching its tree up with events newer
// than the stored snapshot
func (h *TreeQueryHandler) authorizedLoad(ctx context.Context, q bus.Query, actor commands.Actor, treeID string) (*aggregates.TreeEntry, error) {
	if err := h.authorize(q, actor, treeID); err != nil {
		return nil, err
	}

	id := valueobjects.TreeID(treeID)
	entry, err := h.trees.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tail, err := h.eventStore.LoadEventsAfter(ctx, id, entry.Tree().Version())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load events")
	}
	if err := entry.Tree().Replay(tail); err != nil {
		return nil, pkgerrors.Wrap(err, fmt.Sprintf("failed to catch up tree %s", treeID))
	}
	return entry, nil
}

func indexSnapshot(s entities.Snapshot) map[valueobjects.NodeID]entities.NodeData {
	out := make(map[valueobjects.NodeID]entities.NodeData, len(s.Nodes))
	for _, d := range s.Nodes {
		out[d.ID] = d
	}
	return out
}
