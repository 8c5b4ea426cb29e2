package handlers

import (
	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands"
	"github.com/jgchk/romulus-sub005/application/commands/bus"
	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/services"
	"github.com/jgchk/romulus-sub005/pkg/observability"
)

// TreeCommandHandler handles every command that writes to the tree registry
type TreeCommandHandler struct {
	store         *treeStore
	mergeRequests ports.MergeRequestRepository
	cfg           *config.DomainConfig
	logger        *zap.Logger
}

// NewTreeCommandHandler creates a new tree command handler
func NewTreeCommandHandler(
	trees ports.TreeRepository,
	eventStore ports.EventStore,
	mergeRequests ports.MergeRequestRepository,
	history ports.HistoryRepository,
	eventBus ports.EventBus,
	gate *services.RoleGate,
	metrics *observability.Metrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *TreeCommandHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeCommandHandler{
		store: &treeStore{
			trees:      trees,
			eventStore: eventStore,
			history:    history,
			eventBus:   eventBus,
			gate:       gate,
			metrics:    metrics,
			logger:     logger,
		},
		mergeRequests: mergeRequests,
		cfg:           cfg,
		logger:        logger,
	}
}

// Register wires each command type to its handler method
func (h *TreeCommandHandler) Register(b *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateTreeCommand{}, bus.HandlerFor(h.HandleCreateTree)},
		{commands.CopyTreeCommand{}, bus.HandlerFor(h.HandleCopyTree)},
		{commands.RenameTreeCommand{}, bus.HandlerFor(h.HandleRenameTree)},
		{commands.SetMainTreeCommand{}, bus.HandlerFor(h.HandleSetMainTree)},
		{commands.AddNodeCommand{}, bus.HandlerFor(h.HandleAddNode)},
		{commands.UpdateNodeCommand{}, bus.HandlerFor(h.HandleUpdateNode)},
		{commands.RemoveNodeCommand{}, bus.HandlerFor(h.HandleRemoveNode)},
		{commands.AddParentEdgeCommand{}, bus.HandlerFor(h.HandleAddParentEdge)},
		{commands.MergeTreesCommand{}, bus.HandlerFor(h.HandleMergeTrees)},
		{commands.RequestMergeTreesCommand{}, bus.HandlerFor(h.HandleRequestMergeTrees)},
	}

	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}
