package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands"
	commandbus "github.com/jgchk/romulus-sub005/application/commands/bus"
	"github.com/jgchk/romulus-sub005/application/queries"
	querybus "github.com/jgchk/romulus-sub005/application/queries/bus"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/pkg/auth"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// TreeHandler handles tree registry and node HTTP requests
type TreeHandler struct {
	commands     *commandbus.CommandBus
	queries      *querybus.QueryBus
	errorHandler *pkgerrors.ErrorHandler
	historyLimit int
	logger       *zap.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(
	commandBus *commandbus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	historyLimit int,
	logger *zap.Logger,
) *TreeHandler {
	return &TreeHandler{
		commands:     commandBus,
		queries:      queryBus,
		errorHandler: errorHandler,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// CreateTreeRequest is the body of POST /trees
type CreateTreeRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// CopyTreeRequest is the body of POST /trees/{treeID}/copy
type CopyTreeRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenameTreeRequest is the body of PATCH /trees/{treeID}
type RenameTreeRequest struct {
	Name string `json:"name"`
}

// NodeRequest is the body of node writes. On update the id comes from the path.
type NodeRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Parents     []string `json:"parents,omitempty"`
	DerivedFrom []string `json:"derived_from,omitempty"`
	Influences  []string `json:"influences,omitempty"`
}

// ParentRequest is the body of POST /trees/{treeID}/nodes/{nodeID}/parents
type ParentRequest struct {
	ParentID string `json:"parent_id"`
}

// MergeRequest is the body of merge and merge request writes
type MergeRequest struct {
	SourceTreeID string `json:"source_tree_id"`
}

// CreateTree handles POST /trees
func (h *TreeHandler) CreateTree(w http.ResponseWriter, r *http.Request) {
	var req CreateTreeRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	cmd := commands.CreateTreeCommand{Actor: actor, TreeID: req.ID, Name: req.Name, Kind: req.Kind}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.respondTree(w, r, actor, req.ID, http.StatusCreated)
}

// CopyTree handles POST /trees/{treeID}/copy
func (h *TreeHandler) CopyTree(w http.ResponseWriter, r *http.Request) {
	var req CopyTreeRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	cmd := commands.CopyTreeCommand{Actor: actor, TreeID: req.ID, SourceTreeID: chi.URLParam(r, "treeID"), Name: req.Name}
	if err := h.commands.Send(r.Context(), cmd); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.respondTree(w, r, actor, req.ID, http.StatusCreated)
}

// RenameTree handles PATCH /trees/{treeID}
func (h *TreeHandler) RenameTree(w http.ResponseWriter, r *http.Request) {
	var req RenameTreeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.RenameTreeCommand{Actor: actor, TreeID: chi.URLParam(r, "treeID"), Name: req.Name}
	})
}

// SetMainTree handles PUT /trees/{treeID}/main
func (h *TreeHandler) SetMainTree(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.SetMainTreeCommand{Actor: actor, TreeID: chi.URLParam(r, "treeID")}
	})
}

// AddNode handles POST /trees/{treeID}/nodes
func (h *TreeHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.sendCreated(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.AddNodeCommand{Actor: actor, TreeID: chi.URLParam(r, "treeID"), NodeFields: req.fields(req.ID)}
	})
}

// UpdateNode handles PUT /trees/{treeID}/nodes/{nodeID}
func (h *TreeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.UpdateNodeCommand{Actor: actor, TreeID: chi.URLParam(r, "treeID"), NodeFields: req.fields(chi.URLParam(r, "nodeID"))}
	})
}

// RemoveNode handles DELETE /trees/{treeID}/nodes/{nodeID}
func (h *TreeHandler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.RemoveNodeCommand{Actor: actor, TreeID: chi.URLParam(r, "treeID"), NodeID: chi.URLParam(r, "nodeID")}
	})
}

// AddParent handles POST /trees/{treeID}/nodes/{nodeID}/parents
func (h *TreeHandler) AddParent(w http.ResponseWriter, r *http.Request) {
	var req ParentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.AddParentEdgeCommand{
			Actor:    actor,
			TreeID:   chi.URLParam(r, "treeID"),
			ChildID:  chi.URLParam(r, "nodeID"),
			ParentID: req.ParentID,
		}
	})
}

// MergeTrees handles POST /trees/{treeID}/merge; the path names the target
func (h *TreeHandler) MergeTrees(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.send(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.MergeTreesCommand{Actor: actor, SourceTreeID: req.SourceTreeID, TargetTreeID: chi.URLParam(r, "treeID")}
	})
}

// RequestMerge handles POST /trees/{treeID}/merge-requests
func (h *TreeHandler) RequestMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.sendCreated(w, r, func(actor commands.Actor) commandbus.Command {
		return commands.RequestMergeTreesCommand{Actor: actor, SourceTreeID: req.SourceTreeID, TargetTreeID: chi.URLParam(r, "treeID")}
	})
}

// ListTrees handles GET /trees
func (h *TreeHandler) ListTrees(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, func(actor commands.Actor) querybus.Query {
		return queries.ListTreesQuery{Actor: actor}
	})
}

// GetTree handles GET /trees/{treeID}
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, func(actor commands.Actor) querybus.Query {
		return queries.GetTreeQuery{Actor: actor, TreeID: chi.URLParam(r, "treeID")}
	})
}

// GetChildren handles GET /trees/{treeID}/nodes/{nodeID}/children
func (h *TreeHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, func(actor commands.Actor) querybus.Query {
		return queries.GetChildrenQuery{Actor: actor, TreeID: chi.URLParam(r, "treeID"), NodeID: chi.URLParam(r, "nodeID")}
	})
}

// GetHistory handles GET /trees/{treeID}/history?limit=n
func (h *TreeHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	h.ask(w, r, func(actor commands.Actor) querybus.Query {
		return queries.GetTreeHistoryQuery{Actor: actor, TreeID: chi.URLParam(r, "treeID"), Limit: limit}
	})
}

// ReplayTree handles GET /trees/{treeID}/replay
func (h *TreeHandler) ReplayTree(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, func(actor commands.Actor) querybus.Query {
		return queries.ReplayTreeQuery{Actor: actor, TreeID: chi.URLParam(r, "treeID")}
	})
}

// ListMergeRequests handles GET /trees/{treeID}/merge-requests
func (h *TreeHandler) ListMergeRequests(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, func(actor commands.Actor) querybus.Query {
		return queries.ListMergeRequestsQuery{Actor: actor, TargetTreeID: chi.URLParam(r, "treeID")}
	})
}

func (req NodeRequest) fields(nodeID string) commands.NodeFields {
	return commands.NodeFields{
		NodeID:      nodeID,
		Name:        req.Name,
		Parents:     req.Parents,
		DerivedFrom: req.DerivedFrom,
		Influences:  req.Influences,
	}
}

func (h *TreeHandler) actor(w http.ResponseWriter, r *http.Request) (commands.Actor, bool) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		h.errorHandler.HandleStatus(w, r, http.StatusUnauthorized, "Unauthorized")
		return commands.Actor{}, false
	}
	return commands.Actor{UserID: claims.UserID, Roles: claims.Roles}, true
}

func (h *TreeHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.errorHandler.HandleStatus(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *TreeHandler) send(w http.ResponseWriter, r *http.Request, build func(commands.Actor) commandbus.Command) {
	h.dispatch(w, r, build, http.StatusNoContent)
}

func (h *TreeHandler) sendCreated(w http.ResponseWriter, r *http.Request, build func(commands.Actor) commandbus.Command) {
	h.dispatch(w, r, build, http.StatusCreated)
}

func (h *TreeHandler) dispatch(w http.ResponseWriter, r *http.Request, build func(commands.Actor) commandbus.Command, status int) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.commands.Send(r.Context(), build(actor)); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	w.WriteHeader(status)
}

func (h *TreeHandler) ask(w http.ResponseWriter, r *http.Request, build func(commands.Actor) querybus.Query) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	result, err := h.queries.Ask(r.Context(), build(actor))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// respondTree answers a create or copy with the stored tree
func (h *TreeHandler) respondTree(w http.ResponseWriter, r *http.Request, actor commands.Actor, treeID string, status int) {
	view, err := querybus.AskFor[*queries.TreeView](r.Context(), h.queries, queries.GetTreeQuery{Actor: actor, TreeID: treeID})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if view.Nodes == nil {
		view.Nodes = []entities.NodeData{}
	}
	respondJSON(w, status, view)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
