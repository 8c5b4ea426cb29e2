package queries

import (
	"time"

	"github.com/jgchk/romulus-sub005/application/commands"
	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/events"
	"github.com/jgchk/romulus-sub005/pkg/utils"
)

// GetTreeQuery reads one tree with all of its nodes
type GetTreeQuery struct {
	commands.Actor
	TreeID string `json:"tree_id" validate:"required"`
}

func (q GetTreeQuery) Validate() error { return utils.ValidateStruct(q) }

// GetChildrenQuery lists the direct children of a node
type GetChildrenQuery struct {
	commands.Actor
	TreeID string `json:"tree_id" validate:"required"`
	NodeID string `json:"node_id" validate:"required"`
}

func (q GetChildrenQuery) Validate() error { return utils.ValidateStruct(q) }

// ListTreesQuery lists the registry
type ListTreesQuery struct {
	commands.Actor
}

func (q ListTreesQuery) Validate() error { return utils.ValidateStruct(q) }

// GetTreeHistoryQuery reads the audit trail of a tree, newest first
type GetTreeHistoryQuery struct {
	commands.Actor
	TreeID string `json:"tree_id" validate:"required"`
	Limit  int    `json:"limit" validate:"min=0,max=1000"`
}

func (q GetTreeHistoryQuery) Validate() error { return utils.ValidateStruct(q) }

// ReplayTreeQuery rebuilds a tree from its event stream and compares the
// result with the stored snapshot
type ReplayTreeQuery struct {
	commands.Actor
	TreeID string `json:"tree_id" validate:"required"`
}

func (q ReplayTreeQuery) Validate() error { return utils.ValidateStruct(q) }

// ListMergeRequestsQuery lists the merge requests made against a tree
type ListMergeRequestsQuery struct {
	commands.Actor
	TargetTreeID string `json:"target_tree_id" validate:"required"`
}

func (q ListMergeRequestsQuery) Validate() error { return utils.ValidateStruct(q) }

// TreeSummary is a registry entry without its nodes
type TreeSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	IsMain    bool      `json:"is_main"`
	Kind      string    `json:"kind"`
	OriginID  string    `json:"origin_id,omitempty"`
	NodeCount int       `json:"node_count"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TreeView is a registry entry with its nodes
type TreeView struct {
	TreeSummary
	Nodes []entities.NodeData `json:"nodes"`
}

// ChildrenView lists a node's children
type ChildrenView struct {
	TreeID   string   `json:"tree_id"`
	NodeID   string   `json:"node_id"`
	Children []string `json:"children"`
}

// HistoryView is one audit record
type HistoryView struct {
	Version   int                 `json:"version"`
	UserID    string              `json:"user_id"`
	Timestamp time.Time           `json:"timestamp"`
	Changes   []events.NodeChange `json:"changes"`
}

// ReplayReport is the outcome of rebuilding a tree from its events
type ReplayReport struct {
	TreeID        string   `json:"tree_id"`
	EventCount    int      `json:"event_count"`
	StoredVersion int      `json:"stored_version"`
	StreamVersion int      `json:"stream_version"`
	Consistent    bool     `json:"consistent"`
	MissingNodes  []string `json:"missing_nodes"`
	ExtraNodes    []string `json:"extra_nodes"`
	ChangedNodes  []string `json:"changed_nodes"`
	Error         string   `json:"error,omitempty"`
}

// NewTreeSummary builds the summary of an entry
func NewTreeSummary(entry *aggregates.TreeEntry) TreeSummary {
	return TreeSummary{
		ID:        entry.ID().String(),
		Name:      entry.Name().String(),
		OwnerID:   entry.OwnerID().String(),
		IsMain:    entry.IsMain(),
		Kind:      string(entry.Kind()),
		OriginID:  entry.OriginID().String(),
		NodeCount: entry.Tree().Len(),
		Version:   entry.Tree().Version(),
		CreatedAt: entry.CreatedAt(),
		UpdatedAt: entry.UpdatedAt(),
	}
}

// NewTreeView builds the full view of an entry
func NewTreeView(entry *aggregates.TreeEntry) TreeView {
	nodes := entry.Tree().Snapshot().Nodes
	if nodes == nil {
		nodes = []entities.NodeData{}
	}
	return TreeView{TreeSummary: NewTreeSummary(entry), Nodes: nodes}
}
