package commands

import (
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/pkg/utils"
)

// Actor is the caller of a command: who they are and the roles they
// present for it
type Actor struct {
	UserID string   `json:"user_id" validate:"required"`
	Roles  []string `json:"roles"`
}

// RoleSet returns the presented roles, ignoring unknown names
func (a Actor) RoleSet() valueobjects.RoleSet {
	return valueobjects.ParseRoleSet(a.Roles)
}

// User returns the caller's id
func (a Actor) User() valueobjects.UserID {
	return valueobjects.UserID(a.UserID)
}

// Tree names are not validated here: a blank name must surface as
// TreeNameInvalidError after authorization, which only the handler can do.

// CreateTreeCommand registers a new, empty tree owned by the caller
type CreateTreeCommand struct {
	Actor
	TreeID string `json:"tree_id" validate:"required,max=64"`
	Name   string `json:"name"`
	Kind   string `json:"kind" validate:"omitempty,oneof=genre media_type"`
}

func (c CreateTreeCommand) Validate() error { return utils.ValidateStruct(c) }

// CopyTreeCommand creates a new tree holding a copy of an existing one
type CopyTreeCommand struct {
	Actor
	TreeID       string `json:"tree_id" validate:"required,max=64"`
	SourceTreeID string `json:"source_tree_id" validate:"required"`
	Name         string `json:"name"`
}

func (c CopyTreeCommand) Validate() error { return utils.ValidateStruct(c) }

// RenameTreeCommand changes a tree's display name
type RenameTreeCommand struct {
	Actor
	TreeID string `json:"tree_id" validate:"required"`
	Name   string `json:"name"`
}

func (c RenameTreeCommand) Validate() error { return utils.ValidateStruct(c) }

// NodeFields is the editable shape of a node
type NodeFields struct {
	NodeID      string   `json:"node_id" validate:"required,max=64"`
	Name        string   `json:"name" validate:"required,notblank"`
	Parents     []string `json:"parents" validate:"max=200,dive,required"`
	DerivedFrom []string `json:"derived_from" validate:"max=200,dive,required"`
	Influences  []string `json:"influences" validate:"max=200,dive,required"`
}

// AddNodeCommand inserts a node, optionally with edges
type AddNodeCommand struct {
	Actor
	NodeFields
	TreeID string `json:"tree_id" validate:"required"`
}

func (c AddNodeCommand) Validate() error { return utils.ValidateStruct(c) }

// UpdateNodeCommand replaces a node's name and edge sets
type UpdateNodeCommand struct {
	Actor
	NodeFields
	TreeID string `json:"tree_id" validate:"required"`
}

func (c UpdateNodeCommand) Validate() error { return utils.ValidateStruct(c) }

// RemoveNodeCommand deletes a node, reparenting its children
type RemoveNodeCommand struct {
	Actor
	TreeID string `json:"tree_id" validate:"required"`
	NodeID string `json:"node_id" validate:"required"`
}

func (c RemoveNodeCommand) Validate() error { return utils.ValidateStruct(c) }

// AddParentEdgeCommand attaches a parent to a child
type AddParentEdgeCommand struct {
	Actor
	TreeID   string `json:"tree_id" validate:"required"`
	ChildID  string `json:"child_id" validate:"required"`
	ParentID string `json:"parent_id" validate:"required"`
}

func (c AddParentEdgeCommand) Validate() error { return utils.ValidateStruct(c) }

// MergeTreesCommand folds the source tree's additions into the target
type MergeTreesCommand struct {
	Actor
	SourceTreeID string `json:"source_tree_id" validate:"required"`
	TargetTreeID string `json:"target_tree_id" validate:"required,nefield=SourceTreeID"`
}

func (c MergeTreesCommand) Validate() error { return utils.ValidateStruct(c) }

// RequestMergeTreesCommand records a request for a later merge
type RequestMergeTreesCommand struct {
	Actor
	SourceTreeID string `json:"source_tree_id" validate:"required"`
	TargetTreeID string `json:"target_tree_id" validate:"required,nefield=SourceTreeID"`
}

func (c RequestMergeTreesCommand) Validate() error { return utils.ValidateStruct(c) }

// SetMainTreeCommand flags a tree as the canonical one
type SetMainTreeCommand struct {
	Actor
	TreeID string `json:"tree_id" validate:"required"`
}

func (c SetMainTreeCommand) Validate() error { return utils.ValidateStruct(c) }
