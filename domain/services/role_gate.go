package services

import (
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// Operation names a registry or tree operation subject to the role gate
type Operation string

const (
	OpCreateTree        Operation = "CreateTree"
	OpCopyTree          Operation = "CopyTree"
	OpRenameTree        Operation = "RenameTree"
	OpAddNode           Operation = "AddNode"
	OpUpdateNode        Operation = "UpdateNode"
	OpRemoveNode        Operation = "RemoveNode"
	OpAddParentEdge     Operation = "AddParentEdge"
	OpMergeTrees        Operation = "MergeTrees"
	OpRequestMergeTrees Operation = "RequestMergeTrees"
	OpSetMainTree       Operation = "SetMainTree"
	OpReadTree          Operation = "ReadTree"
)

// AllOperations lists every gated operation
var AllOperations = []Operation{
	OpCreateTree, OpCopyTree, OpRenameTree, OpAddNode, OpUpdateNode, OpRemoveNode,
	OpAddParentEdge, OpMergeTrees, OpRequestMergeTrees, OpSetMainTree, OpReadTree,
}

// AccessRequest describes one authorization decision. IsMain and IsOwner
// describe the target tree; both are false for operations without one.
type AccessRequest struct {
	Operation Operation
	TreeID    valueobjects.TreeID
	UserID    valueobjects.UserID
	IsMain    bool
	IsOwner   bool
	Roles     valueobjects.RoleSet
}

// RoleGate decides whether a caller's role set covers an operation. It never
// looks roles up; the caller presents them.
type RoleGate struct{}

// NewRoleGate creates a new role gate
func NewRoleGate() *RoleGate {
	return &RoleGate{}
}

// Authorize returns *UnauthorizedError when the request is not allowed
func (g *RoleGate) Authorize(req AccessRequest) error {
	if g.allowed(req) {
		return nil
	}
	return &pkgerrors.UnauthorizedError{
		Operation: string(req.Operation),
		TreeID:    req.TreeID.String(),
		UserID:    req.UserID.String(),
		Required:  g.Required(req.Operation, req.IsMain, req.IsOwner),
	}
}

// Required describes the roles an operation needs, for error messages
func (g *RoleGate) Required(op Operation, isMain, isOwner bool) string {
	switch op {
	case OpSetMainTree:
		return "ADMIN"
	case OpReadTree:
		return "READ, WRITE or ADMIN"
	case OpCreateTree, OpCopyTree:
		return "WRITE or ADMIN"
	case OpMergeTrees, OpRequestMergeTrees:
		if isMain {
			return "ADMIN"
		}
		return "WRITE or ADMIN"
	default:
		if isMain || !isOwner {
			return "ADMIN"
		}
		return "WRITE or ADMIN"
	}
}

func (g *RoleGate) allowed(req AccessRequest) bool {
	roles := req.Roles
	switch req.Operation {
	case OpSetMainTree:
		return roles.Has(valueobjects.RoleAdmin)

	case OpReadTree:
		return roles.HasAny(valueobjects.RoleRead, valueobjects.RoleWrite, valueobjects.RoleAdmin)

	case OpCreateTree, OpCopyTree:
		return roles.HasAny(valueobjects.RoleWrite, valueobjects.RoleAdmin)

	case OpMergeTrees, OpRequestMergeTrees:
		if req.IsMain {
			return roles.Has(valueobjects.RoleAdmin)
		}
		return roles.HasAny(valueobjects.RoleWrite, valueobjects.RoleAdmin)

	case OpRenameTree, OpAddNode, OpUpdateNode, OpRemoveNode, OpAddParentEdge:
		// Main trees need ADMIN whoever owns them; otherwise owners write
		// with WRITE and ADMIN stands in for ownership.
		if req.IsMain {
			return roles.Has(valueobjects.RoleAdmin)
		}
		if req.IsOwner {
			return roles.HasAny(valueobjects.RoleWrite, valueobjects.RoleAdmin)
		}
		return roles.Has(valueobjects.RoleAdmin)
	}
	return false
}
