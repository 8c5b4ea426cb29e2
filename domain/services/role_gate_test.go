package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// allRoleSets enumerates every subset of {READ, WRITE, ADMIN}
func allRoleSets() []valueobjects.RoleSet {
	roles := []valueobjects.Role{valueobjects.RoleRead, valueobjects.RoleWrite, valueobjects.RoleAdmin}
	var sets []valueobjects.RoleSet
	for mask := 0; mask < 1<<len(roles); mask++ {
		set := valueobjects.NewRoleSet()
		for i, r := range roles {
			if mask&(1<<i) != 0 {
				set[r] = struct{}{}
			}
		}
		sets = append(sets, set)
	}
	return sets
}

func TestRoleGate_Exhaustive(t *testing.T) {
	writeOrAdmin := func(r valueobjects.RoleSet) bool {
		return r.Has(valueobjects.RoleWrite) || r.Has(valueobjects.RoleAdmin)
	}
	admin := func(r valueobjects.RoleSet) bool { return r.Has(valueobjects.RoleAdmin) }

	expected := func(op Operation, isMain, isOwner bool, r valueobjects.RoleSet) bool {
		switch op {
		case OpCreateTree, OpCopyTree:
			return writeOrAdmin(r)
		case OpSetMainTree:
			return admin(r)
		case OpReadTree:
			return len(r) > 0
		case OpMergeTrees, OpRequestMergeTrees:
			if isMain {
				return admin(r)
			}
			return writeOrAdmin(r)
		default:
			if isMain {
				return admin(r)
			}
			if isOwner {
				return writeOrAdmin(r)
			}
			return admin(r)
		}
	}

	gate := NewRoleGate()
	for _, op := range AllOperations {
		for _, isMain := range []bool{false, true} {
			for _, isOwner := range []bool{false, true} {
				for _, roles := range allRoleSets() {
					name := fmt.Sprintf("%s/main=%t/owner=%t/%s", op, isMain, isOwner, roles)
					t.Run(name, func(t *testing.T) {
						err := gate.Authorize(AccessRequest{
							Operation: op,
							TreeID:    "t1",
							UserID:    "5",
							IsMain:    isMain,
							IsOwner:   isOwner,
							Roles:     roles,
						})

						if expected(op, isMain, isOwner, roles) {
							assert.NoError(t, err)
							return
						}
						var unauthorized *pkgerrors.UnauthorizedError
						require.ErrorAs(t, err, &unauthorized)
						assert.Equal(t, string(op), unauthorized.Operation)
						assert.NotEmpty(t, unauthorized.Required)
					})
				}
			}
		}
	}
}

func TestRoleGate_Scenarios(t *testing.T) {
	gate := NewRoleGate()
	write := valueobjects.NewRoleSet(valueobjects.RoleWrite)
	adminOnly := valueobjects.NewRoleSet(valueobjects.RoleAdmin)

	tests := []struct {
		name    string
		req     AccessRequest
		allowed bool
	}{
		{
			name:    "set main needs admin even for the owner",
			req:     AccessRequest{Operation: OpSetMainTree, IsOwner: true, Roles: write},
			allowed: false,
		},
		{
			name:    "set main with admin",
			req:     AccessRequest{Operation: OpSetMainTree, Roles: adminOnly},
			allowed: true,
		},
		{
			name:    "owner with write cannot remove from main",
			req:     AccessRequest{Operation: OpRemoveNode, IsMain: true, IsOwner: true, Roles: write},
			allowed: false,
		},
		{
			name:    "non-owner admin can remove from main",
			req:     AccessRequest{Operation: OpRemoveNode, IsMain: true, Roles: adminOnly},
			allowed: true,
		},
		{
			name:    "non-owner with write cannot edit someone else's tree",
			req:     AccessRequest{Operation: OpAddNode, Roles: write},
			allowed: false,
		},
		{
			name:    "merge into non-main with write",
			req:     AccessRequest{Operation: OpMergeTrees, Roles: write},
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.req)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, pkgerrors.IsUnauthorized(err))
			}
		})
	}
}

func TestRoleGate_RequiredMessage(t *testing.T) {
	gate := NewRoleGate()
	err := gate.Authorize(AccessRequest{
		Operation: OpSetMainTree,
		TreeID:    "t1",
		Roles:     valueobjects.NewRoleSet(valueobjects.RoleWrite),
	})

	assert.EqualError(t, err, `unauthorized: SetMainTree on tree "t1" requires ADMIN`)
}
