package valueobjects

import (
	"fmt"
	"sort"
	"strings"
)

// Role is a capability held by a caller for a tree
type Role string

const (
	RoleRead  Role = "READ"
	RoleWrite Role = "WRITE"
	RoleAdmin Role = "ADMIN"
)

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleRead:
		return RoleRead, nil
	case RoleWrite:
		return RoleWrite, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleSet is the set of roles a caller presents with a request
type RoleSet map[Role]struct{}

// NewRoleSet creates a set holding the given roles
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// ParseRoleSet builds a RoleSet from names, skipping ones that are not roles
// (identity providers put other claims in the same list).
func ParseRoleSet(names []string) RoleSet {
	s := make(RoleSet, len(names))
	for _, n := range names {
		if r, err := ParseRole(n); err == nil {
			s[r] = struct{}{}
		}
	}
	return s
}

// Has reports membership
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether at least one of roles is held
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// String renders the set sorted, e.g. "{ADMIN,WRITE}"
func (s RoleSet) String() string {
	names := make([]string, 0, len(s))
	for r := range s {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return "{" + strings.Join(names, ",") + "}"
}
