package valueobjects

import (
	"errors"
	"strconv"
	"strings"
)

// NodeID identifies a taxonomy node. Integer-keyed taxonomies (genres) use
// the decimal rendering of their key.
type NodeID string

// NewNodeIDFromInt creates a NodeID from an integer key
func NewNodeIDFromInt(id int64) NodeID {
	return NodeID(strconv.FormatInt(id, 10))
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("node ID cannot be empty")
	}
	return NodeID(id), nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return string(id)
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id == ""
}

// TreeID is the user-chosen, immutable identifier of a tree in the registry
type TreeID string

// NewTreeID validates a user-chosen tree identifier
func NewTreeID(id string) (TreeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("tree ID cannot be empty")
	}
	return TreeID(id), nil
}

// String returns the string representation
func (id TreeID) String() string {
	return string(id)
}

// UserID identifies an account
type UserID string

// String returns the string representation
func (id UserID) String() string {
	return string(id)
}
