package valueobjects

import "sort"

// NodeIDSet is an unordered set of node identifiers
type NodeIDSet map[NodeID]struct{}

// NewNodeIDSet creates a set holding the given ids
func NewNodeIDSet(ids ...NodeID) NodeIDSet {
	s := make(NodeIDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id and reports whether it was absent
func (s NodeIDSet) Add(id NodeID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present
func (s NodeIDSet) Remove(id NodeID) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

// Has reports membership
func (s NodeIDSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members
func (s NodeIDSet) Len() int {
	return len(s)
}

// Clone returns an independent copy; a nil set clones to an empty set
func (s NodeIDSet) Clone() NodeIDSet {
	out := make(NodeIDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order
func (s NodeIDSet) Sorted() []NodeID {
	out := make([]NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equals reports whether both sets hold the same members
func (s NodeIDSet) Equals(other NodeIDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}
