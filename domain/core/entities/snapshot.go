package entities

import (
	"sort"

	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
)

// Snapshot is an immutable-by-convention copy of a tree's live nodes, used
// as merge input and as the persisted form of a tree.
type Snapshot struct {
	Nodes []NodeData `json:"nodes" dynamodbav:"nodes"`
}

// Index returns the snapshot's nodes keyed by id. Each call rebuilds fresh
// Node values, so callers may not reach back into the snapshot through them.
func (s Snapshot) Index() (map[valueobjects.NodeID]*Node, error) {
	out := make(map[valueobjects.NodeID]*Node, len(s.Nodes))
	for _, d := range s.Nodes {
		node, err := NodeFromData(d)
		if err != nil {
			return nil, err
		}
		out[d.ID] = node
	}
	return out, nil
}

// Len returns the number of nodes
func (s Snapshot) Len() int {
	return len(s.Nodes)
}

// Clone returns a deep copy
func (s Snapshot) Clone() Snapshot {
	if s.Nodes == nil {
		return Snapshot{}
	}
	nodes := make([]NodeData, len(s.Nodes))
	for i, d := range s.Nodes {
		nodes[i] = NodeData{
			ID:          d.ID,
			Name:        d.Name,
			Parents:     cloneIDs(d.Parents),
			DerivedFrom: cloneIDs(d.DerivedFrom),
			Influences:  cloneIDs(d.Influences),
		}
	}
	return Snapshot{Nodes: nodes}
}

func cloneIDs(ids []valueobjects.NodeID) []valueobjects.NodeID {
	if ids == nil {
		return nil
	}
	out := make([]valueobjects.NodeID, len(ids))
	copy(out, ids)
	return out
}

// NewSnapshot builds a snapshot from nodes, ordered by id
func NewSnapshot(nodes []*Node) Snapshot {
	data := make([]NodeData, 0, len(nodes))
	for _, n := range nodes {
		data = append(data, n.Data())
	}
	sort.Slice(data, func(i, j int) bool { return data[i].ID < data[j].ID })
	return Snapshot{Nodes: data}
}
