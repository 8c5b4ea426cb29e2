package entities

import (
	"strings"

	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// NodeStatus tags what happened to a node during the current in-memory
// session. It feeds the audit trail and is never persisted as tree state.
type NodeStatus string

const (
	StatusUnchanged NodeStatus = ""
	StatusCreated   NodeStatus = "created"
	StatusUpdated   NodeStatus = "updated"
	StatusDeleted   NodeStatus = "deleted"
)

// Node is a taxonomy entry (a genre or a media type)
type Node struct {
	id    valueobjects.NodeID
	name  string
	edges map[valueobjects.EdgeKind]valueobjects.NodeIDSet
}

// NewNode creates a node without edges
func NewNode(id valueobjects.NodeID, name string) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("node name cannot be empty")
	}
	return &Node{
		id:    id,
		name:  name,
		edges: make(map[valueobjects.EdgeKind]valueobjects.NodeIDSet),
	}, nil
}

// ID returns the node's identity
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Name returns the display name
func (n *Node) Name() string {
	return n.name
}

// Rename changes the display name
func (n *Node) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return pkgerrors.NewValidationError("node name cannot be empty")
	}
	n.name = name
	return nil
}

// Edges returns the targets of the given kind, sorted
func (n *Node) Edges(kind valueobjects.EdgeKind) []valueobjects.NodeID {
	return n.edges[kind].Sorted()
}

// EdgeSet returns a copy of the target set of the given kind
func (n *Node) EdgeSet(kind valueobjects.EdgeKind) valueobjects.NodeIDSet {
	return n.edges[kind].Clone()
}

// HasEdge reports whether the node points at target with the given kind
func (n *Node) HasEdge(kind valueobjects.EdgeKind, target valueobjects.NodeID) bool {
	return n.edges[kind].Has(target)
}

// AddEdge adds an outgoing edge and reports whether it was new
func (n *Node) AddEdge(kind valueobjects.EdgeKind, target valueobjects.NodeID) bool {
	set, ok := n.edges[kind]
	if !ok {
		set = valueobjects.NewNodeIDSet()
		n.edges[kind] = set
	}
	return set.Add(target)
}

// RemoveEdge removes an outgoing edge and reports whether it existed
func (n *Node) RemoveEdge(kind valueobjects.EdgeKind, target valueobjects.NodeID) bool {
	return n.edges[kind].Remove(target)
}

// SetEdges replaces all targets of the given kind
func (n *Node) SetEdges(kind valueobjects.EdgeKind, targets ...valueobjects.NodeID) {
	n.edges[kind] = valueobjects.NewNodeIDSet(targets...)
}

// ClearEdges drops every outgoing edge of every kind
func (n *Node) ClearEdges() {
	n.edges = make(map[valueobjects.EdgeKind]valueobjects.NodeIDSet)
}

// Clone returns a deep copy
func (n *Node) Clone() *Node {
	edges := make(map[valueobjects.EdgeKind]valueobjects.NodeIDSet, len(n.edges))
	for kind, set := range n.edges {
		edges[kind] = set.Clone()
	}
	return &Node{id: n.id, name: n.name, edges: edges}
}

// Data returns the serializable form of the node
func (n *Node) Data() NodeData {
	return NodeData{
		ID:          n.id,
		Name:        n.name,
		Parents:     n.Edges(valueobjects.EdgeParent),
		DerivedFrom: n.Edges(valueobjects.EdgeDerivedFrom),
		Influences:  n.Edges(valueobjects.EdgeInfluences),
	}
}

// NodeData is the plain, serializable shape of a Node
type NodeData struct {
	ID          valueobjects.NodeID   `json:"id" dynamodbav:"id"`
	Name        string                `json:"name" dynamodbav:"name"`
	Parents     []valueobjects.NodeID `json:"parents,omitempty" dynamodbav:"parents,omitempty"`
	DerivedFrom []valueobjects.NodeID `json:"derivedFrom,omitempty" dynamodbav:"derivedFrom,omitempty"`
	Influences  []valueobjects.NodeID `json:"influences,omitempty" dynamodbav:"influences,omitempty"`
}

// NodeFromData rebuilds a Node from its serialized form
func NodeFromData(d NodeData) (*Node, error) {
	node, err := NewNode(d.ID, d.Name)
	if err != nil {
		return nil, err
	}
	node.SetEdges(valueobjects.EdgeParent, d.Parents...)
	node.SetEdges(valueobjects.EdgeDerivedFrom, d.DerivedFrom...)
	node.SetEdges(valueobjects.EdgeInfluences, d.Influences...)
	return node, nil
}
