package valueobjects

import "fmt"

// EdgeKind names one kind of directed relation between taxonomy nodes
type EdgeKind string

const (
	EdgeParent      EdgeKind = "parent"
	EdgeDerivedFrom EdgeKind = "derived_from"
	EdgeInfluences  EdgeKind = "influences"
)

// AllEdgeKinds lists every kind in a stable order
var AllEdgeKinds = []EdgeKind{EdgeParent, EdgeDerivedFrom, EdgeInfluences}

// ParseEdgeKind parses the wire form of an edge kind
func ParseEdgeKind(s string) (EdgeKind, error) {
	for _, k := range AllEdgeKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown edge kind %q", s)
}

// String returns the wire form
func (k EdgeKind) String() string {
	return string(k)
}
