package aggregates

import (
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
)

// EdgePolicy decides which edge kinds a taxonomy variant carries and which of
// them take part in the acyclicity invariant.
type EdgePolicy struct {
	Name         string
	Hierarchical []valueobjects.EdgeKind
	Advisory     []valueobjects.EdgeKind
}

// GenrePolicy: parents and derivations must stay acyclic; influences are free.
var GenrePolicy = EdgePolicy{
	Name:         "genre",
	Hierarchical: []valueobjects.EdgeKind{valueobjects.EdgeParent, valueobjects.EdgeDerivedFrom},
	Advisory:     []valueobjects.EdgeKind{valueobjects.EdgeInfluences},
}

// MediaTypePolicy: a plain parent/child hierarchy.
var MediaTypePolicy = EdgePolicy{
	Name:         "media_type",
	Hierarchical: []valueobjects.EdgeKind{valueobjects.EdgeParent},
}

// PolicyFor returns the policy of a taxonomy variant
func PolicyFor(kind valueobjects.TreeKind) EdgePolicy {
	if kind == valueobjects.TreeKindGenre {
		return GenrePolicy
	}
	return MediaTypePolicy
}

// Allows reports whether the variant carries edges of kind
func (p EdgePolicy) Allows(kind valueobjects.EdgeKind) bool {
	return p.IsHierarchical(kind) || contains(p.Advisory, kind)
}

// IsHierarchical reports whether kind participates in cycle detection
func (p EdgePolicy) IsHierarchical(kind valueobjects.EdgeKind) bool {
	return contains(p.Hierarchical, kind)
}

// Kinds returns every allowed kind, hierarchical first
func (p EdgePolicy) Kinds() []valueobjects.EdgeKind {
	out := make([]valueobjects.EdgeKind, 0, len(p.Hierarchical)+len(p.Advisory))
	out = append(out, p.Hierarchical...)
	return append(out, p.Advisory...)
}

func contains(kinds []valueobjects.EdgeKind, kind valueobjects.EdgeKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
