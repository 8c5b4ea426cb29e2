package valueobjects

import "fmt"

// TreeKind selects the taxonomy variant a tree holds
type TreeKind string

const (
	TreeKindGenre     TreeKind = "genre"
	TreeKindMediaType TreeKind = "media_type"
)

// ParseTreeKind parses the wire form, defaulting to media types
func ParseTreeKind(s string) (TreeKind, error) {
	switch TreeKind(s) {
	case "", TreeKindMediaType:
		return TreeKindMediaType, nil
	case TreeKindGenre:
		return TreeKindGenre, nil
	}
	return "", fmt.Errorf("unknown tree kind %q", s)
}
