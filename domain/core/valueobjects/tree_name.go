package valueobjects

import (
	"strings"

	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// TreeName is a display name that is non-blank after trimming
type TreeName struct {
	value string
}

// NewTreeName trims whitespace and newlines and rejects blank names
func NewTreeName(raw string) (TreeName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TreeName{}, &pkgerrors.TreeNameInvalidError{Name: raw}
	}
	return TreeName{value: trimmed}, nil
}

// String returns the trimmed name
func (n TreeName) String() string {
	return n.value
}
