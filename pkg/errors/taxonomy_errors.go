package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// UnauthorizedError is returned when the caller's role set does not cover
// the operation on the target tree.
type UnauthorizedError struct {
	Operation string
	TreeID    string
	UserID    string
	Required  string
}

func (e *UnauthorizedError) Error() string {
	if e.TreeID == "" {
		return fmt.Sprintf("unauthorized: %s requires %s", e.Operation, e.Required)
	}
	return fmt.Sprintf("unauthorized: %s on tree %q requires %s", e.Operation, e.TreeID, e.Required)
}

// TreeNotFoundError is returned when a referenced tree id is absent.
type TreeNotFoundError struct {
	TreeID string
}

func (e *TreeNotFoundError) Error() string {
	return fmt.Sprintf("tree %q not found", e.TreeID)
}

// NodeNotFoundError is returned when a referenced node id is absent or deleted.
type NodeNotFoundError struct {
	TreeID string
	NodeID string
}

func (e *NodeNotFoundError) Error() string {
	if e.TreeID == "" {
		return fmt.Sprintf("node %q not found", e.NodeID)
	}
	return fmt.Sprintf("node %q not found in tree %q", e.NodeID, e.TreeID)
}

// TreeAlreadyExistsError is returned on a tree id collision.
type TreeAlreadyExistsError struct {
	TreeID string
}

func (e *TreeAlreadyExistsError) Error() string {
	return fmt.Sprintf("tree %q already exists", e.TreeID)
}

// TreeNameInvalidError is returned for blank tree names.
type TreeNameInvalidError struct {
	Name string
}

func (e *TreeNameInvalidError) Error() string {
	return fmt.Sprintf("tree name %q is invalid: must not be blank", e.Name)
}

// statusCoder is implemented by typed failures declared outside this package
// (the cycle error carries its own path and lives with the tree).
type statusCoder interface {
	StatusCode() int
}

// IsTyped reports whether err carries one of the expected, typed outcomes.
func IsTyped(err error) bool {
	return StatusOf(err) != 0
}

// StatusOf maps typed failures to an HTTP status, or 0 if err is not typed.
func StatusOf(err error) int {
	var (
		unauthorized *UnauthorizedError
		treeMissing  *TreeNotFoundError
		nodeMissing  *NodeNotFoundError
		exists       *TreeAlreadyExistsError
		badName      *TreeNameInvalidError
		coder        statusCoder
	)
	switch {
	case errors.As(err, &unauthorized):
		return http.StatusForbidden
	case errors.As(err, &treeMissing), errors.As(err, &nodeMissing):
		return http.StatusNotFound
	case errors.As(err, &exists):
		return http.StatusConflict
	case errors.As(err, &badName):
		return http.StatusBadRequest
	case errors.As(err, &coder):
		return coder.StatusCode()
	}
	return 0
}

// IsUnauthorized checks if an error is an UnauthorizedError
func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

// IsNotFound checks for either typed not-found outcome or a NOT_FOUND AppError
func IsNotFound(err error) bool {
	var tree *TreeNotFoundError
	var node *NodeNotFoundError
	return errors.As(err, &tree) || errors.As(err, &node) || IsType(err, ErrorTypeNotFound)
}
