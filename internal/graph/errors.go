package graph

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds surfaced by graph compilation and tape execution.
// Match them with errors.Is.
var (
	ErrGraphCycle            = errors.New("graph cycle")
	ErrMissingDependency     = errors.New("missing dependency")
	ErrUnregisteredOperation = errors.New("unregistered operation type")
	ErrShapeMismatch         = errors.New("shape or arity mismatch")
	ErrNoResult              = errors.New("evaluation produced no result")
	ErrInvalidTape           = errors.New("invalid tape")
)

// Error carries the node and operation kind involved in a failure.
type Error struct {
	Kind    error  // One of the Err* kinds above.
	Node    NodeID // Offending node, 0 if unknown.
	Op      string // Operation kind name, empty if unknown.
	Details string // Additional details.
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Node != 0 && e.Op != "":
		return fmt.Sprintf("%v: node %d (%s): %s", e.Kind, e.Node, e.Op, e.Details)
	case e.Node != 0:
		return fmt.Sprintf("%v: node %d: %s", e.Kind, e.Node, e.Details)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Details)
	}
}

// Unwrap returns the error kind so errors.Is matches it.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, node NodeID, op string, format string, args ...any) error {
	return &Error{
		Kind:    kind,
		Node:    node,
		Op:      op,
		Details: fmt.Sprintf(format, args...),
	}
}
