package outline

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an id that does not resolve to a node.
	ErrNotFound = errors.New("node not found")
	// ErrInvalidMove indicates a move that violates a structural precondition.
	ErrInvalidMove = errors.New("invalid move")
	// ErrInvalidTree indicates input that cannot form a valid outline.
	ErrInvalidTree = errors.New("invalid outline")
)

// MoveError describes a rejected engine operation.
type MoveError struct {
	Op     string
	NodeID string
	Reason string
	Err    error
}

func (e *MoveError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.NodeID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %s", e.Op, e.NodeID, e.Err, e.Reason)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

func notFound(op, id string) error {
	return &MoveError{Op: op, NodeID: id, Err: ErrNotFound}
}

func invalidMove(op, id, reason string) error {
	return &MoveError{Op: op, NodeID: id, Reason: reason, Err: ErrInvalidMove}
}

// InvariantError reports the first structural invariant a tree violates.
type InvariantError struct {
	Invariant int
	NodeID    string
	Message   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %d violated at %s: %s", e.Invariant, e.NodeID, e.Message)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvalidTree
}
