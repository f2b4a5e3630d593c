// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrFlowAlreadyExists indicates a flow with the same identifier already exists.
	ErrFlowAlreadyExists = errors.New("flow already exists")

	// ErrInvalidFlowStatus indicates an invalid flow status was provided.
	ErrInvalidFlowStatus = errors.New("invalid flow status")

	// ErrNodeNotFound indicates a node was not found by the given identifier.
	ErrNodeNotFound = errors.New("node not found")

	// ErrCredentialNotFound indicates a credential was not found by the given identifier.
	ErrCredentialNotFound = errors.New("credential not found")
)

// FlowError wraps flow-related errors with additional context.
type FlowError struct {
	Op      string // Operation being performed (e.g., "FlowByID", "Save", "Delete")
	FlowID  string // Flow ID if applicable
	Err     error  // Underlying error
	Message string // Additional context message
}

func (e *FlowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for flow %s: %s (%v)", e.Op, e.FlowID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for flow errors.
func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a new flow error with context.
func NewFlowError(op, flowID string, err error) *FlowError {
	return &FlowError{
		Op:     op,
		FlowID: flowID,
		Err:    err,
	}
}

// NodeError wraps node-related errors with additional context.
type NodeError struct {
	Op     string // Operation being performed
	FlowID string // Flow ID
	NodeID string // Node ID
	Err    error  // Underlying error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s operation failed for node %s in flow %s: %v", e.Op, e.NodeID, e.FlowID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewNodeError creates a new node error with context.
func NewNodeError(op, flowID, nodeID string, err error) *NodeError {
	return &NodeError{
		Op:     op,
		FlowID: flowID,
		NodeID: nodeID,
		Err:    err,
	}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsNodeNotFound checks if an error indicates a node was not found.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsCredentialNotFound checks if an error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}
