// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidStatus    = errors.New("invalid flow status")
	ErrEmptyOwner       = errors.New("owner cannot be empty")

	// Publishing Validation Errors (400 Bad Request).
	ErrFlowNameRequired    = errors.New("flow name is required")
	ErrNodesRequired       = errors.New("flow must have at least one node")
	ErrTriggerNodeRequired = errors.New("flow must have at least one trigger node")
	ErrFlowNil             = errors.New("flow cannot be nil")

	// Node validation errors.
	ErrNotAnAgent       = errors.New("node is not an AI agent")
	ErrInvalidEdgeData  = errors.New("invalid edge handle reference")
	ErrUnknownTool      = errors.New("unknown tool key")
	ErrUnknownAppAction = errors.New("unknown app action")

	// Business Logic Conflicts (409 Conflict).
	ErrCannotModifyPublished   = errors.New("cannot modify published flow")
	ErrCannotModifyUnpublished = errors.New("cannot modify unpublished flow")
	ErrAlreadyPublished        = errors.New("flow is already published")
	ErrNotPublished            = errors.New("flow is not published")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrEmptyOwner) ||
		errors.Is(err, ErrFlowNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrTriggerNodeRequired) ||
		errors.Is(err, ErrFlowNil) ||
		errors.Is(err, ErrNotAnAgent) ||
		errors.Is(err, ErrInvalidEdgeData) ||
		errors.Is(err, ErrUnknownTool) ||
		errors.Is(err, ErrUnknownAppAction)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotModifyPublished) ||
		errors.Is(err, ErrCannotModifyUnpublished) ||
		errors.Is(err, ErrAlreadyPublished) ||
		errors.Is(err, ErrNotPublished)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
