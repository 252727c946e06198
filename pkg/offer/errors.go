package offer

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("offer: validation failed")
	ErrWorkflowTerminal  = errors.New("offer: workflow is terminal")
	ErrGateway           = errors.New("offer: gateway call failed")
	ErrConflict          = errors.New("offer: concurrent modification")
	ErrNotFound          = errors.New("offer: workflow not found")
	ErrDuplicateWorkflow = errors.New("offer: workflow already exists for application")
	ErrNotSelected       = errors.New("offer: application is not selected")

	ErrApplicationNotFound = fmt.Errorf("offer: application not found: %w", ErrNotFound)
	ErrJobNotFound         = fmt.Errorf("offer: job not found: %w", ErrNotFound)
)

// Stable codes returned to callers alongside the human readable message.
const (
	CodeValidation        = "validation_error"
	CodeWorkflowTerminal  = "workflow_terminal"
	CodeGateway           = "gateway_error"
	CodeConflict          = "conflict"
	CodeNotFound          = "not_found"
	CodeDuplicateWorkflow = "duplicate_workflow"
	CodeNotSelected       = "not_selected"
	CodeInternal          = "internal"
)

// ValidationError names the payload field that was missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("offer: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// GatewayError wraps a failed or timed out side effect.
type GatewayError struct {
	Effect EffectKind
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("offer: %s failed", e.Effect)
	}
	return fmt.Sprintf("offer: %s failed: %v", e.Effect, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGateway}
	}
	return []error{ErrGateway, e.Err}
}

// Code maps an error from any layer of the engine to its stable code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrWorkflowTerminal):
		return CodeWorkflowTerminal
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrGateway):
		return CodeGateway
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateWorkflow):
		return CodeDuplicateWorkflow
	case errors.Is(err, ErrNotSelected):
		return CodeNotSelected
	default:
		return CodeInternal
	}
}

// Message renders err for an end user. Internal failures are not echoed.
func Message(err error) string {
	var verr *ValidationError
	var gerr *GatewayError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return fmt.Sprintf("%s %s", verr.Field, verr.Reason)
	case errors.Is(err, ErrWorkflowTerminal):
		return "workflow is already completed or rejected"
	case errors.Is(err, ErrConflict):
		return "workflow was modified concurrently, reload and retry"
	case errors.As(err, &gerr):
		return fmt.Sprintf("%s failed, please retry", gerr.Effect.Label())
	case errors.Is(err, ErrGateway):
		return "external service call failed, please retry"
	case errors.Is(err, ErrApplicationNotFound):
		return "application not found"
	case errors.Is(err, ErrJobNotFound):
		return "job not found"
	case errors.Is(err, ErrNotFound):
		return "workflow not found"
	case errors.Is(err, ErrDuplicateWorkflow):
		return "an offer workflow already exists for this application"
	case errors.Is(err, ErrNotSelected):
		return "application must be selected before an offer workflow can start"
	default:
		return "internal error"
	}
}
