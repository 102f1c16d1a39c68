package contracts

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced by the dispatch core. The dispatcher is the
// only translation point: everything below it returns one of these (possibly
// wrapped), and Handle converts them into a failed ExecutionResult.
var (
	// ErrEmptyInstruction: the instruction text is empty after trimming.
	ErrEmptyInstruction = errors.New("empty instruction")

	// ErrClassificationUnavailable: the completion service was unreachable
	// or its reply was unusable. Recovered via the keyword fallback; only
	// surfaced if the fallback finds nothing either.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrRemoteTimeout: a bounded remote call did not return in time.
	ErrRemoteTimeout = errors.New("remote timeout")

	// ErrIndeterminate: the request was cancelled after the remote call had
	// been issued; the operation may or may not have taken effect.
	ErrIndeterminate = errors.New("indeterminate: operation may have been applied")
)

// UnknownCategoryError reports a category with no registered agent. Reachable
// through the explicit-override path, where callers pass arbitrary strings.
type UnknownCategoryError struct {
	Category string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown agent category %q", e.Category)
}

// MissingParameterError is a planning failure: the instruction did not carry
// a parameter the agent requires.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// InvalidParameterError is a planning failure: a parameter was present but
// unusable.
type InvalidParameterError struct {
	Name   string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}

// TargetNotFoundError is a planning failure: the read-only lookup against
// the infrastructure service found no resource with this id.
type TargetNotFoundError struct {
	ResourceID string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target %q not found", e.ResourceID)
}

// RemoteFaultError wraps a fault reported by the infrastructure service for
// an execution call that did reach it.
type RemoteFaultError struct {
	Detail string
}

func (e *RemoteFaultError) Error() string {
	return fmt.Sprintf("remote fault: %s", e.Detail)
}
