package model

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below matches exactly one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrState      = errors.New("invalid state")
	ErrSpec       = errors.New("invalid device specification")
	ErrCommit     = errors.New("commit failed")
	ErrConnection = errors.New("daemon unreachable")

	ErrNotFound = errors.New("entity not found")
)

// ValidationError reports a property value outside its allowed set or range.
type ValidationError struct {
	Entity   string
	Property string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %v", e.Entity, e.Property, e.Err)
}

// Unwrap exposes both ErrValidation and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// StateError reports an operation that is invalid given current state, such
// as activating a disabled profile.
type StateError struct {
	Entity    string
	Operation string
	Reason    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Entity, e.Operation, e.Reason)
}

func (e *StateError) Unwrap() error { return ErrState }

// SpecError reports a device description that violates a model invariant.
// Path locates the offending field, e.g. "profiles[1].resolutions[0]".
type SpecError struct {
	Path string
	Err  error
}

func (e *SpecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %v", ErrSpec, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrSpec, e.Path, e.Err)
}

func (e *SpecError) Unwrap() []error {
	return []error{ErrSpec, e.Err}
}

// CommitError reports a failed atomic apply. State is unchanged.
type CommitError struct {
	Device string
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Device, ErrCommit, e.Err)
}

func (e *CommitError) Unwrap() []error {
	return []error{ErrCommit, e.Err}
}

// ConnectionError reports that the daemon could not be reached. Clients
// treat it as a failed precondition and do not retry.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%v at %s: %v", ErrConnection, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}

func validationErr(entity, property string, err error) error {
	return &ValidationError{Entity: entity, Property: property, Err: err}
}

func stateErr(entity, op, reason string) error {
	return &StateError{Entity: entity, Operation: op, Reason: reason}
}
