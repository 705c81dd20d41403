package capability

import (
	"errors"
	"fmt"
	"slices"
)

// Validation errors.
var (
	ErrNotInSet   = errors.New("value not in allowed set")
	ErrOutOfRange = errors.New("value out of range")
)

// Member checks v is in allowed. An empty allowed set accepts anything.
func Member[T comparable](v T, allowed []T, what string) error {
	if len(allowed) == 0 || slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%w: %s %v not in %v", ErrNotInSet, what, v, allowed)
}

// StrictMember checks v is in allowed; an empty set accepts nothing.
func StrictMember[T comparable](v T, allowed []T, what string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%w: %s %v not in %v", ErrNotInSet, what, v, allowed)
}
