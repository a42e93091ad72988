package shared

import "errors"

var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates an operation against an entity whose state forbids it.
	ErrInvalidState = errors.New("invalid state")
	// ErrInsufficientStock indicates a stock check failed during sale completion.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict indicates a unique-constraint or concurrent-mutation collision.
	ErrConflict = errors.New("conflict")
	// ErrReferentialIntegrity indicates reference data still pointed to by events.
	ErrReferentialIntegrity = errors.New("referenced by existing records")
	// ErrStorage indicates an infrastructure failure; the operation is safe to retry.
	ErrStorage = errors.New("storage failure")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)
