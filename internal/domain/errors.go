package domain

import "errors"

var (
	// ErrInvalidID means the raw identifier is not a well-formed ReviewID.
	ErrInvalidID = errors.New("invalid review id")

	// ErrNotFound means a well-formed id matched no record.
	ErrNotFound = errors.New("review not found")
)

// InferenceError wraps a classifier failure. The single-record path surfaces
// it to the caller; the batch path records it and moves on.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return "inference failed: " + e.Err.Error() }
func (e *InferenceError) Unwrap() error { return e.Err }
