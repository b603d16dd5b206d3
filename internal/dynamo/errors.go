package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidField indicates non-positive, non-finite or inconsistent field dimensions.
	ErrInvalidField = errors.New("dynamo: invalid field dimensions")

	// ErrNotInitialized indicates a sample arrived before the field was known.
	ErrNotInitialized = errors.New("dynamo: simulation not initialized")

	// ErrAlreadyInitialized indicates a conflicting second initialization.
	ErrAlreadyInitialized = errors.New("dynamo: simulation already initialized with a different field")

	// ErrInvalidSample indicates a sample carrying NaN or Inf acceleration.
	ErrInvalidSample = errors.New("dynamo: invalid sample (NaN or Inf detected)")
)

// SampleError wraps an error with the position of the offending sample in a stream.
type SampleError struct {
	Index   int
	Time    int64
	Wrapped error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %d (t=%dns): %v", e.Index, e.Time, e.Wrapped)
}

func (e *SampleError) Unwrap() error {
	return e.Wrapped
}
