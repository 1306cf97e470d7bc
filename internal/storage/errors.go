package storage

import (
	"errors"
	"fmt"
)

// Shared storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAggregationFailed marks a failed aggregation query. It separates
	// "data unavailable, retry" from "no data, score with defaults":
	// empty result sets are never wrapped in it.
	ErrAggregationFailed = errors.New("aggregation failed")
)

// AggregationError wraps a storage failure raised while gathering signals
// for a scoring run. Matches ErrAggregationFailed via errors.Is and keeps
// the underlying cause reachable through errors.Unwrap.
type AggregationError struct {
	Op  string // query description, e.g. "count save events"
	Err error
}

// NewAggregationError wraps err as an aggregation failure for op.
func NewAggregationError(op string, err error) *AggregationError {
	return &AggregationError{Op: op, Err: err}
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed: %s: %v", e.Op, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Is reports ErrAggregationFailed identity for errors.Is matching.
func (e *AggregationError) Is(target error) bool { return target == ErrAggregationFailed }
