package docstore

import (
	"errors"
	"fmt"
)

// ErrInvalidK is returned when a search asks for a non-positive result count.
var ErrInvalidK = errors.New("k must be positive")

// ErrEmptyVector is returned when a record carries no vector at all.
var ErrEmptyVector = errors.New("empty vector")

// ErrDimensionMismatch indicates a vector whose dimension differs from the
// store's fixed dimension. The failing call is rejected; the store is left
// unchanged.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
