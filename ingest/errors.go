package ingest

import (
	"errors"
	"fmt"
)

// ErrExtractionFailed marks a unit whose page text could not be extracted
// from the source document.
var ErrExtractionFailed = errors.New("page text extraction failed")

// UnitFailure records why a single page-level unit failed. Failures are
// per-unit: siblings keep processing.
type UnitFailure struct {
	Page int
	Err  error
}

func (f UnitFailure) Error() string {
	return fmt.Sprintf("unit %d: %v", f.Page, f.Err)
}

func (f UnitFailure) Unwrap() error { return f.Err }

// ErrIngestionFailed is returned when every unit of a document failed; a
// partial result is preferred whenever at least one unit succeeds.
type ErrIngestionFailed struct {
	File  string
	Pages []int
}

func (e *ErrIngestionFailed) Error() string {
	return fmt.Sprintf("ingestion of %s failed: all %d units failed", e.File, len(e.Pages))
}
