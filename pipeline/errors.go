package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrMisaligned is returned when the words of a batch do not line up
	// with its detected structure and no fallback extractor could replace
	// them
	ErrMisaligned = errors.New("words not aligned with the layout")

	// ErrNoPages is returned when a run selects no page of the document
	ErrNoPages = errors.New("no pages to process")
)

// BatchError records the batch that failed and the last state it reached
type BatchError struct {
	Batch int
	Pages []int
	State State
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("pipeline: batch %d (pages %v) failed after %s: %v", e.Batch, e.Pages, e.State, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
