package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrAtInitialState is returned by Undo when the pointer is already 0.
	ErrAtInitialState = errors.New("cannot undo further: at initial state")
	// ErrMappingNotApplied is returned when a step runs before the schema mapping is confirmed.
	ErrMappingNotApplied = errors.New("schema mapping has not been applied")
	// ErrRemapAfterAdvance rejects a new mapping once any step has run. Reset first.
	ErrRemapAfterAdvance = errors.New("mapping cannot change after the pipeline has advanced; reset first")
	// ErrEmptyDataset is returned when loading or filtering yields no rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrNotLoaded is returned when an operation needs data that has not been loaded.
	ErrNotLoaded = errors.New("no dataset loaded")
	// ErrUnknownStep is returned for step numbers outside 1..7.
	ErrUnknownStep = errors.New("unknown step")
)

// TransformError records a failed step. The session state is unchanged when it is returned.
type TransformError struct {
	Step int
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("error executing step %d: %v", e.Step, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
