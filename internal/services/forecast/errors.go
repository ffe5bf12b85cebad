package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means a signal has fewer observations than the window needs.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInferenceFailure means the model failed on a well-formed window.
	ErrInferenceFailure = errors.New("inference failure")
	// ErrModelUnavailable means a model or scaling artifact could not be loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInvalidInput covers malformed input rejected before it reaches the model.
	ErrInvalidInput = errors.New("invalid input")
)

// HistoryError reports how many observations a signal had versus how many were required.
type HistoryError struct {
	Signal string
	Got    int
	Want   int
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("%s: %s has %d observations, need %d", ErrInsufficientHistory, e.Signal, e.Got, e.Want)
}

func (e *HistoryError) Unwrap() error { return ErrInsufficientHistory }

// InferenceError pins an inference failure to the signal and rollout step where it happened.
type InferenceError struct {
	Signal string
	Step   int
	Err    error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: %s step %d: %v", ErrInferenceFailure, e.Signal, e.Step, e.Err)
}

func (e *InferenceError) Unwrap() []error { return []error{ErrInferenceFailure, e.Err} }

func invalidInputf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, a...))
}
