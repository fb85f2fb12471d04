package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHistory means no readings were supplied at all
	ErrEmptyHistory = errors.New("empty history")

	// ErrInsufficientData means a fit had too few points to be meaningful
	ErrInsufficientData = errors.New("insufficient data")
)

// PredictionError is the single failure type returned by Engine.Predict.
// Stage names the step that failed ("profile", "short-term trend", ...).
type PredictionError struct {
	Stage string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("forecast %s: %v", e.Stage, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	return &PredictionError{Stage: stage, Err: err}
}
