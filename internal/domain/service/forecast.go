package service

import (
	"context"
)

// SequencePredictor is a trained single-step sequence model. It takes a window
// of normalized values (oldest first) and returns the next normalized value.
// For a fixed loaded model the same window always yields the same output.
type SequencePredictor interface {
	PredictOne(ctx context.Context, window []float64) (float64, error)
}

// Named is implemented by predictors that can report the artifact they were loaded from.
type Named interface {
	Name() string
}

// ConcurrencySafe is implemented by predictors that declare whether concurrent
// PredictOne calls are allowed.
type ConcurrencySafe interface {
	ConcurrentSafe() bool
}

// PredictorName returns the predictor's name or "unnamed".
func PredictorName(p SequencePredictor) string {
	if n, ok := p.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return "unnamed"
}
