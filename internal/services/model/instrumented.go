package model

import (
	"context"
	"time"

	"FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
)

// Instrumented records latency and failures of every PredictOne call.
type Instrumented struct {
	inner   domsvc.SequencePredictor
	name    string
	metrics repository.Metrics
}

// Instrument wraps p. A nil metrics recorder returns p unchanged.
func Instrument(p domsvc.SequencePredictor, m repository.Metrics) domsvc.SequencePredictor {
	if m == nil {
		return p
	}
	return &Instrumented{inner: p, name: domsvc.PredictorName(p), metrics: m}
}

func (i *Instrumented) PredictOne(ctx context.Context, window []float64) (float64, error) {
	start := time.Now()
	v, err := i.inner.PredictOne(ctx, window)
	i.metrics.RecordInference(i.name, time.Since(start).Seconds(), err == nil)
	return v, err
}

func (i *Instrumented) Name() string { return i.name }

func (i *Instrumented) ConcurrentSafe() bool {
	cs, ok := i.inner.(domsvc.ConcurrencySafe)
	return ok && cs.ConcurrentSafe()
}
