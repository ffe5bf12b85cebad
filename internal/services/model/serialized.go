package model

import (
	"context"
	"sync"

	domsvc "FinCast/internal/domain/service"
)

// Serialized funnels every PredictOne through a shared lock. Models that
// cannot be invoked concurrently are wrapped with one lock for the whole process.
type Serialized struct {
	mu    *sync.Mutex
	inner domsvc.SequencePredictor
}

// Serialize wraps p with mu unless p declares itself concurrency safe.
func Serialize(p domsvc.SequencePredictor, mu *sync.Mutex) domsvc.SequencePredictor {
	if cs, ok := p.(domsvc.ConcurrencySafe); ok && cs.ConcurrentSafe() {
		return p
	}
	return &Serialized{mu: mu, inner: p}
}

func (s *Serialized) PredictOne(ctx context.Context, window []float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.PredictOne(ctx, window)
}

func (s *Serialized) Name() string { return domsvc.PredictorName(s.inner) }

// ConcurrentSafe is true: the lock makes the wrapped model safe to share.
func (s *Serialized) ConcurrentSafe() bool { return true }
