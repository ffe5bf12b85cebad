package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// LedgerStore persists ledger entries and serves monthly totals.
type LedgerStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBatch(ctx context.Context, entries []*models.LedgerEntry) error
	// MonthlyTotals returns up to n most recent months strictly before until
	// (zero until means no bound), oldest first.
	MonthlyTotals(ctx context.Context, userID string, n int, until time.Time) ([]models.MonthlyTotal, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// EventPublisher emits forecast audit events.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.ForecastEvent) error
	Close() error
}

type Metrics interface {
	RecordForecast(source, status string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordInference(model string, seconds float64, ok bool)
	RecordLedgerEntry(kind string)
}
