package models

import "time"

// Order of a history array supplied by a client.
const (
	OrderOldestFirst = "oldest_first"
	OrderNewestFirst = "newest_first"
)

// Forecast sources.
const (
	SourceRequest = "request"
	SourceLedger  = "ledger"
)

// ForecastSummary holds aggregate statistics over the forecast horizon.
type ForecastSummary struct {
	TotalIncome    float64   `json:"total_income"`
	TotalExpenses  float64   `json:"total_expenses"`
	Net            float64   `json:"net"`
	MeanIncome     float64   `json:"mean_income"`
	MeanExpenses   float64   `json:"mean_expenses"`
	StdIncome      float64   `json:"std_income"`
	StdExpenses    float64   `json:"std_expenses"`
	CumulativeNet  []float64 `json:"cumulative_net"`
	DeficitPeriods int       `json:"deficit_periods"`
}

// ForecastResult is the denormalized forecast of both signals.
// Income and Expenses are ordered oldest future period first.
type ForecastResult struct {
	ID          string
	Source      string
	UserID      string
	Income      []float64
	Expenses    []float64
	Periods     []string
	Summary     ForecastSummary
	ScalingMode string
	Models      map[string]string
	CreatedAt   time.Time
	Duration    time.Duration
}

// ModelInfo describes the loaded models and forecasting setup.
type ModelInfo struct {
	Models      map[string]string             `json:"models"`
	WindowSize  int                           `json:"window_size"`
	Steps       int                           `json:"steps"`
	ScalingMode string                        `json:"scaling"`
	Training    map[string]map[string]float64 `json:"training_scale,omitempty"`
}

// ForecastEvent is the audit record published for every forecast attempt.
// It never carries forecast values.
type ForecastEvent struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Source      string            `json:"source"`
	UserID      string            `json:"user_id,omitempty"`
	Models      map[string]string `json:"models"`
	ScalingMode string            `json:"scaling"`
	DurationMS  int64             `json:"duration_ms"`
	Error       string            `json:"error,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

const (
	EventForecastCompleted = "forecast.completed"
	EventForecastFailed    = "forecast.failed"
)
