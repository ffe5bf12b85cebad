package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/model"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// ErrLedgerUnavailable is returned for per-user forecasts when the ledger
// store is not configured or cannot be queried.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

const eventPublishTimeout = 2 * time.Second

// ForecastUseCase turns raw histories or a user's ledger into a forecast result.
type ForecastUseCase struct {
	forecaster *forecast.Forecaster
	ledger     domrepo.LedgerStore
	events     domrepo.EventPublisher
	metrics    domrepo.Metrics
	training   model.TrainingScale
	log        *applogger.Logger
	now        func() time.Time
}

// NewForecastUseCase wires the use case. ledger and events may be nil.
func NewForecastUseCase(f *forecast.Forecaster, ledger domrepo.LedgerStore, events domrepo.EventPublisher,
	metrics domrepo.Metrics, training model.TrainingScale, log *applogger.Logger) *ForecastUseCase {
	return &ForecastUseCase{
		forecaster: f,
		ledger:     ledger,
		events:     events,
		metrics:    metrics,
		training:   training,
		log:        log.With(applogger.String("component", "forecast")),
		now:        time.Now,
	}
}

type ForecastWindowsParams struct {
	Income     []float64
	Expenses   []float64
	Order      string
	LastPeriod string
}

// ForecastWindows forecasts client-supplied histories.
func (uc *ForecastUseCase) ForecastWindows(ctx context.Context, p ForecastWindowsParams) (*models.ForecastResult, error) {
	start := uc.now()
	res, err := uc.forecastWindows(ctx, p)
	uc.finish(ctx, models.SourceRequest, "", start, res, err)
	return res, err
}

func (uc *ForecastUseCase) forecastWindows(ctx context.Context, p ForecastWindowsParams) (*models.ForecastResult, error) {
	income, err := normalizeOrder(p.Income, p.Order)
	if err != nil {
		return nil, err
	}
	expenses, err := normalizeOrder(p.Expenses, p.Order)
	if err != nil {
		return nil, err
	}

	var last time.Time
	if p.LastPeriod != "" {
		if last, err = util.ParsePeriod(p.LastPeriod); err != nil {
			return nil, fmt.Errorf("%w: %v", forecast.ErrInvalidInput, err)
		}
	}
	return uc.run(ctx, income, expenses, last)
}

// ForecastUser forecasts from the user's most recent monthly ledger totals.
// asOf ("YYYY-MM", optional) is the last month included in the history.
func (uc *ForecastUseCase) ForecastUser(ctx context.Context, userID, asOf string) (*models.ForecastResult, error) {
	start := uc.now()
	res, err := uc.forecastUser(ctx, userID, asOf)
	uc.finish(ctx, models.SourceLedger, userID, start, res, err)
	return res, err
}

func (uc *ForecastUseCase) forecastUser(ctx context.Context, userID, asOf string) (*models.ForecastResult, error) {
	if uc.ledger == nil {
		return nil, fmt.Errorf("%w: not configured", ErrLedgerUnavailable)
	}
	var until time.Time
	if asOf != "" {
		p, err := util.ParsePeriod(asOf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", forecast.ErrInvalidInput, err)
		}
		until = util.AddMonths(p, 1)
	}

	n := uc.forecaster.WindowSize()
	totals, err := uc.ledger.MonthlyTotals(ctx, userID, n, until)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: load monthly totals: %w", ErrLedgerUnavailable, err)
	}
	totals = fillMonthGaps(totals)
	if len(totals) > n {
		totals = totals[len(totals)-n:]
	}

	income, expenses := models.SignalsFromTotals(totals)
	for _, s := range []models.Signal{income, expenses} {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("ledger history: %w", err)
		}
	}
	res, err := uc.run(ctx, income.Values(), expenses.Values(), income.Last())
	if err != nil {
		return nil, err
	}
	res.UserID = userID
	return res, nil
}

func (uc *ForecastUseCase) run(ctx context.Context, income, expenses []float64, last time.Time) (*models.ForecastResult, error) {
	out, err := uc.forecaster.Forecast(ctx, forecast.Input{Income: income, Expenses: expenses})
	if err != nil {
		return nil, err
	}
	res := &models.ForecastResult{
		ID:          uuid.NewString(),
		Income:      out.Income,
		Expenses:    out.Expenses,
		Summary:     features.Summarize(out.Income, out.Expenses),
		ScalingMode: string(out.Mode),
		Models:      uc.modelNames(),
	}
	if !last.IsZero() {
		res.Periods = util.NextPeriods(last, len(out.Income))
	}
	return res, nil
}

func (uc *ForecastUseCase) finish(ctx context.Context, source, userID string, start time.Time, res *models.ForecastResult, err error) {
	dur := uc.now().Sub(start)
	status := ErrorKind(err)
	uc.metrics.RecordForecast(source, status)
	uc.metrics.RecordLatency("forecast_"+source, dur.Seconds())

	ev := &models.ForecastEvent{
		ID:          uuid.NewString(),
		Type:        models.EventForecastCompleted,
		Source:      source,
		UserID:      userID,
		Models:      uc.modelNames(),
		ScalingMode: string(uc.forecaster.Mode()),
		DurationMS:  dur.Milliseconds(),
		Timestamp:   start.UTC(),
	}
	if res != nil {
		res.Source = source
		res.CreatedAt = start.UTC()
		res.Duration = dur
		ev.ID = res.ID
	}
	if err != nil {
		ev.Type = models.EventForecastFailed
		ev.Error = err.Error()
		uc.logFailure(source, userID, status, err)
	}
	uc.publish(ctx, ev)
}

func (uc *ForecastUseCase) logFailure(source, userID, status string, err error) {
	fields := []applogger.Field{
		applogger.String("source", source),
		applogger.String("status", status),
		applogger.Error(err),
	}
	if userID != "" {
		fields = append(fields, applogger.String("user_id", userID))
	}
	switch status {
	case "inference_failure", "error":
		uc.log.Error("forecast failed", fields...)
	default:
		uc.log.Warn("forecast rejected", fields...)
	}
}

func (uc *ForecastUseCase) publish(ctx context.Context, ev *models.ForecastEvent) {
	if uc.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.metrics.RecordError("event_publish")
		uc.log.Warn("publish forecast event", applogger.String("event_id", ev.ID), applogger.Error(err))
	}
}

func (uc *ForecastUseCase) modelNames() map[string]string {
	m := uc.forecaster.Models()
	return map[string]string{
		forecast.SignalIncome:   domsvc.PredictorName(m.Income),
		forecast.SignalExpenses: domsvc.PredictorName(m.Expenses),
	}
}

// ModelInfo reports the loaded models and forecasting setup.
func (uc *ForecastUseCase) ModelInfo() models.ModelInfo {
	info := models.ModelInfo{
		Models:      uc.modelNames(),
		WindowSize:  uc.forecaster.WindowSize(),
		Steps:       uc.forecaster.Steps(),
		ScalingMode: string(uc.forecaster.Mode()),
	}
	if uc.training != nil {
		info.Training = make(map[string]map[string]float64, len(uc.training))
		for sig, p := range uc.training {
			info.Training[sig] = map[string]float64{"min": p.Min, "max": p.Max}
		}
	}
	return info
}

// ErrorKind classifies a forecast error for metrics and events.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, forecast.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, forecast.ErrInferenceFailure):
		return "inference_failure"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrLedgerUnavailable):
		return "ledger_unavailable"
	default:
		return "error"
	}
}

// normalizeOrder returns a copy of values oldest first.
func normalizeOrder(values []float64, order string) ([]float64, error) {
	out := slices.Clone(values)
	switch order {
	case "", models.OrderOldestFirst:
	case models.OrderNewestFirst:
		slices.Reverse(out)
	default:
		return nil, fmt.Errorf("%w: unknown order %q", forecast.ErrInvalidInput, order)
	}
	return out, nil
}

// fillMonthGaps inserts zero totals for months without entries between the
// oldest and newest returned month. Input and output are oldest first.
func fillMonthGaps(totals []models.MonthlyTotal) []models.MonthlyTotal {
	if len(totals) < 2 {
		return totals
	}
	out := make([]models.MonthlyTotal, 0, len(totals))
	for i, t := range totals {
		if i > 0 {
			for p := util.AddMonths(totals[i-1].Period, 1); p.Before(util.MonthStart(t.Period)); p = util.AddMonths(p, 1) {
				out = append(out, models.MonthlyTotal{Period: p})
			}
		}
		out = append(out, t)
	}
	return out
}
