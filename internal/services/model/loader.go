package model

import (
	"fmt"
	"sync"

	"FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/forecast"
	"FinCast/pkg/config"
	applogger "FinCast/pkg/logger"
)

// TrainingScale holds the scaling parameters the models were trained with,
// keyed by signal. Nil when no artifact is configured.
type TrainingScale map[string]forecast.ScalingParameters

// inferenceLock serializes every model not declared concurrency safe.
var inferenceLock sync.Mutex

// LoadModels builds both predictors from config. Any failure wraps
// forecast.ErrModelUnavailable and must stop the process before serving.
func LoadModels(cfg *config.Config, metrics repository.Metrics, log *applogger.Logger) (forecast.Models, error) {
	income, err := loadOne(forecast.SignalIncome, cfg.Forecast.Models.Income, cfg.Forecast.WindowSize)
	if err != nil {
		return forecast.Models{}, err
	}
	expenses, err := loadOne(forecast.SignalExpenses, cfg.Forecast.Models.Expenses, cfg.Forecast.WindowSize)
	if err != nil {
		return forecast.Models{}, err
	}

	models := forecast.Models{
		Income:   Instrument(Serialize(income, &inferenceLock), metrics),
		Expenses: Instrument(Serialize(expenses, &inferenceLock), metrics),
	}
	log.Info("models loaded",
		applogger.String("income", domsvc.PredictorName(models.Income)),
		applogger.String("expenses", domsvc.PredictorName(models.Expenses)),
	)
	return models, nil
}

func loadOne(signal string, mc config.ModelConfig, windowSize int) (domsvc.SequencePredictor, error) {
	switch mc.Kind {
	case "lstm":
		m, err := LoadLSTM(mc.Path)
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", signal, err)
		}
		if m.WindowSize() != windowSize {
			return nil, fmt.Errorf("%w: %s model expects window %d, configured %d",
				forecast.ErrModelUnavailable, signal, m.WindowSize(), windowSize)
		}
		if mc.Name != "" {
			m.name = mc.Name
		}
		if m.name == "" {
			m.name = signal + "-lstm"
		}
		return m, nil
	case "remote":
		r, err := NewRemote(mc.Name, mc.URL, mc.Timeout, mc.ConcurrentSafe)
		if err != nil {
			return nil, fmt.Errorf("%w: %s model: %v", forecast.ErrModelUnavailable, signal, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %s model: unknown kind %q", forecast.ErrModelUnavailable, signal, mc.Kind)
	}
}

// LoadTrainingScale reads the scaling artifact when one is configured.
func LoadTrainingScale(cfg *config.Config) (TrainingScale, error) {
	if cfg.Forecast.Scaling.Artifact == "" {
		return nil, nil
	}
	params, err := forecast.LoadScalingArtifact(cfg.Forecast.Scaling.Artifact)
	if err != nil {
		return nil, err
	}
	return TrainingScale(params), nil
}

// NewForecaster assembles the forecaster from config and loaded models.
func NewForecaster(cfg *config.Config, models forecast.Models, training TrainingScale, log *applogger.Logger) (*forecast.Forecaster, error) {
	opts := []forecast.Option{
		forecast.WithWindowSize(cfg.Forecast.WindowSize),
		forecast.WithSteps(cfg.Forecast.Steps),
		forecast.WithBudget(cfg.Forecast.Budget),
	}
	switch forecast.ScalingMode(cfg.Forecast.Scaling.Mode) {
	case forecast.ScalingFixed:
		opts = append(opts, forecast.WithFixedScaling(training))
	default:
		if training != nil {
			log.Warn("scaling refit per request while a training scale is configured; forecasts may differ from training-time normalization",
				applogger.String("artifact", cfg.Forecast.Scaling.Artifact))
		}
	}

	f, err := forecast.New(models, opts...)
	if err != nil {
		return nil, fmt.Errorf("build forecaster: %w", err)
	}
	log.Info("forecaster ready",
		applogger.Int("window_size", f.WindowSize()),
		applogger.Int("steps", f.Steps()),
		applogger.String("scaling", string(f.Mode())),
	)
	return f, nil
}
