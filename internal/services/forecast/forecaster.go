package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

const (
	// WindowSize is the number of most recent periods fed to the model.
	WindowSize = 12
	// Steps is the number of future periods produced per signal.
	Steps = 12

	SignalIncome   = models.SignalIncome
	SignalExpenses = models.SignalExpenses
)

// ScalingMode selects where scaling parameters come from.
type ScalingMode string

const (
	// ScalingRefit fits the scaler on each request's own window.
	ScalingRefit ScalingMode = "refit"
	// ScalingFixed uses externally supplied parameters matching the ones used in training.
	ScalingFixed ScalingMode = "fixed"
)

// Models holds one trained predictor per signal.
type Models struct {
	Income   domsvc.SequencePredictor
	Expenses domsvc.SequencePredictor
}

func (m Models) forSignal(signal string) domsvc.SequencePredictor {
	switch signal {
	case SignalIncome:
		return m.Income
	case SignalExpenses:
		return m.Expenses
	default:
		return nil
	}
}

// Input holds the raw history of both signals, oldest first.
type Input struct {
	Income   []float64
	Expenses []float64
}

// Output holds the denormalized forecast of both signals, oldest future period first.
type Output struct {
	Income   []float64
	Expenses []float64
	Scaling  map[string]ScalingParameters
	Mode     ScalingMode
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithWindowSize overrides WindowSize.
func WithWindowSize(n int) Option {
	return func(f *Forecaster) { f.windowSize = n }
}

// WithSteps overrides Steps.
func WithSteps(n int) Option {
	return func(f *Forecaster) { f.steps = n }
}

// WithBudget bounds the wall-clock time of a single Forecast call. Zero disables it.
func WithBudget(d time.Duration) Option {
	return func(f *Forecaster) { f.budget = d }
}

// WithFixedScaling switches to ScalingFixed using params keyed by signal name.
func WithFixedScaling(params map[string]ScalingParameters) Option {
	return func(f *Forecaster) {
		f.mode = ScalingFixed
		f.fixed = params
	}
}

// Forecaster runs autoregressive rollouts over injected models. It holds no
// per-request state and is safe for concurrent use as long as its models are.
type Forecaster struct {
	models     Models
	windowSize int
	steps      int
	budget     time.Duration
	mode       ScalingMode
	fixed      map[string]ScalingParameters
}

// New builds a Forecaster. Both models are required.
func New(m Models, opts ...Option) (*Forecaster, error) {
	f := &Forecaster{
		models:     m,
		windowSize: WindowSize,
		steps:      Steps,
		mode:       ScalingRefit,
	}
	for _, opt := range opts {
		opt(f)
	}

	if m.Income == nil || m.Expenses == nil {
		return nil, fmt.Errorf("%w: both income and expenses models are required", ErrModelUnavailable)
	}
	if f.windowSize <= 0 || f.steps <= 0 {
		return nil, invalidInputf("window size and steps must be positive, got %d and %d", f.windowSize, f.steps)
	}
	if f.mode == ScalingFixed {
		for _, s := range []string{SignalIncome, SignalExpenses} {
			p, ok := f.fixed[s]
			if !ok {
				return nil, fmt.Errorf("fixed scaling: missing parameters for %s", s)
			}
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("fixed scaling for %s: %w", s, err)
			}
		}
	}
	return f, nil
}

// Mode reports the active scaling mode.
func (f *Forecaster) Mode() ScalingMode { return f.mode }

// WindowSize reports the configured window length.
func (f *Forecaster) WindowSize() int { return f.windowSize }

// Steps reports the configured forecast horizon.
func (f *Forecaster) Steps() int { return f.steps }

// Models returns the injected models.
func (f *Forecaster) Models() Models { return f.models }

// Forecast validates both signals, then rolls each one out independently.
// Either both forecasts are returned or none.
func (f *Forecaster) Forecast(ctx context.Context, in Input) (*Output, error) {
	if err := f.checkHistory(SignalIncome, in.Income); err != nil {
		return nil, err
	}
	if err := f.checkHistory(SignalExpenses, in.Expenses); err != nil {
		return nil, err
	}

	if f.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.budget)
		defer cancel()
	}

	var (
		incomeOut, expensesOut     []float64
		incomeScale, expensesScale ScalingParameters
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomeOut, incomeScale, err = f.ForecastSignal(gctx, SignalIncome, in.Income)
		return err
	})
	g.Go(func() error {
		var err error
		expensesOut, expensesScale, err = f.ForecastSignal(gctx, SignalExpenses, in.Expenses)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Output{
		Income:   incomeOut,
		Expenses: expensesOut,
		Scaling: map[string]ScalingParameters{
			SignalIncome:   incomeScale,
			SignalExpenses: expensesScale,
		},
		Mode: f.mode,
	}, nil
}

// ForecastSignal rolls out a single signal and returns the denormalized
// forecast together with the scaling parameters used.
func (f *Forecaster) ForecastSignal(ctx context.Context, signal string, values []float64) ([]float64, ScalingParameters, error) {
	model := f.models.forSignal(signal)
	if model == nil {
		return nil, ScalingParameters{}, invalidInputf("unknown signal %q", signal)
	}
	if err := f.checkHistory(signal, values); err != nil {
		return nil, ScalingParameters{}, err
	}

	scale, err := f.scaleFor(signal, values)
	if err != nil {
		return nil, ScalingParameters{}, err
	}

	r, err := seed(signal, model, values, scale, f.windowSize, f.steps)
	if err != nil {
		return nil, ScalingParameters{}, err
	}
	if err := r.run(ctx); err != nil {
		return nil, ScalingParameters{}, err
	}
	return r.result(), scale, nil
}

func (f *Forecaster) checkHistory(signal string, values []float64) error {
	if len(values) < f.windowSize {
		return &HistoryError{Signal: signal, Got: len(values), Want: f.windowSize}
	}
	if len(values) > f.windowSize {
		return invalidInputf("%s has %d observations, expected exactly %d", signal, len(values), f.windowSize)
	}
	return checkFinite(values)
}

func (f *Forecaster) scaleFor(signal string, values []float64) (ScalingParameters, error) {
	if f.mode == ScalingFixed {
		return f.fixed[signal], nil
	}
	return Fit(values)
}

type rolloutState int

const (
	stateSeeded rolloutState = iota
	stateStepping
	stateDone
)

func (s rolloutState) String() string {
	switch s {
	case stateSeeded:
		return "seeded"
	case stateStepping:
		return "stepping"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// rollout is one signal's autoregressive loop: SEEDED -> STEPPING (xN) -> DONE.
type rollout struct {
	signal string
	model  domsvc.SequencePredictor
	scale  ScalingParameters
	window *Window
	preds  []float64
	steps  int
	state  rolloutState
}

func seed(signal string, model domsvc.SequencePredictor, values []float64, scale ScalingParameters, size, steps int) (*rollout, error) {
	w, err := NewWindow(signal, scale.TransformAll(values), size)
	if err != nil {
		return nil, err
	}
	return &rollout{
		signal: signal,
		model:  model,
		scale:  scale,
		window: w,
		preds:  make([]float64, 0, steps),
		steps:  steps,
		state:  stateSeeded,
	}, nil
}

// step predicts the next normalized value from the current window and feeds it back.
func (r *rollout) step(ctx context.Context) error {
	if r.state == stateDone {
		return fmt.Errorf("rollout %s: step called in state %s", r.signal, r.state)
	}
	r.state = stateStepping
	n := len(r.preds)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s step %d: %w", r.signal, n, err)
	}
	pred, err := r.model.PredictOne(ctx, r.window.Snapshot())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s step %d: %w", r.signal, n, ctxErr)
		}
		return &InferenceError{Signal: r.signal, Step: n, Err: err}
	}
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		return &InferenceError{Signal: r.signal, Step: n, Err: fmt.Errorf("non-finite prediction %v", pred)}
	}

	r.preds = append(r.preds, pred)
	r.window.Slide(pred)
	if len(r.preds) == r.steps {
		r.state = stateDone
	}
	return nil
}

func (r *rollout) run(ctx context.Context) error {
	for r.state != stateDone {
		if err := r.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// result denormalizes the accumulated predictions in production order.
func (r *rollout) result() []float64 {
	return r.scale.InverseTransformAll(r.preds)
}
