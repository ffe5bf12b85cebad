package forecast

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
)

// meanModel predicts the mean of the window.
type meanModel struct{ calls atomic.Int64 }

func (m *meanModel) PredictOne(_ context.Context, window []float64) (float64, error) {
	m.calls.Add(1)
	return stat.Mean(window, nil), nil
}

type recordingModel struct {
	seen [][]float64
	next float64
}

func (m *recordingModel) PredictOne(_ context.Context, window []float64) (float64, error) {
	m.seen = append(m.seen, window)
	m.next += 0.1
	return m.next, nil
}

type failingModel struct {
	failAt int
	calls  int
}

func (m *failingModel) PredictOne(_ context.Context, _ []float64) (float64, error) {
	m.calls++
	if m.calls > m.failAt {
		return 0, errors.New("numeric fault")
	}
	return 0.5, nil
}

type constModel float64

func (c constModel) PredictOne(context.Context, []float64) (float64, error) { return float64(c), nil }

type slowModel struct{ d time.Duration }

func (m slowModel) PredictOne(ctx context.Context, _ []float64) (float64, error) {
	select {
	case <-time.After(m.d):
		return 0.5, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

var seasonalIncome = []float64{100, 110, 120, 100, 110, 120, 100, 110, 120, 100, 110, 120}

func newMeanForecaster(t *testing.T, opts ...Option) *Forecaster {
	t.Helper()
	f, err := New(Models{Income: &meanModel{}, Expenses: &meanModel{}}, opts...)
	require.NoError(t, err)
	return f
}

// referenceMeanRollout recomputes the expected forecast with plain slices:
// append the window mean, drop the first element, repeat.
func referenceMeanRollout(raw []float64, steps int) []float64 {
	lo, hi := raw[0], raw[0]
	for _, v := range raw {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	window := make([]float64, len(raw))
	for i, v := range raw {
		if hi == lo {
			window[i] = 0
		} else {
			window[i] = (v - lo) / (hi - lo)
		}
	}
	out := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		sum := 0.0
		for _, v := range window {
			sum += v
		}
		p := sum / float64(len(window))
		if hi == lo {
			out = append(out, lo)
		} else {
			out = append(out, p*(hi-lo)+lo)
		}
		window = append(window[1:], p)
	}
	return out
}

func TestForecastSeasonalIncomeMatchesReference(t *testing.T) {
	f := newMeanForecaster(t)
	out, err := f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: seasonalIncome})
	require.NoError(t, err)

	require.Len(t, out.Income, Steps)
	want := referenceMeanRollout(seasonalIncome, Steps)
	for i := range want {
		assert.InDelta(t, want[i], out.Income[i], 1e-9, "step %d", i)
	}

	// First steps by hand: window mean 0.5 -> 110; then (6 - 0 + 0.5)/12; then (6.5 - 0.5 + 0.541666..)/12.
	assert.InDelta(t, 110.0, out.Income[0], 1e-9)
	assert.InDelta(t, 100+20*(6.5/12), out.Income[1], 1e-9)
	assert.InDelta(t, 100+20*((6.0+6.5/12)/12), out.Income[2], 1e-9)

	assert.Equal(t, ScalingParameters{Min: 100, Max: 120}, out.Scaling[SignalIncome])
	assert.Equal(t, ScalingRefit, out.Mode)
}

func TestForecastConstantWindow(t *testing.T) {
	ones := make([]float64, WindowSize)
	for i := range ones {
		ones[i] = 1
	}
	f := newMeanForecaster(t)
	out, err := f.Forecast(context.Background(), Input{Income: ones, Expenses: ones})
	require.NoError(t, err)

	require.Len(t, out.Income, Steps)
	require.Len(t, out.Expenses, Steps)
	for i := 0; i < Steps; i++ {
		assert.Equal(t, 1.0, out.Income[i])
		assert.Equal(t, 1.0, out.Expenses[i])
	}
}

func TestForecastIsDeterministic(t *testing.T) {
	f := newMeanForecaster(t)
	in := Input{Income: seasonalIncome, Expenses: []float64{50, 75, 20, 90, 33, 41, 67, 80, 12, 55, 61, 70}}

	a, err := f.Forecast(context.Background(), in)
	require.NoError(t, err)
	b, err := f.Forecast(context.Background(), in)
	require.NoError(t, err)

	for i := 0; i < Steps; i++ {
		assert.Equal(t, math.Float64bits(a.Income[i]), math.Float64bits(b.Income[i]))
		assert.Equal(t, math.Float64bits(a.Expenses[i]), math.Float64bits(b.Expenses[i]))
	}
}

func TestForecastDoesNotMutateInput(t *testing.T) {
	in := append([]float64(nil), seasonalIncome...)
	f := newMeanForecaster(t)
	_, err := f.Forecast(context.Background(), Input{Income: in, Expenses: in})
	require.NoError(t, err)
	assert.Equal(t, seasonalIncome, in)
}

func TestForecastFeedsPredictionsBack(t *testing.T) {
	income := &recordingModel{}
	f, err := New(Models{Income: income, Expenses: constModel(0.5)})
	require.NoError(t, err)

	_, err = f.Forecast(context.Background(), Input{Income: seq(0, WindowSize), Expenses: seq(0, WindowSize)})
	require.NoError(t, err)

	require.Len(t, income.seen, Steps)
	for step := 1; step < Steps; step++ {
		prev, cur := income.seen[step-1], income.seen[step]
		require.Len(t, cur, WindowSize)
		assert.Equal(t, prev[1:], cur[:WindowSize-1], "step %d shifts window", step)
		assert.InDelta(t, 0.1*float64(step), cur[WindowSize-1], 1e-12, "step %d appends previous prediction", step)
	}
}

func TestForecastOvershootIsNotClamped(t *testing.T) {
	f, err := New(Models{Income: constModel(1.25), Expenses: constModel(-0.5)})
	require.NoError(t, err)

	out, err := f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: seasonalIncome})
	require.NoError(t, err)
	for i := 0; i < Steps; i++ {
		assert.InDelta(t, 125.0, out.Income[i], 1e-9)
		assert.InDelta(t, 90.0, out.Expenses[i], 1e-9)
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	m := &meanModel{}
	f, err := New(Models{Income: m, Expenses: m})
	require.NoError(t, err)

	out, err := f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: seasonalIncome[:11]})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	var he *HistoryError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, SignalExpenses, he.Signal)
	assert.Equal(t, int64(0), m.calls.Load(), "no inference before history is validated")
}

func TestForecastRejectsLongOrNonFiniteInput(t *testing.T) {
	f := newMeanForecaster(t)

	_, err := f.Forecast(context.Background(), Input{Income: seq(0, WindowSize+1), Expenses: seasonalIncome})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	bad := append([]float64(nil), seasonalIncome...)
	bad[3] = math.NaN()
	_, err = f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: bad})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestForecastInferenceFailure(t *testing.T) {
	failing := &failingModel{failAt: 4}
	f, err := New(Models{Income: constModel(0.5), Expenses: failing})
	require.NoError(t, err)

	out, err := f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: seasonalIncome})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrInferenceFailure))

	var ie *InferenceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, SignalExpenses, ie.Signal)
	assert.Equal(t, 4, ie.Step)
	assert.Equal(t, 5, failing.calls, "failure is not retried")
}

func TestForecastNonFinitePredictionIsInferenceFailure(t *testing.T) {
	f, err := New(Models{Income: constModel(math.Inf(1)), Expenses: constModel(0.5)})
	require.NoError(t, err)

	_, err = f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: seasonalIncome})
	assert.True(t, errors.Is(err, ErrInferenceFailure))
}

func TestForecastBudget(t *testing.T) {
	f, err := New(Models{Income: slowModel{d: time.Second}, Expenses: constModel(0.5)}, WithBudget(20*time.Millisecond))
	require.NoError(t, err)

	_, err = f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: seasonalIncome})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestForecastFixedScaling(t *testing.T) {
	f, err := New(Models{Income: constModel(0.5), Expenses: constModel(1)},
		WithFixedScaling(map[string]ScalingParameters{
			SignalIncome:   {Min: 0, Max: 1000},
			SignalExpenses: {Min: 0, Max: 400},
		}))
	require.NoError(t, err)
	assert.Equal(t, ScalingFixed, f.Mode())

	out, err := f.Forecast(context.Background(), Input{Income: seasonalIncome, Expenses: seasonalIncome})
	require.NoError(t, err)
	assert.InDelta(t, 500.0, out.Income[0], 1e-9)
	assert.InDelta(t, 400.0, out.Expenses[Steps-1], 1e-9)
	assert.Equal(t, ScalingParameters{Min: 0, Max: 1000}, out.Scaling[SignalIncome])
}

func TestNewValidation(t *testing.T) {
	_, err := New(Models{Income: constModel(0)})
	assert.True(t, errors.Is(err, ErrModelUnavailable))

	_, err = New(Models{Income: constModel(0), Expenses: constModel(0)},
		WithFixedScaling(map[string]ScalingParameters{SignalIncome: {Min: 0, Max: 1}}))
	assert.Error(t, err)

	_, err = New(Models{Income: constModel(0), Expenses: constModel(0)}, WithSteps(0))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRolloutStepAfterDone(t *testing.T) {
	r, err := seed(SignalIncome, constModel(0.5), seasonalIncome, ScalingParameters{Min: 100, Max: 120}, WindowSize, 2)
	require.NoError(t, err)
	assert.Equal(t, stateSeeded, r.state)

	require.NoError(t, r.run(context.Background()))
	assert.Equal(t, stateDone, r.state)
	assert.Len(t, r.result(), 2)
	assert.Error(t, r.step(context.Background()))
}

func TestLoadScalingArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scaling.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"income":{"min":10,"max":90},"expenses":{"min":5,"max":5}}`), 0o644))

	params, err := LoadScalingArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, ScalingParameters{Min: 10, Max: 90}, params[SignalIncome])
	assert.True(t, params[SignalExpenses].Degenerate())

	require.NoError(t, os.WriteFile(path, []byte(`{"income":{"min":10,"max":1}}`), 0o644))
	_, err = LoadScalingArtifact(path)
	assert.True(t, errors.Is(err, ErrModelUnavailable))

	_, err = LoadScalingArtifact(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestSignalNamesMatchLedgerSignals(t *testing.T) {
	income, expenses := models.SignalsFromTotals(nil)
	assert.Equal(t, SignalIncome, income.Name)
	assert.Equal(t, SignalExpenses, expenses.Name)
}
