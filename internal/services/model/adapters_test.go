package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/services/forecast"
	"FinCast/pkg/config"
	applogger "FinCast/pkg/logger"
)

func TestRemotePredictOne(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/models/income:predict", r.URL.Path)
		var req predictRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		assert.Equal(t, [][][]float64{{{0}, {0.5}, {1}}}, req.Instances)
		_ = json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float64{{0.42}}})
	}))
	defer srv.Close()

	r, err := NewRemote("income", srv.URL+"/", time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, "income", r.Name())
	assert.False(t, r.ConcurrentSafe())

	got, err := r.PredictOne(context.Background(), []float64{0, 0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.42, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewRemote("expenses", srv.URL, time.Second, true)
	require.NoError(t, err)
	_, err = r.PredictOne(context.Background(), []float64{0.1})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteRejectsMalformedPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float64{{1, 2}}})
	}))
	defer srv.Close()

	r, err := NewRemote("income", srv.URL, time.Second, true)
	require.NoError(t, err)
	_, err = r.PredictOne(context.Background(), []float64{0.1})
	assert.Error(t, err)

	_, err = NewRemote("income", "", time.Second, true)
	assert.Error(t, err)
}

// overlapModel fails the test if two calls overlap.
type overlapModel struct {
	active atomic.Int32
	seen   atomic.Bool
}

func (m *overlapModel) PredictOne(context.Context, []float64) (float64, error) {
	if m.active.Add(1) > 1 {
		m.seen.Store(true)
	}
	time.Sleep(time.Millisecond)
	m.active.Add(-1)
	return 0.5, nil
}

func TestSerializeSharesOneLock(t *testing.T) {
	var mu sync.Mutex
	inner := &overlapModel{}
	a, b := Serialize(inner, &mu), Serialize(inner, &mu)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = a.PredictOne(context.Background(), nil) }()
		go func() { defer wg.Done(); _, _ = b.PredictOne(context.Background(), nil) }()
	}
	wg.Wait()
	assert.False(t, inner.seen.Load(), "calls overlapped")
}

func TestSerializeSkipsConcurrencySafeModels(t *testing.T) {
	m, err := buildLSTM(twoLayerArtifact(12))
	require.NoError(t, err)
	var mu sync.Mutex
	assert.Same(t, m, Serialize(m, &mu))
}

type fakeMetrics struct {
	mu        sync.Mutex
	inference map[string][2]int // ok, failed
}

func (f *fakeMetrics) RecordForecast(string, string) {}
func (f *fakeMetrics) RecordError(string)            {}
func (f *fakeMetrics) RecordLatency(string, float64) {}
func (f *fakeMetrics) RecordLedgerEntry(string)      {}

func (f *fakeMetrics) RecordInference(model string, _ float64, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inference == nil {
		f.inference = map[string][2]int{}
	}
	c := f.inference[model]
	if ok {
		c[0]++
	} else {
		c[1]++
	}
	f.inference[model] = c
}

type flakyModel struct{ n int }

func (m *flakyModel) Name() string { return "flaky" }

func (m *flakyModel) PredictOne(context.Context, []float64) (float64, error) {
	m.n++
	if m.n%2 == 0 {
		return 0, errors.New("fault")
	}
	return 1, nil
}

func TestInstrumentRecordsOutcome(t *testing.T) {
	fm := &fakeMetrics{}
	p := Instrument(&flakyModel{}, fm)
	for i := 0; i < 4; i++ {
		_, _ = p.PredictOne(context.Background(), nil)
	}
	assert.Equal(t, [2]int{2, 2}, fm.inference["flaky"])

	inner := &flakyModel{}
	assert.Same(t, inner, Instrument(inner, nil))
}

func TestLoadModelsAndForecaster(t *testing.T) {
	path := writeArtifact(t, twoLayerArtifact(12))
	cfg := config.Default()
	cfg.Forecast.Models.Income = config.ModelConfig{Kind: "lstm", Path: path}
	cfg.Forecast.Models.Expenses = config.ModelConfig{Kind: "lstm", Path: path, Name: "expenses-v2"}

	models, err := LoadModels(cfg, &fakeMetrics{}, applogger.Nop())
	require.NoError(t, err)

	f, err := NewForecaster(cfg, models, nil, applogger.Nop())
	require.NoError(t, err)
	assert.Equal(t, forecast.ScalingRefit, f.Mode())

	in := []float64{100, 110, 120, 100, 110, 120, 100, 110, 120, 100, 110, 120}
	out, err := f.Forecast(context.Background(), forecast.Input{Income: in, Expenses: in})
	require.NoError(t, err)
	assert.Len(t, out.Income, 12)
	assert.Equal(t, out.Income, out.Expenses)
}

func TestLoadModelsWindowMismatch(t *testing.T) {
	path := writeArtifact(t, twoLayerArtifact(6))
	cfg := config.Default()
	cfg.Forecast.Models.Income = config.ModelConfig{Kind: "lstm", Path: path}
	cfg.Forecast.Models.Expenses = config.ModelConfig{Kind: "lstm", Path: path}

	_, err := LoadModels(cfg, nil, applogger.Nop())
	assert.True(t, errors.Is(err, forecast.ErrModelUnavailable))
}

func TestFixedScalingFromArtifact(t *testing.T) {
	dir := t.TempDir()
	scalePath := filepath.Join(dir, "scaling.json")
	require.NoError(t, os.WriteFile(scalePath, []byte(`{"income":{"min":0,"max":500},"expenses":{"min":0,"max":300}}`), 0o644))

	cfg := config.Default()
	cfg.Forecast.Scaling.Mode = "fixed"
	cfg.Forecast.Scaling.Artifact = scalePath

	training, err := LoadTrainingScale(cfg)
	require.NoError(t, err)
	assert.Equal(t, forecast.ScalingParameters{Min: 0, Max: 500}, training[forecast.SignalIncome])

	m, err := buildLSTM(twoLayerArtifact(12))
	require.NoError(t, err)
	f, err := NewForecaster(cfg, forecast.Models{Income: m, Expenses: m}, training, applogger.Nop())
	require.NoError(t, err)
	assert.Equal(t, forecast.ScalingFixed, f.Mode())

	cfg.Forecast.Scaling.Artifact = ""
	none, err := LoadTrainingScale(cfg)
	require.NoError(t, err)
	assert.Nil(t, none)
}
