package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/forecast"
)

// lstmArtifact is the JSON export of a trained Keras-style network:
// stacked LSTM layers followed by dense layers ending in a single unit.
// Gate order inside kernels is input, forget, cell, output.
type lstmArtifact struct {
	Name       string           `json:"name"`
	WindowSize int              `json:"window_size"`
	Layers     []lstmLayerJSON  `json:"layers"`
	Dense      []denseLayerJSON `json:"dense"`
}

type lstmLayerJSON struct {
	Units               int         `json:"units"`
	Kernel              [][]float64 `json:"kernel"`           // input_dim x 4*units
	RecurrentKernel     [][]float64 `json:"recurrent_kernel"` // units x 4*units
	Bias                []float64   `json:"bias"`             // 4*units
	Activation          string      `json:"activation"`
	RecurrentActivation string      `json:"recurrent_activation"`
}

type denseLayerJSON struct {
	Kernel     [][]float64 `json:"kernel"` // input_dim x units
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

type lstmLayer struct {
	units     int
	kernel    *mat.Dense
	recurrent *mat.Dense
	bias      *mat.VecDense
	act       func(float64) float64
	recAct    func(float64) float64
}

type denseLayer struct {
	kernel *mat.Dense
	bias   *mat.VecDense
	act    func(float64) float64
}

// LSTM runs inference of a trained LSTM network in pure Go. Weights are
// read-only after loading and every call keeps its state local, so concurrent
// PredictOne calls are safe.
type LSTM struct {
	name       string
	windowSize int
	layers     []lstmLayer
	dense      []denseLayer
}

// LoadLSTM reads a network artifact from path.
func LoadLSTM(path string) (*LSTM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", forecast.ErrModelUnavailable, path, err)
	}
	defer f.Close()

	var art lstmArtifact
	if err := json.NewDecoder(f).Decode(&art); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", forecast.ErrModelUnavailable, path, err)
	}
	m, err := buildLSTM(art)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", forecast.ErrModelUnavailable, path, err)
	}
	return m, nil
}

func buildLSTM(art lstmArtifact) (*LSTM, error) {
	if art.WindowSize <= 0 {
		return nil, fmt.Errorf("window_size must be positive")
	}
	if len(art.Layers) == 0 {
		return nil, fmt.Errorf("at least one lstm layer is required")
	}

	m := &LSTM{name: art.Name, windowSize: art.WindowSize}
	inputDim := 1
	for i, l := range art.Layers {
		layer, err := buildLSTMLayer(l, inputDim)
		if err != nil {
			return nil, fmt.Errorf("lstm layer %d: %w", i, err)
		}
		m.layers = append(m.layers, layer)
		inputDim = l.Units
	}
	for i, d := range art.Dense {
		layer, out, err := buildDenseLayer(d, inputDim)
		if err != nil {
			return nil, fmt.Errorf("dense layer %d: %w", i, err)
		}
		m.dense = append(m.dense, layer)
		inputDim = out
	}
	if inputDim != 1 {
		return nil, fmt.Errorf("network must end in a single output, got %d", inputDim)
	}
	return m, nil
}

func buildLSTMLayer(l lstmLayerJSON, inputDim int) (lstmLayer, error) {
	if l.Units <= 0 {
		return lstmLayer{}, fmt.Errorf("units must be positive")
	}
	gates := 4 * l.Units
	kernel, err := denseFromRows(l.Kernel, inputDim, gates)
	if err != nil {
		return lstmLayer{}, fmt.Errorf("kernel: %w", err)
	}
	recurrent, err := denseFromRows(l.RecurrentKernel, l.Units, gates)
	if err != nil {
		return lstmLayer{}, fmt.Errorf("recurrent_kernel: %w", err)
	}
	if len(l.Bias) != gates {
		return lstmLayer{}, fmt.Errorf("bias: want %d values, got %d", gates, len(l.Bias))
	}
	act, err := activation(l.Activation, "tanh")
	if err != nil {
		return lstmLayer{}, err
	}
	recAct, err := activation(l.RecurrentActivation, "sigmoid")
	if err != nil {
		return lstmLayer{}, err
	}
	return lstmLayer{
		units:     l.Units,
		kernel:    kernel,
		recurrent: recurrent,
		bias:      mat.NewVecDense(gates, append([]float64(nil), l.Bias...)),
		act:       act,
		recAct:    recAct,
	}, nil
}

func buildDenseLayer(d denseLayerJSON, inputDim int) (denseLayer, int, error) {
	if len(d.Kernel) == 0 || len(d.Kernel[0]) == 0 {
		return denseLayer{}, 0, fmt.Errorf("kernel is empty")
	}
	out := len(d.Kernel[0])
	kernel, err := denseFromRows(d.Kernel, inputDim, out)
	if err != nil {
		return denseLayer{}, 0, fmt.Errorf("kernel: %w", err)
	}
	if len(d.Bias) != out {
		return denseLayer{}, 0, fmt.Errorf("bias: want %d values, got %d", out, len(d.Bias))
	}
	act, err := activation(d.Activation, "linear")
	if err != nil {
		return denseLayer{}, 0, err
	}
	return denseLayer{
		kernel: kernel,
		bias:   mat.NewVecDense(out, append([]float64(nil), d.Bias...)),
		act:    act,
	}, out, nil
}

func denseFromRows(rows [][]float64, r, c int) (*mat.Dense, error) {
	if len(rows) != r {
		return nil, fmt.Errorf("want %d rows, got %d", r, len(rows))
	}
	data := make([]float64, 0, r*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d: want %d columns, got %d", i, c, len(row))
		}
		data = append(data, row...)
	}
	return mat.NewDense(r, c, data), nil
}

func activation(name, def string) (func(float64) float64, error) {
	if name == "" {
		name = def
	}
	switch name {
	case "linear":
		return func(x float64) float64 { return x }, nil
	case "tanh":
		return math.Tanh, nil
	case "sigmoid":
		return func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }, nil
	case "hard_sigmoid":
		return func(x float64) float64 { return math.Max(0, math.Min(1, 0.2*x+0.5)) }, nil
	case "relu":
		return func(x float64) float64 { return math.Max(0, x) }, nil
	default:
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
}

// Name is the artifact name.
func (m *LSTM) Name() string { return m.name }

// WindowSize is the sequence length the network was trained on.
func (m *LSTM) WindowSize() int { return m.windowSize }

// ConcurrentSafe reports true: inference has no shared mutable state.
func (m *LSTM) ConcurrentSafe() bool { return true }

// PredictOne runs the window through the network, equivalent to a (1, n, 1) input tensor.
func (m *LSTM) PredictOne(_ context.Context, window []float64) (float64, error) {
	if len(window) != m.windowSize {
		return 0, fmt.Errorf("window length %d, model expects %d", len(window), m.windowSize)
	}

	seq := make([]*mat.VecDense, len(window))
	for t, v := range window {
		seq[t] = mat.NewVecDense(1, []float64{v})
	}
	for _, l := range m.layers {
		seq = l.forward(seq)
	}

	x := seq[len(seq)-1]
	for _, d := range m.dense {
		x = d.forward(x)
	}
	return x.AtVec(0), nil
}

func (l lstmLayer) forward(seq []*mat.VecDense) []*mat.VecDense {
	u := l.units
	h := mat.NewVecDense(u, nil)
	c := make([]float64, u)
	z := mat.NewVecDense(4*u, nil)
	rz := mat.NewVecDense(4*u, nil)

	out := make([]*mat.VecDense, len(seq))
	for t, x := range seq {
		z.MulVec(l.kernel.T(), x)
		rz.MulVec(l.recurrent.T(), h)
		z.AddVec(z, rz)
		z.AddVec(z, l.bias)

		next := mat.NewVecDense(u, nil)
		for j := 0; j < u; j++ {
			in := l.recAct(z.AtVec(j))
			forget := l.recAct(z.AtVec(u + j))
			cand := l.act(z.AtVec(2*u + j))
			o := l.recAct(z.AtVec(3*u + j))
			c[j] = forget*c[j] + in*cand
			next.SetVec(j, o*l.act(c[j]))
		}
		h = next
		out[t] = h
	}
	return out
}

func (d denseLayer) forward(x *mat.VecDense) *mat.VecDense {
	_, n := d.kernel.Dims()
	y := mat.NewVecDense(n, nil)
	y.MulVec(d.kernel.T(), x)
	y.AddVec(y, d.bias)
	for i := 0; i < n; i++ {
		y.SetVec(i, d.act(y.AtVec(i)))
	}
	return y
}

var (
	_ domsvc.SequencePredictor = (*LSTM)(nil)
	_ domsvc.Named             = (*LSTM)(nil)
	_ domsvc.ConcurrencySafe   = (*LSTM)(nil)
)
