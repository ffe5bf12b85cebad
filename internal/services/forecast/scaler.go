package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScalingParameters hold a fitted min-max transform for one signal.
// Max >= Min always holds for parameters produced by Fit.
type ScalingParameters struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Fit derives min-max parameters from the given values.
func Fit(values []float64) (ScalingParameters, error) {
	if len(values) == 0 {
		return ScalingParameters{}, invalidInputf("cannot fit scaler on empty series")
	}
	if err := checkFinite(values); err != nil {
		return ScalingParameters{}, err
	}
	return ScalingParameters{Min: floats.Min(values), Max: floats.Max(values)}, nil
}

// Validate rejects parameters that would make the transform meaningless.
func (p ScalingParameters) Validate() error {
	if math.IsNaN(p.Min) || math.IsNaN(p.Max) || math.IsInf(p.Min, 0) || math.IsInf(p.Max, 0) {
		return invalidInputf("scaling parameters must be finite, got min=%v max=%v", p.Min, p.Max)
	}
	if p.Max < p.Min {
		return invalidInputf("scaling max %v is below min %v", p.Max, p.Min)
	}
	return nil
}

// Degenerate reports a constant series (max == min).
func (p ScalingParameters) Degenerate() bool { return p.Max == p.Min }

// Transform maps v into normalized space. Values outside [min, max] are not clamped.
// A degenerate fit maps every input to 0.
func (p ScalingParameters) Transform(v float64) float64 {
	if p.Degenerate() {
		return 0
	}
	return (v - p.Min) / (p.Max - p.Min)
}

// InverseTransform maps a normalized value back into real units by linear
// extrapolation. A degenerate fit maps every input to min.
func (p ScalingParameters) InverseTransform(n float64) float64 {
	if p.Degenerate() {
		return p.Min
	}
	return n*(p.Max-p.Min) + p.Min
}

// TransformAll applies Transform element-wise into a new slice.
func (p ScalingParameters) TransformAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = p.Transform(v)
	}
	return out
}

// InverseTransformAll applies InverseTransform element-wise into a new slice, keeping order.
func (p ScalingParameters) InverseTransformAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = p.InverseTransform(v)
	}
	return out
}

func (p ScalingParameters) String() string {
	return fmt.Sprintf("[%g, %g]", p.Min, p.Max)
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidInputf("value at index %d is not finite", i)
		}
	}
	return nil
}
