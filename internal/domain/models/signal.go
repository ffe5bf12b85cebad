package models

import (
	"fmt"
	"math"
	"time"
)

const (
	SignalIncome   = "income"
	SignalExpenses = "expenses"
)

// Observation is one period's total of a signal. Period is the first day of the month in UTC.
type Observation struct {
	Period time.Time
	Value  float64
}

// Signal is an ordered history of one financial series, oldest first.
type Signal struct {
	Name         string
	Observations []Observation
}

// Validate checks that periods strictly increase and every value is finite.
func (s Signal) Validate() error {
	for i, o := range s.Observations {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return fmt.Errorf("%s: value at %s is not finite", s.Name, o.Period.Format("2006-01"))
		}
		if i > 0 && !o.Period.After(s.Observations[i-1].Period) {
			return fmt.Errorf("%s: period %s does not follow %s", s.Name,
				o.Period.Format("2006-01"), s.Observations[i-1].Period.Format("2006-01"))
		}
	}
	return nil
}

// Values returns the observation values in order.
func (s Signal) Values() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Value
	}
	return out
}

// Last returns the most recent period, or the zero time for an empty signal.
func (s Signal) Last() time.Time {
	if len(s.Observations) == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].Period
}
