package features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
)

// Summarize computes horizon statistics of a forecast. Both slices must have
// the same length; the shorter length wins otherwise.
func Summarize(income, expenses []float64) models.ForecastSummary {
	n := min(len(income), len(expenses))
	income, expenses = income[:n], expenses[:n]
	if n == 0 {
		return models.ForecastSummary{CumulativeNet: []float64{}}
	}

	net := make([]float64, n)
	floats.SubTo(net, income, expenses)

	deficits := 0
	for _, v := range net {
		if v < 0 {
			deficits++
		}
	}
	cumulative := make([]float64, n)
	floats.CumSum(cumulative, net)

	s := models.ForecastSummary{
		TotalIncome:    floats.Sum(income),
		TotalExpenses:  floats.Sum(expenses),
		CumulativeNet:  cumulative,
		DeficitPeriods: deficits,
	}
	s.Net = s.TotalIncome - s.TotalExpenses
	s.MeanIncome, s.StdIncome = meanStd(income)
	s.MeanExpenses, s.StdExpenses = meanStd(expenses)
	return s
}

// meanStd returns the mean and the population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	mean := stat.Mean(xs, nil)
	return mean, stat.PopStdDev(xs, nil)
}
