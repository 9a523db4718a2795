// Package formulas holds the numeric building blocks shared by the analysis modules.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopMeanStdDev returns the mean and the population (not sample) standard deviation.
func PopMeanStdDev(data []float64) (mean, stdDev float64) {
	if len(data) == 0 {
		return 0, 0
	}
	if len(data) == 1 {
		return data[0], 0
	}
	return stat.PopMeanStdDev(data, nil)
}

// MinMax returns the smallest and largest value and their positions.
// Callers must pass a non-empty slice.
func MinMax(data []float64) (minVal float64, minIdx int, maxVal float64, maxIdx int) {
	minIdx = floats.MinIdx(data)
	maxIdx = floats.MaxIdx(data)
	return data[minIdx], minIdx, data[maxIdx], maxIdx
}

// LinearSlope fits y = alpha + beta*x by least squares and returns beta.
// Returns 0 when fewer than two points or when every x is identical.
func LinearSlope(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	if floats.Min(x) == floats.Max(x) {
		return 0
	}
	_, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(beta) {
		return 0
	}
	return beta
}

// CoefficientOfVariation is stdDev / |mean|, or nil when the mean is zero.
func CoefficientOfVariation(mean, stdDev float64) *float64 {
	if mean == 0 {
		return nil
	}
	cv := stdDev / math.Abs(mean)
	return &cv
}

// TrailingMean returns the simple moving average of the last `window` values,
// or nil if the window is not positive or longer than the data.
func TrailingMean(data []float64, window int) *float64 {
	if window <= 0 || window > len(data) {
		return nil
	}
	if window == 1 {
		last := data[len(data)-1]
		return &last
	}
	sma := talib.Sma(data, window)
	last := sma[len(sma)-1]
	return &last
}
