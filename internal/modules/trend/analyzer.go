// Package trend computes summary statistics and direction for metric series.
package trend

import (
	"math"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/timeseries"
	"github.com/aristath/screener/pkg/formulas"
)

const (
	// DefaultTolerance is the relative slope band treated as flat.
	DefaultTolerance = 0.01
	// DefaultTrailingWindow is the number of most recent points averaged.
	DefaultTrailingWindow = 3
	// MinPoints is the shortest series that can be analysed.
	MinPoints = 2
)

// Analyzer turns a series into Stats.
type Analyzer struct {
	tolerance float64
	window    int
}

// NewAnalyzer creates an analyzer. A negative tolerance selects
// DefaultTolerance; zero classifies every non-zero slope as a direction.
// A non-positive window selects DefaultTrailingWindow.
func NewAnalyzer(tolerance float64, trailingWindow int) *Analyzer {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	if trailingWindow <= 0 {
		trailingWindow = DefaultTrailingWindow
	}
	return &Analyzer{tolerance: tolerance, window: trailingWindow}
}

// Tolerance returns the flat band in effect.
func (a *Analyzer) Tolerance() float64 { return a.tolerance }

// Analyze computes statistics for a series of at least MinPoints points.
// The slope is fitted over period index, so gaps widen the x-axis rather
// than being interpolated.
func (a *Analyzer) Analyze(series timeseries.Series) (Stats, error) {
	if series.Len() < MinPoints {
		return Stats{}, &domain.InsufficientDataError{
			Metric:   series.Metric(),
			Points:   series.Len(),
			Required: MinPoints,
		}
	}

	points := series.Points()
	values := series.Values()
	indices := series.Indices()

	mean, stdDev := formulas.PopMeanStdDev(values)
	minVal, minIdx, maxVal, maxIdx := formulas.MinMax(values)
	slope := formulas.LinearSlope(indices, values)

	normalized := slope
	if mean != 0 {
		normalized = slope / math.Abs(mean)
	}

	stats := Stats{
		Metric:          series.Metric(),
		Count:           len(values),
		Mean:            mean,
		StdDev:          stdDev,
		Min:             minVal,
		MinKey:          points[minIdx].Key,
		Max:             maxVal,
		MaxKey:          points[maxIdx].Key,
		First:           values[0],
		Last:            values[len(values)-1],
		Slope:           slope,
		NormalizedSlope: normalized,
		Direction:       a.direction(normalized),
		CV:              formulas.CoefficientOfVariation(mean, stdDev),
		TrailingMean:    formulas.TrailingMean(values, min(a.window, len(values))),
		CAGR:            formulas.CAGR(values[0], values[len(values)-1], years(series)),
		Gaps:            series.Gaps(),
	}
	return stats, nil
}

func (a *Analyzer) direction(normalized float64) Direction {
	switch {
	case math.Abs(normalized) <= a.tolerance:
		return Flat
	case normalized > 0:
		return Rising
	default:
		return Falling
	}
}

// years is the time span between the first and last point.
func years(series timeseries.Series) float64 {
	indices := series.Indices()
	span := indices[len(indices)-1] - indices[0]
	if series.PeriodType() == domain.PeriodQuarterly {
		return span / 4
	}
	return span
}
