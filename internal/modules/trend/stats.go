package trend

import (
	"fmt"

	"github.com/aristath/screener/internal/domain"
)

// Direction classifies the fitted slope of a series.
type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Flat    Direction = "flat"
)

// StatName names a statistic a screening rule can reference.
type StatName string

// Numeric statistics
const (
	StatMean         StatName = "mean"
	StatStdDev       StatName = "stddev"
	StatMin          StatName = "min"
	StatMax          StatName = "max"
	StatFirst        StatName = "first"
	StatLast         StatName = "last"
	StatSlope        StatName = "slope"
	StatCV           StatName = "cv"
	StatTrailingMean StatName = "trailing_mean"
	StatCAGR         StatName = "cagr"
	StatCount        StatName = "count"
)

// Boolean statistics
const (
	StatRising       StatName = "rising"
	StatFalling      StatName = "falling"
	StatFlat         StatName = "flat"
	StatNonDeclining StatName = "non_declining"
)

var numericStats = map[StatName]bool{
	StatMean: true, StatStdDev: true, StatMin: true, StatMax: true,
	StatFirst: true, StatLast: true, StatSlope: true, StatCV: true,
	StatTrailingMean: true, StatCAGR: true, StatCount: true,
}

var booleanStats = map[StatName]bool{
	StatRising: true, StatFalling: true, StatFlat: true, StatNonDeclining: true,
}

// IsNumeric reports whether name is a numeric statistic.
func IsNumeric(name StatName) bool { return numericStats[name] }

// IsBoolean reports whether name is a boolean statistic.
func IsBoolean(name StatName) bool { return booleanStats[name] }

// UndefinedStatError is returned when a statistic exists but has no value for
// this series, e.g. cv when the mean is zero.
type UndefinedStatError struct {
	Metric domain.MetricName
	Stat   StatName
}

func (e *UndefinedStatError) Error() string {
	return fmt.Sprintf("%s: statistic %s is undefined for this series", e.Metric, e.Stat)
}

// Stats summarises one metric series.
type Stats struct {
	Metric          domain.MetricName  `json:"metric"`
	Count           int                `json:"count"`
	Mean            float64            `json:"mean"`
	StdDev          float64            `json:"stddev"`
	Min             float64            `json:"min"`
	MinKey          domain.PeriodKey   `json:"min_period"`
	Max             float64            `json:"max"`
	MaxKey          domain.PeriodKey   `json:"max_period"`
	First           float64            `json:"first"`
	Last            float64            `json:"last"`
	Slope           float64            `json:"slope"`
	NormalizedSlope float64            `json:"normalized_slope"`
	Direction       Direction          `json:"direction"`
	CV              *float64           `json:"cv,omitempty"`
	TrailingMean    *float64           `json:"trailing_mean,omitempty"`
	CAGR            *float64           `json:"cagr,omitempty"`
	Gaps            []domain.PeriodKey `json:"gaps,omitempty"`
}

// VolatilityBelow reports whether the population standard deviation is below x.
func (s Stats) VolatilityBelow(x float64) bool {
	return s.StdDev < x
}

// CVBelow reports whether the coefficient of variation is defined and below x.
func (s Stats) CVBelow(x float64) bool {
	return s.CV != nil && *s.CV < x
}

// NonDeclining reports whether the series is rising or flat within tolerance.
func (s Stats) NonDeclining() bool {
	return s.Direction != Falling
}

// Number returns a numeric statistic by name.
func (s Stats) Number(name StatName) (float64, error) {
	undefined := func(v *float64) (float64, error) {
		if v == nil {
			return 0, &UndefinedStatError{Metric: s.Metric, Stat: name}
		}
		return *v, nil
	}

	switch name {
	case StatMean:
		return s.Mean, nil
	case StatStdDev:
		return s.StdDev, nil
	case StatMin:
		return s.Min, nil
	case StatMax:
		return s.Max, nil
	case StatFirst:
		return s.First, nil
	case StatLast:
		return s.Last, nil
	case StatSlope:
		return s.Slope, nil
	case StatCount:
		return float64(s.Count), nil
	case StatCV:
		return undefined(s.CV)
	case StatTrailingMean:
		return undefined(s.TrailingMean)
	case StatCAGR:
		return undefined(s.CAGR)
	}
	return 0, fmt.Errorf("unknown numeric statistic %q", name)
}

// Flag returns a boolean statistic by name.
func (s Stats) Flag(name StatName) (bool, error) {
	switch name {
	case StatRising:
		return s.Direction == Rising, nil
	case StatFalling:
		return s.Direction == Falling, nil
	case StatFlat:
		return s.Direction == Flat, nil
	case StatNonDeclining:
		return s.NonDeclining(), nil
	}
	return false, fmt.Errorf("unknown boolean statistic %q", name)
}
