package timeseries

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/pkg/formulas"
)

// DivisionByZeroPolicy decides what happens to a period whose metric has a
// zero denominator.
type DivisionByZeroPolicy string

const (
	// PolicyFail propagates the DivisionByZeroError.
	PolicyFail DivisionByZeroPolicy = "fail"
	// PolicySkip leaves the period out of the series.
	PolicySkip DivisionByZeroPolicy = "skip"
	// PolicyZero stores 0 for the period.
	PolicyZero DivisionByZeroPolicy = "zero"
)

// ParsePolicy validates a policy name. Empty means PolicyFail.
func ParsePolicy(s string) (DivisionByZeroPolicy, error) {
	switch DivisionByZeroPolicy(s) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicySkip, PolicyZero:
		return DivisionByZeroPolicy(s), nil
	}
	return "", fmt.Errorf("unknown division_by_zero policy %q", s)
}

// Growth metric names. Each is the period-over-period change of a base metric.
const (
	RevenueGrowth domain.MetricName = "revenue_growth"
	FFOGrowth     domain.MetricName = "ffo_growth"
	ShareDilution domain.MetricName = "share_dilution"
)

var growthBases = map[domain.MetricName]domain.MetricName{
	RevenueGrowth: metrics.Revenue,
	FFOGrowth:     metrics.FFO,
	ShareDilution: metrics.SharesOutstanding,
}

// GrowthBase returns the base metric of a growth metric.
func GrowthBase(metric domain.MetricName) (domain.MetricName, bool) {
	base, ok := growthBases[metric]
	return base, ok
}

// GrowthMetrics lists the growth metric names in sorted order.
func GrowthMetrics() []domain.MetricName {
	names := make([]domain.MetricName, 0, len(growthBases))
	for name := range growthBases {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Aggregator applies the metric calculator across an entity's periods.
type Aggregator struct {
	calc   *metrics.Calculator
	policy DivisionByZeroPolicy
}

// NewAggregator creates an aggregator. An empty policy means PolicyFail.
func NewAggregator(calc *metrics.Calculator, policy DivisionByZeroPolicy) *Aggregator {
	if policy == "" {
		policy = PolicyFail
	}
	return &Aggregator{calc: calc, policy: policy}
}

// Policy returns the division-by-zero policy in effect.
func (a *Aggregator) Policy() DivisionByZeroPolicy {
	return a.policy
}

// Knows reports whether metric is a calculator metric or a growth metric.
func (a *Aggregator) Knows(metric domain.MetricName) bool {
	if _, ok := growthBases[metric]; ok {
		return true
	}
	return a.calc.Has(metric)
}

// Series builds the series for any known metric, dispatching growth metrics
// to BuildGrowth.
func (a *Aggregator) Series(periods []domain.FinancialPeriod, metric domain.MetricName) (Series, error) {
	if _, ok := growthBases[metric]; ok {
		return a.BuildGrowth(periods, metric)
	}
	return a.Build(periods, metric)
}

// Build computes metric for every period. Periods must already be in strictly
// increasing order of a single period type.
func (a *Aggregator) Build(periods []domain.FinancialPeriod, metric domain.MetricName) (Series, error) {
	keys := make([]domain.PeriodKey, len(periods))
	for i, p := range periods {
		keys[i] = p.Key()
	}
	periodType, err := domain.CheckPeriodOrder(keys)
	if err != nil {
		return Series{}, err
	}
	if !a.calc.Has(metric) {
		return Series{}, &domain.UnknownMetricError{Metric: metric}
	}

	points := make([]Point, 0, len(periods))
	for _, p := range periods {
		value, err := a.calc.Calculate(p, metric)
		if err != nil {
			keep, v, err := a.applyPolicy(err)
			if err != nil {
				return Series{}, err
			}
			if !keep {
				continue
			}
			value = v
		}
		points = append(points, Point{Key: p.Key(), Value: value})
	}

	return Series{metric: metric, periodType: periodType, points: points}, nil
}

// BuildGrowth computes (current - prior) / |prior| of the growth metric's
// base between consecutive periods. A point is produced only when the prior
// period immediately precedes the current one.
func (a *Aggregator) BuildGrowth(periods []domain.FinancialPeriod, metric domain.MetricName) (Series, error) {
	base, ok := growthBases[metric]
	if !ok {
		return Series{}, &domain.UnknownMetricError{Metric: metric}
	}

	baseSeries, err := a.Build(periods, base)
	if err != nil {
		return Series{}, err
	}

	var points []Point
	for i := 1; i < len(baseSeries.points); i++ {
		prev, cur := baseSeries.points[i-1], baseSeries.points[i]
		if cur.Key.Index() != prev.Key.Index()+1 {
			continue
		}
		rate, ok := formulas.GrowthRate(cur.Value, prev.Value)
		if !ok {
			keep, v, err := a.applyPolicy(&domain.DivisionByZeroError{
				Metric:      metric,
				Denominator: fmt.Sprintf("%s %s", base, prev.Key),
				Period:      cur.Key,
			})
			if err != nil {
				return Series{}, err
			}
			if !keep {
				continue
			}
			rate = v
		}
		points = append(points, Point{Key: cur.Key, Value: rate})
	}

	return Series{metric: metric, periodType: baseSeries.periodType, points: points}, nil
}

// applyPolicy maps a calculation error to keep/value/err per the policy.
// Only division-by-zero errors are subject to the policy.
func (a *Aggregator) applyPolicy(err error) (bool, float64, error) {
	var divErr *domain.DivisionByZeroError
	if !errors.As(err, &divErr) {
		return false, 0, err
	}
	switch a.policy {
	case PolicySkip:
		return false, 0, nil
	case PolicyZero:
		return true, 0, nil
	default:
		return false, 0, err
	}
}
