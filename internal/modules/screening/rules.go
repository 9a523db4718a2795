// Package screening evaluates sector rulesets against metric statistics and
// produces screening verdicts.
package screening

import (
	"fmt"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/trend"
)

// Comparison is the predicate a rule applies to its statistic.
type Comparison string

const (
	// CompareMin passes when value >= threshold.
	CompareMin Comparison = "min"
	// CompareMax passes when value <= threshold.
	CompareMax Comparison = "max"
	// CompareRange passes when low <= value <= high.
	CompareRange Comparison = "range"
	// CompareTrue passes when a boolean statistic is true.
	CompareTrue Comparison = "true"
)

// Dimension groups related rules.
type Dimension string

const (
	DimensionOperatingStrength Dimension = "operating_strength"
	DimensionGrowth            Dimension = "growth"
	DimensionProfitability     Dimension = "profitability"
	DimensionBalanceSheet      Dimension = "balance_sheet"
	DimensionInnovation        Dimension = "innovation"
)

// Status is the result of a rule, a dimension or a whole verdict.
type Status string

const (
	StatusPass          Status = "pass"
	StatusFail          Status = "fail"
	StatusIndeterminate Status = "indeterminate"
)

// Rule is one named threshold on one statistic of one metric.
type Rule struct {
	Name       string            `yaml:"name" json:"name" validate:"required"`
	Metric     domain.MetricName `yaml:"metric" json:"metric" validate:"required"`
	Stat       trend.StatName    `yaml:"stat" json:"stat" validate:"required"`
	Comparison Comparison        `yaml:"comparison" json:"comparison" validate:"required,oneof=min max range true"`
	Threshold  *float64          `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Low        *float64          `yaml:"low,omitempty" json:"low,omitempty"`
	High       *float64          `yaml:"high,omitempty" json:"high,omitempty"`
}

// check validates the fields that depend on the comparison.
func (r Rule) check() error {
	switch r.Comparison {
	case CompareMin, CompareMax:
		if r.Threshold == nil {
			return fmt.Errorf("rule %s: %s comparison needs a threshold", r.Name, r.Comparison)
		}
		if !trend.IsNumeric(r.Stat) {
			return fmt.Errorf("rule %s: %s comparison needs a numeric statistic, got %q", r.Name, r.Comparison, r.Stat)
		}
	case CompareRange:
		if r.Low == nil || r.High == nil {
			return fmt.Errorf("rule %s: range comparison needs low and high", r.Name)
		}
		if *r.Low > *r.High {
			return fmt.Errorf("rule %s: low %v exceeds high %v", r.Name, *r.Low, *r.High)
		}
		if !trend.IsNumeric(r.Stat) {
			return fmt.Errorf("rule %s: range comparison needs a numeric statistic, got %q", r.Name, r.Stat)
		}
	case CompareTrue:
		if !trend.IsBoolean(r.Stat) {
			return fmt.Errorf("rule %s: true comparison needs a boolean statistic, got %q", r.Name, r.Stat)
		}
	default:
		return fmt.Errorf("rule %s: unknown comparison %q", r.Name, r.Comparison)
	}
	return nil
}

// RuleResult records how one rule evaluated.
type RuleResult struct {
	Name       string            `json:"name"`
	Metric     domain.MetricName `json:"metric"`
	Stat       trend.StatName    `json:"stat"`
	Comparison Comparison        `json:"comparison"`
	Threshold  *float64          `json:"threshold,omitempty"`
	Low        *float64          `json:"low,omitempty"`
	High       *float64          `json:"high,omitempty"`
	Value      *float64          `json:"value,omitempty"`
	Flag       *bool             `json:"flag,omitempty"`
	Status     Status            `json:"status"`
	Error      string            `json:"error,omitempty"`
}

// Passed reports whether the rule passed.
func (r RuleResult) Passed() bool {
	return r.Status == StatusPass
}

// evaluate applies the rule to stats. A nil stats means the metric could not
// be resolved; cause explains why, if known.
func (r Rule) evaluate(dim Dimension, stats *trend.Stats, cause error) (RuleResult, error) {
	result := RuleResult{
		Name:       r.Name,
		Metric:     r.Metric,
		Stat:       r.Stat,
		Comparison: r.Comparison,
		Threshold:  r.Threshold,
		Low:        r.Low,
		High:       r.High,
	}

	unresolved := func(cause error) (RuleResult, error) {
		err := &domain.UnresolvedMetricError{Metric: r.Metric, Rule: r.Name, Dimension: string(dim), Cause: cause}
		result.Status = StatusIndeterminate
		result.Error = err.Error()
		return result, err
	}

	if stats == nil {
		return unresolved(cause)
	}

	if r.Comparison == CompareTrue {
		flag, err := stats.Flag(r.Stat)
		if err != nil {
			return unresolved(err)
		}
		result.Flag = &flag
		result.Status = statusOf(flag)
		return result, nil
	}

	value, err := stats.Number(r.Stat)
	if err != nil {
		return unresolved(err)
	}
	result.Value = &value

	var passed bool
	switch r.Comparison {
	case CompareMin:
		passed = value >= *r.Threshold
	case CompareMax:
		passed = value <= *r.Threshold
	case CompareRange:
		passed = value >= *r.Low && value <= *r.High
	}
	result.Status = statusOf(passed)
	return result, nil
}

func statusOf(passed bool) Status {
	if passed {
		return StatusPass
	}
	return StatusFail
}
