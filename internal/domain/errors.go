package domain

import "fmt"

// MetricName identifies a derived metric, e.g. "gross_margin".
type MetricName string

// MissingFieldError is returned when a formula needs a line item the period
// does not report.
type MissingFieldError struct {
	Metric MetricName
	Field  LineItem
	Period PeriodKey
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: period %s is missing line item %s", e.Metric, e.Period, e.Field)
}

// DivisionByZeroError is returned when a formula's denominator is zero.
type DivisionByZeroError struct {
	Metric      MetricName
	Denominator string
	Period      PeriodKey
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("%s: denominator %s is zero in period %s", e.Metric, e.Denominator, e.Period)
}

// OutOfOrderPeriodError is returned when periods are not strictly increasing.
type OutOfOrderPeriodError struct {
	Previous PeriodKey
	Current  PeriodKey
}

func (e *OutOfOrderPeriodError) Error() string {
	if e.Previous == e.Current {
		return fmt.Sprintf("duplicate period %s", e.Current)
	}
	return fmt.Sprintf("period %s follows %s out of order", e.Current, e.Previous)
}

// InsufficientDataError is returned when a series is too short to analyse.
type InsufficientDataError struct {
	Metric   MetricName
	Points   int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d data points, need at least %d", e.Metric, e.Points, e.Required)
}

// UnresolvedMetricError is returned when a rule references a metric that has
// no statistics. Cause holds the error that kept the metric from resolving,
// if there was one.
type UnresolvedMetricError struct {
	Metric    MetricName
	Rule      string
	Dimension string
	Cause     error
}

func (e *UnresolvedMetricError) Error() string {
	msg := fmt.Sprintf("rule %s (%s): metric %s unresolved", e.Rule, e.Dimension, e.Metric)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnresolvedMetricError) Unwrap() error {
	return e.Cause
}

// UnknownLineItemError is returned for line items outside the known set.
type UnknownLineItemError struct {
	Item string
}

func (e *UnknownLineItemError) Error() string {
	return fmt.Sprintf("unknown line item %q", e.Item)
}

// InvalidValueError is returned for NaN or infinite line item values.
type InvalidValueError struct {
	Item   LineItem
	Value  float64
	Period PeriodKey
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("period %s: line item %s has non-finite value %v", e.Period, e.Item, e.Value)
}

// MixedPeriodTypeError is returned when annual and quarterly periods are
// combined in one series.
type MixedPeriodTypeError struct {
	Expected PeriodType
	Got      PeriodType
	Period   PeriodKey
}

func (e *MixedPeriodTypeError) Error() string {
	return fmt.Sprintf("period %s is %s, series is %s", e.Period, e.Got, e.Expected)
}

// UnknownMetricError is returned for metric names with no registered formula.
type UnknownMetricError struct {
	Metric MetricName
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q", e.Metric)
}

// UnknownSectorError is returned when no ruleset exists for a sector.
type UnknownSectorError struct {
	Sector string
}

func (e *UnknownSectorError) Error() string {
	return fmt.Sprintf("unknown sector %q", e.Sector)
}
