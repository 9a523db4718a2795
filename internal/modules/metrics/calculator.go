// Package metrics derives per-period ratios from statement line items.
package metrics

import (
	"errors"
	"sort"

	"github.com/aristath/screener/internal/domain"
)

// formula computes one metric from a single period.
type formula struct {
	Name        domain.MetricName
	Description string
	Compute     func(e *evaluator) float64
}

// Calculator evaluates registered formulas. It is safe for concurrent use
// once constructed.
type Calculator struct {
	formulas map[domain.MetricName]formula
}

// NewCalculator returns a calculator with every built-in formula registered.
func NewCalculator() *Calculator {
	c := &Calculator{formulas: make(map[domain.MetricName]formula)}
	for _, f := range builtinFormulas() {
		c.formulas[f.Name] = f
	}
	return c
}

// Has reports whether a formula is registered for metric.
func (c *Calculator) Has(metric domain.MetricName) bool {
	_, ok := c.formulas[metric]
	return ok
}

// Metrics returns the registered metric names in sorted order.
func (c *Calculator) Metrics() []domain.MetricName {
	names := make([]domain.MetricName, 0, len(c.formulas))
	for name := range c.formulas {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Describe returns the human-readable formula for metric.
func (c *Calculator) Describe(metric domain.MetricName) (string, error) {
	f, ok := c.formulas[metric]
	if !ok {
		return "", &domain.UnknownMetricError{Metric: metric}
	}
	return f.Description, nil
}

// Calculate evaluates one metric for one period.
func (c *Calculator) Calculate(period domain.FinancialPeriod, metric domain.MetricName) (float64, error) {
	f, ok := c.formulas[metric]
	if !ok {
		return 0, &domain.UnknownMetricError{Metric: metric}
	}

	e := &evaluator{period: period, metric: metric}
	value := f.Compute(e)
	if e.err != nil {
		return 0, e.err
	}
	return value, nil
}

// CalculateAll evaluates several metrics for one period. Metrics that fail are
// left out of the result and their errors are joined.
func (c *Calculator) CalculateAll(period domain.FinancialPeriod, metrics ...domain.MetricName) (map[domain.MetricName]float64, error) {
	if len(metrics) == 0 {
		metrics = c.Metrics()
	}

	values := make(map[domain.MetricName]float64, len(metrics))
	var errs []error
	for _, metric := range metrics {
		v, err := c.Calculate(period, metric)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[metric] = v
	}
	return values, errors.Join(errs...)
}

// evaluator gives formulas access to a period's line items and records the
// first error encountered. After an error all reads return 0.
type evaluator struct {
	period domain.FinancialPeriod
	metric domain.MetricName
	err    error
}

func (e *evaluator) lookup(item domain.LineItem) (float64, bool) {
	if e.err != nil {
		return 0, true
	}
	return e.period.Value(item)
}

func (e *evaluator) get(item domain.LineItem) float64 {
	v, ok := e.lookup(item)
	if !ok {
		e.err = &domain.MissingFieldError{Metric: e.metric, Field: item, Period: e.period.Key()}
		return 0
	}
	return v
}

func (e *evaluator) optional(item domain.LineItem) float64 {
	v, _ := e.lookup(item)
	return v
}

func (e *evaluator) div(num, den float64, denominator string) float64 {
	if e.err != nil {
		return 0
	}
	if den == 0 {
		e.err = &domain.DivisionByZeroError{Metric: e.metric, Denominator: denominator, Period: e.period.Key()}
		return 0
	}
	return num / den
}

func (e *evaluator) ratio(num, den domain.LineItem) float64 {
	n := e.get(num)
	d := e.get(den)
	return e.div(n, d, string(den))
}

func (e *evaluator) days() float64 {
	return e.period.Type().Days()
}

// averageInventory averages opening and closing inventory, falling back to
// closing inventory when the opening balance is not reported.
func (e *evaluator) averageInventory() float64 {
	closing := e.get(domain.Inventory)
	opening, ok := e.lookup(domain.InventoryPrior)
	if !ok {
		return closing
	}
	return (closing + opening) / 2
}

// taxRate is the effective rate when pretax income is positive and tax is
// reported, otherwise DefaultTaxRate. It is clamped to [0, 1].
func (e *evaluator) taxRate() float64 {
	tax, okTax := e.lookup(domain.IncomeTaxExpense)
	pretax, okPretax := e.lookup(domain.PretaxIncome)
	if !okTax || !okPretax || pretax <= 0 {
		return DefaultTaxRate
	}
	rate := tax / pretax
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	}
	return rate
}
