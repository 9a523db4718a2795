package screening

import (
	"time"

	"github.com/aristath/screener/internal/domain"
)

// DimensionResult is the status of one dimension and its rule results.
type DimensionResult struct {
	Dimension Dimension    `json:"dimension"`
	Status    Status       `json:"status"`
	Rules     []RuleResult `json:"rules"`
}

// Verdict is the screening record for one entity. It is built once by the
// Screener and never modified afterwards.
type Verdict struct {
	ID                      string            `json:"id"`
	RunID                   string            `json:"run_id"`
	EntityID                string            `json:"entity_id"`
	Sector                  domain.Sector     `json:"sector"`
	Ruleset                 string            `json:"ruleset"`
	RulesetVersion          string            `json:"ruleset_version"`
	Dimensions              []DimensionResult `json:"dimensions"`
	Outcome                 Status            `json:"outcome"`
	FailingDimensions       []Dimension       `json:"failing_dimensions"`
	IndeterminateDimensions []Dimension       `json:"indeterminate_dimensions"`
	Errors                  []string          `json:"errors,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
}

// Dimension returns the result for one dimension.
func (v Verdict) Dimension(d Dimension) (DimensionResult, bool) {
	for _, dim := range v.Dimensions {
		if dim.Dimension == d {
			return dim, true
		}
	}
	return DimensionResult{}, false
}

// Rule returns the result of a named rule.
func (v Verdict) Rule(name string) (RuleResult, bool) {
	for _, dim := range v.Dimensions {
		for _, rule := range dim.Rules {
			if rule.Name == name {
				return rule, true
			}
		}
	}
	return RuleResult{}, false
}

// dimensionStatus: any fail wins, then any indeterminate, otherwise pass.
func dimensionStatus(rules []RuleResult) Status {
	status := StatusPass
	for _, r := range rules {
		switch r.Status {
		case StatusFail:
			return StatusFail
		case StatusIndeterminate:
			status = StatusIndeterminate
		}
	}
	return status
}

// compositeOutcome: fail if any dimension fails, pass if all pass,
// indeterminate otherwise.
func compositeOutcome(dims []DimensionResult) (Status, []Dimension, []Dimension) {
	failing := []Dimension{}
	indeterminate := []Dimension{}
	for _, d := range dims {
		switch d.Status {
		case StatusFail:
			failing = append(failing, d.Dimension)
		case StatusIndeterminate:
			indeterminate = append(indeterminate, d.Dimension)
		}
	}

	switch {
	case len(failing) > 0:
		return StatusFail, failing, indeterminate
	case len(indeterminate) > 0:
		return StatusIndeterminate, failing, indeterminate
	default:
		return StatusPass, failing, indeterminate
	}
}
