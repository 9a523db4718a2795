package screening

import (
	"fmt"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/timeseries"
	"github.com/aristath/screener/internal/modules/trend"
	"github.com/go-playground/validator/v10"
)

// DimensionRules is the ordered list of rules of one dimension.
type DimensionRules struct {
	Dimension Dimension `yaml:"dimension" json:"dimension" validate:"required,oneof=operating_strength growth profitability balance_sheet innovation"`
	Rules     []Rule    `yaml:"rules" json:"rules" validate:"required,min=1,dive"`
}

// Ruleset is the complete set of thresholds for one sector.
type Ruleset struct {
	Sector         domain.Sector                   `yaml:"sector" json:"sector" validate:"required"`
	Name           string                          `yaml:"name" json:"name" validate:"required"`
	Version        string                          `yaml:"version" json:"version" validate:"required"`
	Description    string                          `yaml:"description,omitempty" json:"description,omitempty"`
	TrendTolerance *float64                        `yaml:"trend_tolerance" json:"trend_tolerance,omitempty" validate:"omitempty,gte=0,lt=1"`
	DivisionByZero timeseries.DivisionByZeroPolicy `yaml:"division_by_zero" json:"division_by_zero" validate:"omitempty,oneof=fail skip zero"`
	TrailingWindow int                             `yaml:"trailing_window" json:"trailing_window" validate:"gte=0"`
	Dimensions     []DimensionRules                `yaml:"dimensions" json:"dimensions" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Tolerance returns the flat band for trend direction. An unset tolerance
// selects trend.DefaultTolerance; an explicit 0 makes any slope a direction.
func (rs Ruleset) Tolerance() float64 {
	if rs.TrendTolerance == nil {
		return trend.DefaultTolerance
	}
	return *rs.TrendTolerance
}

// Validate checks struct tags, comparison-specific fields, rule name
// uniqueness and, when knows is non-nil, that every metric is computable.
func (rs Ruleset) Validate(knows func(domain.MetricName) bool) error {
	if err := validate.Struct(rs); err != nil {
		return fmt.Errorf("ruleset %s: %w", rs.Name, err)
	}
	if _, err := domain.ParseSector(string(rs.Sector)); err != nil {
		return fmt.Errorf("ruleset %s: %w", rs.Name, err)
	}

	seenDims := make(map[Dimension]bool)
	seenRules := make(map[string]bool)
	for _, dim := range rs.Dimensions {
		if seenDims[dim.Dimension] {
			return fmt.Errorf("ruleset %s: dimension %s listed twice", rs.Name, dim.Dimension)
		}
		seenDims[dim.Dimension] = true

		for _, rule := range dim.Rules {
			if seenRules[rule.Name] {
				return fmt.Errorf("ruleset %s: duplicate rule name %s", rs.Name, rule.Name)
			}
			seenRules[rule.Name] = true

			if err := rule.check(); err != nil {
				return fmt.Errorf("ruleset %s: %w", rs.Name, err)
			}
			if knows != nil && !knows(rule.Metric) {
				return fmt.Errorf("ruleset %s: rule %s: %w", rs.Name, rule.Name, &domain.UnknownMetricError{Metric: rule.Metric})
			}
		}
	}
	return nil
}

// Metrics lists the distinct metrics the ruleset references, in rule order.
func (rs Ruleset) Metrics() []domain.MetricName {
	seen := make(map[domain.MetricName]bool)
	var out []domain.MetricName
	for _, dim := range rs.Dimensions {
		for _, rule := range dim.Rules {
			if !seen[rule.Metric] {
				seen[rule.Metric] = true
				out = append(out, rule.Metric)
			}
		}
	}
	return out
}

// Clone returns a deep copy.
func (rs Ruleset) Clone() Ruleset {
	out := rs
	out.TrendTolerance = cloneFloat(rs.TrendTolerance)
	out.Dimensions = make([]DimensionRules, len(rs.Dimensions))
	for i, dim := range rs.Dimensions {
		rules := make([]Rule, len(dim.Rules))
		for j, rule := range dim.Rules {
			rule.Threshold = cloneFloat(rule.Threshold)
			rule.Low = cloneFloat(rule.Low)
			rule.High = cloneFloat(rule.High)
			rules[j] = rule
		}
		out.Dimensions[i] = DimensionRules{Dimension: dim.Dimension, Rules: rules}
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
