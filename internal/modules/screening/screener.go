package screening

import (
	"errors"
	"time"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/trend"
	"github.com/google/uuid"
)

// Input carries everything the screener needs for one entity.
type Input struct {
	EntityID string
	RunID    string
	Stats    map[domain.MetricName]trend.Stats
	// Failures explains why a metric has no stats.
	Failures map[domain.MetricName]error
}

// Screener applies rulesets to metric statistics.
type Screener struct {
	now   func() time.Time
	newID func() string
}

// NewScreener creates a screener stamping verdicts with UUIDs and UTC time.
func NewScreener() *Screener {
	return &Screener{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

// Screen evaluates rs against stats with no entity context.
func (s *Screener) Screen(rs Ruleset, stats map[domain.MetricName]trend.Stats) (Verdict, error) {
	return s.Evaluate(rs, Input{Stats: stats})
}

// Evaluate screens one entity. Rules whose metric has no stats are
// indeterminate; their UnresolvedMetricErrors are joined into the returned
// error alongside the complete verdict.
func (s *Screener) Evaluate(rs Ruleset, in Input) (Verdict, error) {
	var errs []error
	var messages []string

	dims := make([]DimensionResult, 0, len(rs.Dimensions))
	for _, dim := range rs.Dimensions {
		results := make([]RuleResult, 0, len(dim.Rules))
		for _, rule := range dim.Rules {
			var stats *trend.Stats
			if st, ok := in.Stats[rule.Metric]; ok {
				stats = &st
			}

			result, err := rule.evaluate(dim.Dimension, stats, in.Failures[rule.Metric])
			if err != nil {
				errs = append(errs, err)
				messages = append(messages, err.Error())
			}
			results = append(results, result)
		}
		dims = append(dims, DimensionResult{
			Dimension: dim.Dimension,
			Status:    dimensionStatus(results),
			Rules:     results,
		})
	}

	outcome, failing, indeterminate := compositeOutcome(dims)
	runID := in.RunID
	if runID == "" {
		runID = s.newID()
	}

	verdict := Verdict{
		ID:                      s.newID(),
		RunID:                   runID,
		EntityID:                in.EntityID,
		Sector:                  rs.Sector,
		Ruleset:                 rs.Name,
		RulesetVersion:          rs.Version,
		Dimensions:              dims,
		Outcome:                 outcome,
		FailingDimensions:       failing,
		IndeterminateDimensions: indeterminate,
		Errors:                  messages,
		CreatedAt:               s.now(),
	}
	return verdict, errors.Join(errs...)
}
