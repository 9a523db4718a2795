package screening

import (
	"context"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/internal/modules/timeseries"
	"github.com/aristath/screener/internal/modules/trend"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type runIDKey struct{}

// WithRunID tags ctx with the screening run identifier shared by every
// verdict of one run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run identifier carried by ctx, if any.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// Report is the outcome of screening one entity.
type Report struct {
	EntityID string                            `json:"entity_id"`
	Verdict  *Verdict                          `json:"verdict,omitempty"`
	Stats    map[domain.MetricName]trend.Stats `json:"stats,omitempty"`
	Error    string                            `json:"error,omitempty"`

	// Err is set when the entity could not be screened at all.
	Err error `json:"-"`
	// Unresolved joins the UnresolvedMetricErrors of an otherwise complete verdict.
	Unresolved error `json:"-"`
}

// Failed reports whether the entity failed screening or could not be screened.
func (r Report) Failed() bool {
	if r.Err != nil {
		return true
	}
	return r.Verdict != nil && r.Verdict.Outcome == StatusFail
}

func failedReport(entityID string, err error) Report {
	return Report{EntityID: entityID, Err: err, Error: err.Error()}
}

// Pipeline runs an entity through aggregation, trend analysis and screening.
type Pipeline struct {
	calc     *metrics.Calculator
	screener *Screener
	log      zerolog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(calc *metrics.Calculator, screener *Screener, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		calc:     calc,
		screener: screener,
		log:      log.With().Str("component", "screening_pipeline").Logger(),
	}
}

// Knows reports whether metric can be derived, directly or as growth.
func (p *Pipeline) Knows(metric domain.MetricName) bool {
	return timeseries.NewAggregator(p.calc, timeseries.PolicyFail).Knows(metric)
}

// Evaluate screens one entity against rs. Per-metric errors never escape:
// they become the causes of the verdict's unresolved rules.
func (p *Pipeline) Evaluate(ctx context.Context, entity domain.Entity, rs Ruleset) Report {
	if err := ctx.Err(); err != nil {
		return failedReport(entity.ID, err)
	}
	if err := entity.Validate(); err != nil {
		return failedReport(entity.ID, err)
	}

	runID := RunIDFrom(ctx)
	if runID == "" {
		runID = NewRunID()
	}
	log := p.log.With().
		Str("entity", entity.ID).
		Str("sector", string(rs.Sector)).
		Str("run_id", runID).
		Logger()

	agg := timeseries.NewAggregator(p.calc, rs.DivisionByZero)
	analyzer := trend.NewAnalyzer(rs.Tolerance(), rs.TrailingWindow)

	stats := make(map[domain.MetricName]trend.Stats)
	failures := make(map[domain.MetricName]error)
	for _, metric := range rs.Metrics() {
		series, err := agg.Series(entity.Periods, metric)
		if err != nil {
			failures[metric] = err
			continue
		}
		st, err := analyzer.Analyze(series)
		if err != nil {
			failures[metric] = err
			continue
		}
		stats[metric] = st
	}

	for metric, err := range failures {
		log.Debug().Err(err).Str("metric", string(metric)).Msg("Metric unresolved")
	}

	verdict, err := p.screener.Evaluate(rs, Input{
		EntityID: entity.ID,
		RunID:    runID,
		Stats:    stats,
		Failures: failures,
	})

	log.Info().
		Str("outcome", string(verdict.Outcome)).
		Int("failing_dimensions", len(verdict.FailingDimensions)).
		Int("indeterminate_dimensions", len(verdict.IndeterminateDimensions)).
		Msg("Entity screened")

	return Report{
		EntityID:   entity.ID,
		Verdict:    &verdict,
		Stats:      stats,
		Unresolved: err,
	}
}
