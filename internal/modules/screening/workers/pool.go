// Package workers screens batches of entities in parallel.
package workers

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is used when a non-positive worker count is requested.
const DefaultWorkers = 10

// ProgressCallback receives progress after each entity completes.
type ProgressCallback func(current, total int, message string)

// Resolver picks the ruleset for an entity.
type Resolver func(entity domain.Entity) (screening.Ruleset, error)

// Evaluator screens one entity. *screening.Pipeline satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, entity domain.Entity, rs screening.Ruleset) screening.Report
}

// Pool runs a bounded number of screening workers.
type Pool struct {
	numWorkers int
	evaluator  Evaluator
	progress   ProgressCallback
	log        zerolog.Logger
}

// NewPool creates a pool with numWorkers workers.
func NewPool(numWorkers int, evaluator Evaluator, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	return &Pool{
		numWorkers: numWorkers,
		evaluator:  evaluator,
		log:        log.With().Str("component", "screening_pool").Logger(),
	}
}

// WithProgress sets the progress callback and returns the pool.
func (p *Pool) WithProgress(cb ProgressCallback) *Pool {
	p.progress = cb
	return p
}

// Workers returns the worker count.
func (p *Pool) Workers() int {
	return p.numWorkers
}

// ScreenBatch screens every entity and returns reports in input order.
// A failure in one entity is recorded in its report and never aborts the
// others. Entities not yet started when ctx is cancelled get a report
// carrying the context error.
func (p *Pool) ScreenBatch(ctx context.Context, entities []domain.Entity, resolve Resolver) []screening.Report {
	reports := make([]screening.Report, len(entities))
	if len(entities) == 0 {
		return reports
	}

	if screening.RunIDFrom(ctx) == "" {
		ctx = screening.WithRunID(ctx, screening.NewRunID())
	}

	g := new(errgroup.Group)
	g.SetLimit(min(p.numWorkers, len(entities)))

	var done atomic.Int64
	total := len(entities)

	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			reports[i] = p.screenOne(ctx, entity, resolve)

			current := int(done.Add(1))
			if p.progress != nil {
				p.progress(current, total, fmt.Sprintf("Screened %s", entity.ID))
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	p.log.Info().
		Str("run_id", screening.RunIDFrom(ctx)).
		Int("entities", total).
		Int("errors", failed).
		Msg("Batch screening complete")

	return reports
}

func (p *Pool) screenOne(ctx context.Context, entity domain.Entity, resolve Resolver) (report screening.Report) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic screening %s: %v", entity.ID, r)
			p.log.Error().Err(err).Str("entity", entity.ID).Msg("Recovered from panic")
			report = screening.Report{EntityID: entity.ID, Err: err, Error: err.Error()}
		}
	}()

	if err := ctx.Err(); err != nil {
		return screening.Report{EntityID: entity.ID, Err: err, Error: err.Error()}
	}

	rs, err := resolve(entity)
	if err != nil {
		p.log.Warn().Err(err).Str("entity", entity.ID).Msg("No ruleset for entity")
		return screening.Report{EntityID: entity.ID, Err: err, Error: err.Error()}
	}
	return p.evaluator.Evaluate(ctx, entity, rs)
}
