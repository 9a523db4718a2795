/**
 * Package services provides ScreeningService, the single entry point for
 * screening runs that persist their verdicts.
 *
 * A run:
 * - resolves each entity's sector ruleset
 * - screens entities in parallel through the worker pool
 * - stores every verdict in one transaction
 * - emits VERDICT_RECORDED per verdict and BATCH_COMPLETED per run
 *
 * Usage:
 *   result, _ := screeningService.ScreenStored(ctx, "schedule")
 *   fmt.Println(result.Summary.Failed)
 */
package services

import (
	"context"
	"fmt"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/aristath/screener/internal/modules/screening/workers"
	"github.com/rs/zerolog"
)

// EntityStore loads stored entities
type EntityStore interface {
	Get(ctx context.Context, id string) (*domain.Entity, error)
	All(ctx context.Context) ([]domain.Entity, error)
}

// VerdictStore persists verdicts
type VerdictStore interface {
	SaveAll(ctx context.Context, verdicts []screening.Verdict) error
}

// BatchScreener screens entities in parallel
type BatchScreener interface {
	ScreenBatch(ctx context.Context, entities []domain.Entity, resolve workers.Resolver) []screening.Report
}

// EventEmitter publishes typed events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Summary counts the outcomes of a run
type Summary struct {
	Entities      int `json:"entities"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	Indeterminate int `json:"indeterminate"`
	Errors        int `json:"errors"`
}

// BatchResult is the outcome of one screening run
type BatchResult struct {
	RunID   string             `json:"run_id"`
	Summary Summary            `json:"summary"`
	Reports []screening.Report `json:"reports"`
}

// Summarize counts the outcomes of reports.
func Summarize(reports []screening.Report) Summary {
	s := Summary{Entities: len(reports)}
	for _, r := range reports {
		switch {
		case r.Err != nil || r.Verdict == nil:
			s.Errors++
		case r.Verdict.Outcome == screening.StatusPass:
			s.Passed++
		case r.Verdict.Outcome == screening.StatusFail:
			s.Failed++
		default:
			s.Indeterminate++
		}
	}
	return s
}

/**
 * ScreeningService runs screening batches and records their verdicts.
 */
type ScreeningService struct {
	entities EntityStore
	verdicts VerdictStore
	screener BatchScreener
	resolve  workers.Resolver
	events   EventEmitter
	log      zerolog.Logger
}

/**
 * NewScreeningService creates a new ScreeningService.
 *
 * Parameters:
 *   - entities: Repository of stored entities
 *   - verdicts: Repository verdicts are written to
 *   - screener: Worker pool screening entities in parallel
 *   - resolve: Picks the ruleset for an entity (registry.ForEntity)
 *   - events: Optional event emitter, may be nil
 *   - log: Structured logger
 */
func NewScreeningService(
	entities EntityStore,
	verdicts VerdictStore,
	screener BatchScreener,
	resolve workers.Resolver,
	events EventEmitter,
	log zerolog.Logger,
) *ScreeningService {
	return &ScreeningService{
		entities: entities,
		verdicts: verdicts,
		screener: screener,
		resolve:  resolve,
		events:   events,
		log:      log.With().Str("service", "screening").Logger(),
	}
}

// ScreenEntities screens the given entities and persists their verdicts.
// Per-entity failures are reported, not returned; the error is only set when
// verdicts could not be stored.
func (s *ScreeningService) ScreenEntities(ctx context.Context, entities []domain.Entity, trigger string) (*BatchResult, error) {
	runID := screening.RunIDFrom(ctx)
	if runID == "" {
		runID = screening.NewRunID()
		ctx = screening.WithRunID(ctx, runID)
	}

	reports := s.screener.ScreenBatch(ctx, entities, s.resolve)

	verdicts := make([]screening.Verdict, 0, len(reports))
	for _, r := range reports {
		if r.Verdict != nil {
			verdicts = append(verdicts, *r.Verdict)
		}
	}
	if err := s.verdicts.SaveAll(ctx, verdicts); err != nil {
		return nil, fmt.Errorf("failed to record verdicts of run %s: %w", runID, err)
	}

	result := &BatchResult{RunID: runID, Summary: Summarize(reports), Reports: reports}

	if s.events != nil {
		for _, v := range verdicts {
			s.events.EmitTyped("screening", &events.VerdictRecordedData{
				VerdictID: v.ID,
				RunID:     v.RunID,
				EntityID:  v.EntityID,
				Sector:    string(v.Sector),
				Outcome:   string(v.Outcome),
				Verdict:   v,
			})
		}
		s.events.EmitTyped("screening", &events.BatchCompletedData{
			RunID:         runID,
			Entities:      result.Summary.Entities,
			Passed:        result.Summary.Passed,
			Failed:        result.Summary.Failed,
			Indeterminate: result.Summary.Indeterminate,
			Errors:        result.Summary.Errors,
			Trigger:       trigger,
		})
	}

	s.log.Info().
		Str("run_id", runID).
		Str("trigger", trigger).
		Int("entities", result.Summary.Entities).
		Int("passed", result.Summary.Passed).
		Int("failed", result.Summary.Failed).
		Int("indeterminate", result.Summary.Indeterminate).
		Int("errors", result.Summary.Errors).
		Msg("Screening run recorded")

	return result, nil
}

// ScreenStored screens every stored entity.
func (s *ScreeningService) ScreenStored(ctx context.Context, trigger string) (*BatchResult, error) {
	entities, err := s.entities.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities: %w", err)
	}
	return s.ScreenEntities(ctx, entities, trigger)
}

// ScreenOne screens a stored entity. Returns nil if the entity does not exist.
func (s *ScreeningService) ScreenOne(ctx context.Context, id string, trigger string) (*screening.Report, error) {
	entity, err := s.entities.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	result, err := s.ScreenEntities(ctx, []domain.Entity{*entity}, trigger)
	if err != nil {
		return nil, err
	}
	return &result.Reports[0], nil
}
