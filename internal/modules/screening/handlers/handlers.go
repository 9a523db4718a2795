// Package handlers provides HTTP handlers for screening operations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/screener/internal/domain"
	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/modules/filings"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/aristath/screener/internal/modules/timeseries"
	"github.com/aristath/screener/internal/services"
	"github.com/rs/zerolog"
)

const (
	// MaxBatchSize bounds the entities accepted by one ad-hoc screening request.
	MaxBatchSize = 500
	maxBodyBytes = 16 << 20
	defaultLimit = 20
	maxLimit     = 500
)

// EntityStore persists entities
type EntityStore interface {
	Save(ctx context.Context, entity domain.Entity) error
	Get(ctx context.Context, id string) (*domain.Entity, error)
	List(ctx context.Context) ([]filings.EntitySummary, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// VerdictReader reads stored verdicts
type VerdictReader interface {
	Get(ctx context.Context, id string) (*screening.Verdict, error)
	ListByEntity(ctx context.Context, entityID string, limit int) ([]screening.Verdict, error)
	Latest(ctx context.Context, entityID string) (*screening.Verdict, error)
	ListByRun(ctx context.Context, runID string) ([]screening.Verdict, error)
	CountByOutcome(ctx context.Context, runID string) (map[screening.Status]int, error)
}

// Screener runs screenings that persist their verdicts
type Screener interface {
	ScreenEntities(ctx context.Context, entities []domain.Entity, trigger string) (*services.BatchResult, error)
	ScreenOne(ctx context.Context, id string, trigger string) (*screening.Report, error)
}

// EventEmitter publishes typed events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Handler handles screening HTTP requests
type Handler struct {
	registry *screening.Registry
	calc     *metrics.Calculator
	entities EntityStore
	verdicts VerdictReader
	screener Screener
	events   EventEmitter
	log      zerolog.Logger
}

// NewHandler creates a new screening handler. emitter may be nil.
func NewHandler(
	registry *screening.Registry,
	calc *metrics.Calculator,
	entities EntityStore,
	verdicts VerdictReader,
	screener Screener,
	emitter EventEmitter,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		registry: registry,
		calc:     calc,
		entities: entities,
		verdicts: verdicts,
		screener: screener,
		events:   emitter,
		log:      log.With().Str("handler", "screening").Logger(),
	}
}

// MetricInfo describes a metric that rules can reference
type MetricInfo struct {
	Name        domain.MetricName `json:"name"`
	Description string            `json:"description"`
}

// HandleListMetrics handles GET /api/metrics
func (h *Handler) HandleListMetrics(w http.ResponseWriter, r *http.Request) {
	list := make([]MetricInfo, 0, len(h.calc.Metrics()))
	for _, name := range h.calc.Metrics() {
		desc, _ := h.calc.Describe(name)
		list = append(list, MetricInfo{Name: name, Description: desc})
	}
	for _, name := range timeseries.GrowthMetrics() {
		base, _ := timeseries.GrowthBase(name)
		list = append(list, MetricInfo{Name: name, Description: "period-over-period growth of " + string(base)})
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"metrics": list,
		"count":   len(list),
	}))
}

// HandleListRulesets handles GET /api/rulesets
func (h *Handler) HandleListRulesets(w http.ResponseWriter, r *http.Request) {
	rulesets := h.registry.List()
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"rulesets": rulesets,
		"count":    len(rulesets),
	}))
}

// HandleGetRuleset handles GET /api/rulesets/{sector}
func (h *Handler) HandleGetRuleset(w http.ResponseWriter, r *http.Request, sector string) {
	parsed, err := domain.ParseSector(sector)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	rs, err := h.registry.Get(parsed)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(rs))
}

// HandleListEntities handles GET /api/entities
func (h *Handler) HandleListEntities(w http.ResponseWriter, r *http.Request) {
	list, err := h.entities.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list entities")
		h.writeError(w, http.StatusInternalServerError, "Failed to list entities")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"entities": list,
		"count":    len(list),
	}))
}

// HandleGetEntity handles GET /api/entities/{id}
func (h *Handler) HandleGetEntity(w http.ResponseWriter, r *http.Request, id string) {
	entity, err := h.entities.Get(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("entity", id).Msg("Failed to get entity")
		h.writeError(w, http.StatusInternalServerError, "Failed to get entity")
		return
	}
	if entity == nil {
		h.writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(entity))
}

// SaveEntityRequest is the body of PUT /api/entities/{id}
type SaveEntityRequest struct {
	Name    string                   `json:"name"`
	Sector  string                   `json:"sector"`
	Periods []domain.FinancialPeriod `json:"periods"`
}

// HandleSaveEntity handles PUT /api/entities/{id}
func (h *Handler) HandleSaveEntity(w http.ResponseWriter, r *http.Request, id string) {
	var req SaveEntityRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sector, err := domain.ParseSector(req.Sector)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Periods) == 0 {
		h.writeError(w, http.StatusBadRequest, "At least one period is required")
		return
	}

	// Duplicate keys and mixed annual/quarterly periods would make every
	// later screening of this entity indeterminate.
	periods, err := domain.SortPeriods(req.Periods)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entity := domain.Entity{ID: id, Name: req.Name, Sector: sector, Periods: periods}
	if err := entity.Validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.entities.Save(r.Context(), entity); err != nil {
		h.log.Error().Err(err).Str("entity", id).Msg("Failed to save entity")
		h.writeError(w, http.StatusInternalServerError, "Failed to save entity")
		return
	}

	if h.events != nil {
		h.events.EmitTyped("screening", &events.EntitySavedData{
			EntityID: id,
			Sector:   string(sector),
			Periods:  len(req.Periods),
		})
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"id":      id,
		"sector":  sector,
		"periods": len(req.Periods),
	}))
}

// HandleDeleteEntity handles DELETE /api/entities/{id}
func (h *Handler) HandleDeleteEntity(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.entities.Delete(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("entity", id).Msg("Failed to delete entity")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete entity")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleScreenEntity handles POST /api/entities/{id}/screen
func (h *Handler) HandleScreenEntity(w http.ResponseWriter, r *http.Request, id string) {
	report, err := h.screener.ScreenOne(r.Context(), id, "api")
	if err != nil {
		h.log.Error().Err(err).Str("entity", id).Msg("Failed to screen entity")
		h.writeError(w, http.StatusInternalServerError, "Failed to screen entity")
		return
	}
	if report == nil {
		h.writeError(w, http.StatusNotFound, "Entity not found")
		return
	}
	if report.Err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, report.Error)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(report))
}

// ScreenRequest is the body of POST /api/screen
type ScreenRequest struct {
	Entities []domain.Entity `json:"entities"`
}

// HandleScreen handles POST /api/screen. Entities are screened without
// being stored; their verdicts are recorded.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	var req ScreenRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Entities) == 0 {
		h.writeError(w, http.StatusBadRequest, "At least one entity is required")
		return
	}
	if len(req.Entities) > MaxBatchSize {
		h.writeError(w, http.StatusRequestEntityTooLarge, "Too many entities, maximum is "+strconv.Itoa(MaxBatchSize))
		return
	}

	for i := range req.Entities {
		if sector, err := domain.ParseSector(string(req.Entities[i].Sector)); err == nil {
			req.Entities[i].Sector = sector
		}
	}

	result, err := h.screener.ScreenEntities(r.Context(), req.Entities, "api")
	if err != nil {
		h.log.Error().Err(err).Int("entities", len(req.Entities)).Msg("Failed to screen batch")
		h.writeError(w, http.StatusInternalServerError, "Failed to screen entities")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleGetVerdicts handles GET /api/verdicts/{id}?limit=
func (h *Handler) HandleGetVerdicts(w http.ResponseWriter, r *http.Request, entityID string) {
	limit := defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = min(parsedLimit, maxLimit)
		}
	}

	list, err := h.verdicts.ListByEntity(r.Context(), entityID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("entity", entityID).Msg("Failed to get verdicts")
		h.writeError(w, http.StatusInternalServerError, "Failed to get verdicts")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"entity_id": entityID,
		"verdicts":  list,
		"count":     len(list),
	}))
}

// HandleGetLatestVerdict handles GET /api/entities/{id}/verdict
func (h *Handler) HandleGetLatestVerdict(w http.ResponseWriter, r *http.Request, entityID string) {
	verdict, err := h.verdicts.Latest(r.Context(), entityID)
	if err != nil {
		h.log.Error().Err(err).Str("entity", entityID).Msg("Failed to get latest verdict")
		h.writeError(w, http.StatusInternalServerError, "Failed to get latest verdict")
		return
	}
	if verdict == nil {
		h.writeError(w, http.StatusNotFound, "No verdict recorded for entity")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(verdict))
}

// HandleGetRun handles GET /api/runs/{runID}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	list, err := h.verdicts.ListByRun(r.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		h.writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}
	if len(list) == 0 {
		h.writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	outcomes, err := h.verdicts.CountByOutcome(r.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to count run outcomes")
		h.writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"run_id":   runID,
		"verdicts": list,
		"outcomes": outcomes,
		"count":    len(list),
	}))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
