package server

import (
	"net/http"

	"github.com/aristath/screener/internal/di"
	"github.com/aristath/screener/internal/scheduler"
	"github.com/rs/zerolog"
)

// JobHandlers triggers scheduled jobs on demand
type JobHandlers struct {
	scheduler *scheduler.Scheduler
	jobs      *di.JobInstances
	log       zerolog.Logger
}

// NewJobHandlers creates job handlers
func NewJobHandlers(sched *scheduler.Scheduler, jobs *di.JobInstances, log zerolog.Logger) *JobHandlers {
	return &JobHandlers{
		scheduler: sched,
		jobs:      jobs,
		log:       log.With().Str("handler", "jobs").Logger(),
	}
}

// HandleTriggerRescreen triggers re-screening of every stored entity
// POST /api/jobs/rescreen
func (h *JobHandlers) HandleTriggerRescreen(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil || h.jobs == nil || h.jobs.Rescreen == nil {
		h.log.Warn().Msg("Rescreen job not registered")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": "Rescreen job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual rescreen triggered")
	job := h.jobs.Rescreen
	go func() {
		if err := h.scheduler.RunNow(job); err != nil {
			h.log.Error().Err(err).Msg("Manual rescreen failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": "Rescreen triggered",
	})
}
