package server

import (
	"context"
	"net/http"

	"github.com/aristath/screener/internal/reliability"
	"github.com/rs/zerolog"
)

// BackupRunner creates and lists backups
type BackupRunner interface {
	CreateAndUpload(ctx context.Context) (*reliability.BackupInfo, error)
	ListBackups(ctx context.Context) ([]reliability.BackupInfo, error)
}

// BackupHandlers handles backup requests. backups is nil when object
// storage is not configured.
type BackupHandlers struct {
	backups BackupRunner
	log     zerolog.Logger
}

// NewBackupHandlers creates backup handlers
func NewBackupHandlers(backups BackupRunner, log zerolog.Logger) *BackupHandlers {
	return &BackupHandlers{
		backups: backups,
		log:     log.With().Str("handler", "backup").Logger(),
	}
}

func (h *BackupHandlers) unavailable(w http.ResponseWriter) bool {
	if h.backups != nil {
		return false
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":  "error",
		"message": "Backups are not configured",
	})
	return true
}

// HandleTriggerBackup handles POST /api/backups
func (h *BackupHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}

	h.log.Info().Msg("Manual backup triggered")
	info, err := h.backups.CreateAndUpload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleListBackups handles GET /api/backups
func (h *BackupHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}
