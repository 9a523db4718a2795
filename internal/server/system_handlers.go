package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/screener/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatsResponse represents host and database statistics
type SystemStatsResponse struct {
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	Goroutines    int             `json:"goroutines"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Database      *database.Stats `json:"database,omitempty"`
	LastChecked   string          `json:"last_checked"`
}

// SystemHandlers handles system monitoring requests
type SystemHandlers struct {
	db        *database.DB
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(db *database.DB, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		startTime: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStats handles GET /api/system/stats
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatsResponse{
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
		} else {
			response.Database = stats
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the request does not block for long
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
