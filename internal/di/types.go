/**
 * Package di provides dependency injection type definitions.
 *
 * Container holds every application dependency and is the single source of
 * truth for service instances. It is created by Wire() and passed to the
 * server and the scheduler.
 */
package di

import (
	"github.com/aristath/screener/internal/database"
	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/modules/filings"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/aristath/screener/internal/modules/screening/workers"
	"github.com/aristath/screener/internal/modules/verdicts"
	"github.com/aristath/screener/internal/reliability"
	"github.com/aristath/screener/internal/scheduler"
	"github.com/aristath/screener/internal/services"
)

// Container holds all dependencies for the application
type Container struct {
	// Database
	DB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Screening engine
	Calculator *metrics.Calculator
	Registry   *screening.Registry
	Pipeline   *screening.Pipeline
	Pool       *workers.Pool

	// Repositories
	FilingsRepo *filings.Repository
	VerdictRepo *verdicts.Repository

	// Services
	ScreeningService *services.ScreeningService
	BackupService    *reliability.BackupService // nil when S3 is not configured
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// JobInstances holds job references for manual triggering via API
type JobInstances struct {
	Rescreen scheduler.Job
	Backup   scheduler.Job // nil when S3 is not configured
}
