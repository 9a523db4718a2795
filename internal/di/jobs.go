// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/screener/internal/config"
	"github.com/aristath/screener/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the jobs and schedules those with a configured spec
// Returns JobInstances for manual triggering via API
func RegisterJobs(sched *scheduler.Scheduler, container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		Rescreen: scheduler.NewRescreenJob(container.ScreeningService),
	}
	if container.BackupService != nil {
		instances.Backup = scheduler.NewBackupJob(container.BackupService, cfg.BackupRetentionDays, container.EventManager)
	}

	if cfg.ScreenSchedule != "" {
		if err := sched.AddJob(cfg.ScreenSchedule, instances.Rescreen); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", instances.Rescreen.Name(), err)
		}
	}
	if instances.Backup != nil && cfg.BackupSchedule != "" {
		if err := sched.AddJob(cfg.BackupSchedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", instances.Backup.Name(), err)
		}
	}

	log.Info().
		Str("screen_schedule", cfg.ScreenSchedule).
		Bool("backups", instances.Backup != nil).
		Msg("Jobs registered")
	return instances, nil
}
