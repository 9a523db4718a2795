package scheduler

import (
	"context"

	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/reliability"
	"github.com/aristath/screener/internal/services"
)

// StoredScreener re-screens every stored entity
type StoredScreener interface {
	ScreenStored(ctx context.Context, trigger string) (*services.BatchResult, error)
}

// RescreenJob re-screens the stored universe so verdicts follow ruleset
// changes and newly saved periods.
type RescreenJob struct {
	screener StoredScreener
}

// NewRescreenJob creates the re-screening job
func NewRescreenJob(screener StoredScreener) *RescreenJob {
	return &RescreenJob{screener: screener}
}

// Name returns the job name
func (j *RescreenJob) Name() string {
	return "rescreen_entities"
}

// Run screens every stored entity
func (j *RescreenJob) Run(ctx context.Context) error {
	_, err := j.screener.ScreenStored(ctx, "schedule")
	return err
}

// Backuper uploads database backups
type Backuper interface {
	CreateAndUpload(ctx context.Context) (*reliability.BackupInfo, error)
	RotateOldBackups(ctx context.Context, retentionDays int) (int, error)
}

// EventEmitter publishes typed events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// BackupJob uploads a database snapshot and rotates old backups.
type BackupJob struct {
	backups       Backuper
	retentionDays int
	events        EventEmitter
}

// NewBackupJob creates the backup job. emitter may be nil.
func NewBackupJob(backups Backuper, retentionDays int, emitter EventEmitter) *BackupJob {
	return &BackupJob{backups: backups, retentionDays: retentionDays, events: emitter}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "database_backup"
}

// Run creates a backup, then rotates old ones.
func (j *BackupJob) Run(ctx context.Context) error {
	info, err := j.backups.CreateAndUpload(ctx)
	if err != nil {
		if j.events != nil {
			j.events.EmitTyped("backup", &events.ErrorEventData{Error: err.Error()})
		}
		return err
	}
	if j.events != nil {
		j.events.EmitTyped("backup", &events.BackupCompletedData{Key: info.Key, SizeBytes: info.SizeBytes})
	}

	// Don't fail - backup succeeded
	_, _ = j.backups.RotateOldBackups(ctx, j.retentionDays)
	return nil
}
