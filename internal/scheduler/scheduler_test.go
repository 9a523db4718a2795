package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/reliability"
	"github.com/aristath/screener/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

func TestScheduler_RunNow(t *testing.T) {
	s := New(0, zerolog.Nop())
	var calls atomic.Int32

	err := s.RunNow(funcJob{name: "count", fn: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	err = s.RunNow(funcJob{name: "fail", fn: func(ctx context.Context) error { return errors.New("boom") }})
	assert.EqualError(t, err, "boom")
}

func TestScheduler_RunTimeout(t *testing.T) {
	s := New(10*time.Millisecond, zerolog.Nop())

	err := s.RunNow(funcJob{name: "slow", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(0, zerolog.Nop())
	job := funcJob{name: "noop", fn: func(ctx context.Context) error { return nil }}

	require.NoError(t, s.AddJob("0 0 6 * * *", job))
	require.NoError(t, s.AddJob("@every 1h", job))
	assert.Error(t, s.AddJob("not a schedule", job))
	assert.Error(t, s.AddJob("0 6 * * *", job), "schedules carry a seconds field")
}

func TestScheduler_StopCancelsJobs(t *testing.T) {
	s := New(0, zerolog.Nop())
	s.Start()
	s.Stop()

	err := s.RunNow(funcJob{name: "after_stop", fn: func(ctx context.Context) error { return ctx.Err() }})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeStoredScreener struct {
	trigger string
	err     error
}

func (f *fakeStoredScreener) ScreenStored(ctx context.Context, trigger string) (*services.BatchResult, error) {
	f.trigger = trigger
	if f.err != nil {
		return nil, f.err
	}
	return &services.BatchResult{RunID: "run"}, nil
}

func TestRescreenJob(t *testing.T) {
	screener := &fakeStoredScreener{}
	job := NewRescreenJob(screener)

	assert.Equal(t, "rescreen_entities", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "schedule", screener.trigger)

	screener.err = errors.New("db locked")
	assert.Error(t, job.Run(context.Background()))
}

type fakeBackuper struct {
	err       error
	rotated   int
	retention int
}

func (f *fakeBackuper) CreateAndUpload(ctx context.Context) (*reliability.BackupInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &reliability.BackupInfo{Key: "screener/screener-backup-x.db", SizeBytes: 4096}, nil
}

func (f *fakeBackuper) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	f.rotated++
	f.retention = retentionDays
	return 0, errors.New("list failed")
}

func TestBackupJob(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	manager := events.NewManager(bus, zerolog.Nop())
	stream, cancel := bus.Subscribe(4)
	defer cancel()

	backups := &fakeBackuper{}
	job := NewBackupJob(backups, 30, manager)
	assert.Equal(t, "database_backup", job.Name())

	require.NoError(t, job.Run(context.Background()), "rotation errors do not fail the job")
	assert.Equal(t, 1, backups.rotated)
	assert.Equal(t, 30, backups.retention)

	evt := <-stream
	assert.Equal(t, events.BackupCompleted, evt.Type)

	backups.err = errors.New("no bucket")
	require.Error(t, job.Run(context.Background()))
	assert.Equal(t, 1, backups.rotated)
	assert.Equal(t, events.ErrorOccurred, (<-stream).Type)
}

func TestBackupJob_NilEmitter(t *testing.T) {
	job := NewBackupJob(&fakeBackuper{}, 0, nil)
	assert.NoError(t, job.Run(context.Background()))
}
