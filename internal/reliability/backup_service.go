// Package reliability backs up the screener database to object storage.
package reliability

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/screener/internal/database"
	"github.com/rs/zerolog"
)

const (
	backupStem      = "screener-backup-"
	backupExt       = ".db"
	timestampLayout = "2006-01-02-150405"

	// MinBackupsToKeep survive rotation regardless of age.
	MinBackupsToKeep = 3
)

// BackupInfo represents a backup stored in object storage
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum,omitempty"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the database and uploads the snapshot.
type BackupService struct {
	db     *database.DB
	store  ObjectStore
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// NewBackupService creates a backup service writing under prefix.
func NewBackupService(db *database.DB, store ObjectStore, prefix string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:     db,
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With().Str("service", "backup").Logger(),
	}
}

func (s *BackupService) keyFor(ts time.Time) string {
	name := backupStem + ts.Format(timestampLayout) + backupExt
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *BackupService) listPrefix() string {
	if s.prefix == "" {
		return backupStem
	}
	return s.prefix + "/" + backupStem
}

// CreateAndUpload writes a verified snapshot of the database and uploads it.
func (s *BackupService) CreateAndUpload(ctx context.Context) (*BackupInfo, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp("", "screener-backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, "screener.db")
	if err := s.db.Snapshot(ctx, snapshotPath); err != nil {
		return nil, err
	}
	if err := verifyBackup(snapshotPath); err != nil {
		return nil, fmt.Errorf("backup verification failed: %w", err)
	}

	checksum, err := calculateChecksum(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	file, err := os.Open(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	ts := s.now()
	key := s.keyFor(ts)
	if err := s.store.Upload(ctx, key, file); err != nil {
		return nil, fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int64("size_bytes", fileInfo.Size()).
		Msg("Backup completed successfully")

	return &BackupInfo{
		Key:       key,
		Timestamp: ts,
		SizeBytes: fileInfo.Size(),
		Checksum:  checksum,
	}, nil
}

// ListBackups lists stored backups, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.listPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, backupStem) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, backupStem), backupExt)
		ts, err := time.Parse(timestampLayout, raw)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping
// the newest MinBackupsToKeep. A retention of 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= MinBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, backup := range backups[MinBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return deleted, nil
}

// verifyBackup opens the snapshot and runs a full integrity check
func verifyBackup(backupPath string) error {
	db, err := sql.Open("sqlite", backupPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned %s", result)
	}
	return nil
}

func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
