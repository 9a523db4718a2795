// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for the database (always absolute)
	Port                int
	LogLevel            string
	DevMode             bool
	RulesetDir          string // Optional directory of {sector}.yaml ruleset overrides
	ScreenWorkers       int
	ScreenSchedule      string // Cron spec with seconds; empty disables scheduled re-screening
	BackupSchedule      string // Cron spec with seconds; empty disables scheduled backups
	BackupRetentionDays int    // 0 keeps every backup
	S3                  S3Config
}

// S3Config holds object storage settings for database backups.
// Endpoint is only set for S3-compatible stores such as R2 or MinIO.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether backups to object storage are configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// DatabasePath returns the path of the screener database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "screener.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SCREENER_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("GO_PORT", 8001),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		RulesetDir:          getEnv("RULESET_DIR", ""),
		ScreenWorkers:       getEnvAsInt("SCREEN_WORKERS", 10),
		ScreenSchedule:      getEnv("SCREEN_SCHEDULE", "0 0 6 * * *"),
		BackupSchedule:      getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          strings.Trim(getEnv("S3_PREFIX", "screener"), "/"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("GO_PORT %d out of range", c.Port))
	}
	if c.ScreenWorkers <= 0 {
		errs = append(errs, fmt.Errorf("SCREEN_WORKERS must be positive, got %d", c.ScreenWorkers))
	}
	if c.BackupRetentionDays < 0 {
		errs = append(errs, fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative, got %d", c.BackupRetentionDays))
	}
	if c.RulesetDir != "" {
		if info, err := os.Stat(c.RulesetDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("RULESET_DIR %q is not a directory", c.RulesetDir))
		}
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for key, spec := range map[string]string{"SCREEN_SCHEDULE": c.ScreenSchedule, "BACKUP_SCHEDULE": c.BackupSchedule} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", key, spec, err))
		}
	}

	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		errs = append(errs, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together"))
	}

	return errors.Join(errs...)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
