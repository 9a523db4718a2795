package di

import (
	"context"
	"fmt"

	"github.com/aristath/screener/internal/config"
	"github.com/aristath/screener/internal/events"
	"github.com/aristath/screener/internal/modules/filings"
	"github.com/aristath/screener/internal/modules/metrics"
	"github.com/aristath/screener/internal/modules/screening"
	"github.com/aristath/screener/internal/modules/screening/workers"
	"github.com/aristath/screener/internal/modules/verdicts"
	"github.com/aristath/screener/internal/reliability"
	"github.com/aristath/screener/internal/services"
	"github.com/rs/zerolog"
)

// InitializeServices builds repositories, the screening engine and services
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database not initialized")
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.FilingsRepo = filings.NewRepository(container.DB.Conn(), log)
	container.VerdictRepo = verdicts.NewRepository(container.DB.Conn(), log)

	container.Calculator = metrics.NewCalculator()
	container.Pipeline = screening.NewPipeline(container.Calculator, screening.NewScreener(), log)

	registry, err := screening.LoadRegistry(cfg.RulesetDir, container.Pipeline.Knows, log)
	if err != nil {
		return fmt.Errorf("failed to load rulesets: %w", err)
	}
	container.Registry = registry

	container.Pool = workers.NewPool(cfg.ScreenWorkers, container.Pipeline, log)
	container.ScreeningService = services.NewScreeningService(
		container.FilingsRepo,
		container.VerdictRepo,
		container.Pool,
		registry.ForEntity,
		container.EventManager,
		log,
	)

	if cfg.S3.Enabled() {
		client, err := reliability.NewS3Client(ctx, cfg.S3, log)
		if err != nil {
			return fmt.Errorf("failed to initialize s3 client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.DB, client, cfg.S3.Prefix, log)
	} else {
		log.Info().Msg("S3 not configured, backups disabled")
	}

	return nil
}
