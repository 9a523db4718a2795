// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/screener/internal/config"
	"github.com/aristath/screener/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabase opens the screener database and applies its schema
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileDurable, // Verdicts are an audit trail
		Name:    "screener",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize screener database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate screener database: %w", err)
	}

	log.Info().Str("path", db.Path()).Msg("Database initialized")
	return &Container{DB: db}, nil
}
