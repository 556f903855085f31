package cmd

import (
	"fmt"

	"github.com/farosearch/faro/db"
	"github.com/farosearch/faro/internal/config"
)

// executeMigrate applies pending database migrations and exits.
// Useful for deployments where migrations run as a separate step.
func executeMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
