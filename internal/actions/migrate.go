package actions

import (
	"fmt"

	"github.com/modelgate/modelgate/internal/config"
	"github.com/modelgate/modelgate/internal/history"
)

// Migrate applies the run-history database schema.
func Migrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HistoryEnabled() {
		return ErrHistoryNotConfigured
	}

	fmt.Println("\n📋 Migration Configuration:")
	fmt.Println("===========================")
	fmt.Printf("ClickHouse Host: %s:%d\n", cfg.ClickhouseHost, cfg.ClickhouseNativePort)
	fmt.Printf("Database Name:   %s\n", cfg.ClickhouseDatabase)
	fmt.Printf("Migrations Dir:  %s\n", cfg.MigrationsDir)
	fmt.Println()

	fmt.Println("🔄 Running database migrations...")
	if err := history.Migrate(cfg); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Println("\n🎉 Migration completed successfully!")
	return nil
}
