package history

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse" // clickhouse driver for migrations
	_ "github.com/golang-migrate/migrate/v4/source/file"         // file source driver for migrations

	"github.com/modelgate/modelgate/internal/config"
)

// Migrate applies the run-history schema migrations.
func Migrate(cfg *config.Config) error {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", cfg.MigrationsDir),
		connectionString(cfg),
	)
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}
	defer func() {
		if _, closeErr := m.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close migration instance: %v\n", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("ℹ️  No new migrations to apply")
			return nil
		}

		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("getting migration version: %w", err)
	}
	if !dirty {
		fmt.Printf("✅ Migrations applied successfully (current version: %d)\n", version)
	}

	return nil
}

func connectionString(cfg *config.Config) string {
	return fmt.Sprintf("clickhouse://%s:%d?username=%s&password=%s&database=%s&x-multi-statement=true",
		cfg.ClickhouseHost,
		cfg.ClickhouseNativePort,
		url.QueryEscape(cfg.ClickhouseUsername),
		url.QueryEscape(cfg.ClickhousePassword),
		url.QueryEscape(cfg.ClickhouseDatabase),
	)
}
