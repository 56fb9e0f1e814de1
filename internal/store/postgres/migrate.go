package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/i474232898/tomorrow-pipeline/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies all pending schema migrations embedded in the binary.
// Safe to call on every startup; already-applied migrations are skipped.
func RunMigrations(databaseURL string) error {
	log := logger.Get()

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, toPgx5URL(databaseURL))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Infow("migrations_up_to_date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.Infow("migrations_applied", "version", version)
	return nil
}

// toPgx5URL rewrites the connection scheme for golang-migrate's pgx v5 driver.
func toPgx5URL(databaseURL string) string {
	if after, ok := strings.CutPrefix(databaseURL, "postgres://"); ok {
		return "pgx5://" + after
	}
	if after, ok := strings.CutPrefix(databaseURL, "postgresql://"); ok {
		return "pgx5://" + after
	}
	return databaseURL
}
