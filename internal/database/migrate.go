package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations
func Migrate(ctx context.Context, db *PostgresDB, logger *logrus.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(logger)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	logger.Info("Applying database migrations...")
	if err := goose.UpContext(ctx, db.DB.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB.DB)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.WithField("version", version).Info("Migrations applied successfully")

	return nil
}
