package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// NewMigrator returns a goose provider over the embedded migrations for the
// database's dialect.
func (db *DB) NewMigrator() (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+db.Dialect.MigrationsSubdir())
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	provider, err := goose.NewProvider(db.Dialect.GooseDialect(), db.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations applies all pending migrations and returns the number applied.
func (db *DB) RunMigrations(ctx context.Context) (int, error) {
	provider, err := db.NewMigrator()
	if err != nil {
		return 0, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("failed to run migrations: %w", err)
	}
	return len(results), nil
}
