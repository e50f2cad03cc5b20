// Package store opens the client SQLite database, applies migrations and
// bundles the collection repositories.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/larder-app/larder/internal/client/repositories/changes"
	"github.com/larder-app/larder/internal/client/repositories/items"
	"github.com/larder-app/larder/internal/client/repositories/mappings"
	"github.com/larder-app/larder/internal/client/repositories/statuses"
	"github.com/larder-app/larder/internal/client/store/migrations"
	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver used by Open.
	_ "modernc.org/sqlite"
)

// Repositories bundles the four collections of the persistent store.
type Repositories struct {
	Items    items.Repository
	Statuses statuses.Repository
	Changes  changes.Repository
	Mappings mappings.Repository

	db *sql.DB
}

// RunMigrations brings the schema up to date using the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the database at dsn, runs migrations and
// returns the repository bundle.
func Open(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Items:    items.NewSQLiteRepository(db),
		Statuses: statuses.NewSQLiteRepository(db),
		Changes:  changes.NewSQLiteRepository(db),
		Mappings: mappings.NewSQLiteRepository(db),
		db:       db,
	}, nil
}

// DB exposes the underlying handle for transactional helpers and tests.
func (r *Repositories) DB() *sql.DB {
	return r.db
}

// ClearAll wipes every collection. Used for a full resync from the remote
// authority and for test fixtures.
func (r *Repositories) ClearAll(ctx context.Context) error {
	if err := r.Items.Clear(ctx); err != nil {
		return err
	}
	if err := r.Statuses.Clear(ctx); err != nil {
		return err
	}
	if err := r.Changes.Clear(ctx); err != nil {
		return err
	}
	return r.Mappings.Clear(ctx)
}

// Close closes the underlying database.
func (r *Repositories) Close() error {
	return r.db.Close()
}
