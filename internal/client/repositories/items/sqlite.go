package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/common"
	"github.com/larder-app/larder/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Put upserts an item by id and stamps updated_at.
func (r *SQLiteRepository) Put(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now().UTC()

	query := `INSERT INTO items (id, name, category, location, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name,
				category = excluded.category,
				location = excluded.location,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Category, item.Location, dbx.TimeToDB(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT id, name, category, location, updated_at FROM items WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", dbx.WrapStorageErr(err))
	}
	return item, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Item, error) {
	return r.query(ctx, `SELECT id, name, category, location, updated_at FROM items ORDER BY name`)
}

func (r *SQLiteRepository) GetByCategory(ctx context.Context, category string) ([]models.Item, error) {
	return r.query(ctx,
		`SELECT id, name, category, location, updated_at FROM items WHERE category = ? ORDER BY name`,
		category)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", dbx.WrapStorageErr(err))
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapStorageErr(err)
	}
	return result, nil
}

func scanItem(scan func(dest ...any) error) (*models.Item, error) {
	var item models.Item
	var updated string
	if err := scan(&item.ID, &item.Name, &item.Category, &item.Location, &updated); err != nil {
		return nil, err
	}
	t, err := dbx.TimeFromDB(updated)
	if err != nil {
		return nil, err
	}
	item.UpdatedAt = t
	return &item, nil
}

// DeleteByID removes the item row. Absent rows are tolerated so a delete
// mirrored from the remote authority stays idempotent.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) ReplaceID(ctx context.Context, oldID, newID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE items SET id = ? WHERE id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to replace item id: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items`)
	if err != nil {
		return fmt.Errorf("failed to clear items: %w", dbx.WrapStorageErr(err))
	}
	return nil
}
