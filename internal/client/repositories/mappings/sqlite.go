package mappings

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

func (r *SQLiteRepository) Create(ctx context.Context, m *models.IDMapping) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO id_mappings (temp_id, kind, permanent_id, created_at, synced_at)
			VALUES (?, ?, ?, ?, NULL)`
	_, err := r.db.ExecContext(ctx, query,
		m.TempID, string(m.Kind), m.PermanentID, dbx.TimeToDB(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create id mapping: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetByTempID(ctx context.Context, tempID string) (*models.IDMapping, error) {
	query := `SELECT temp_id, kind, permanent_id, created_at, synced_at
			FROM id_mappings WHERE temp_id = ?`
	row := r.db.QueryRowContext(ctx, query, tempID)

	m, err := scanMapping(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mapping %s: %w", tempID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get id mapping: %w", dbx.WrapStorageErr(err))
	}
	return m, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.IDMapping, error) {
	return r.query(ctx, `SELECT temp_id, kind, permanent_id, created_at, synced_at
			FROM id_mappings ORDER BY created_at, temp_id`)
}

func (r *SQLiteRepository) GetPending(ctx context.Context) ([]models.IDMapping, error) {
	return r.query(ctx, `SELECT temp_id, kind, permanent_id, created_at, synced_at
			FROM id_mappings WHERE permanent_id = '' ORDER BY created_at, temp_id`)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.IDMapping, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select id mappings: %w", dbx.WrapStorageErr(err))
	}
	defer rows.Close()

	var result []models.IDMapping
	for rows.Next() {
		m, err := scanMapping(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapStorageErr(err)
	}
	return result, nil
}

func scanMapping(scan func(dest ...any) error) (*models.IDMapping, error) {
	var m models.IDMapping
	var kind, created string
	var synced sql.NullString
	if err := scan(&m.TempID, &kind, &m.PermanentID, &created, &synced); err != nil {
		return nil, err
	}
	m.Kind = models.Kind(kind)

	t, err := dbx.TimeFromDB(created)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = t

	if synced.Valid && synced.String != "" {
		st, err := dbx.TimeFromDB(synced.String)
		if err != nil {
			return nil, err
		}
		m.SyncedAt = &st
	}
	return &m, nil
}

// Resolve fills in the permanent identifier. It expects the mapping to exist.
func (r *SQLiteRepository) Resolve(ctx context.Context, tempID, permanentID string, syncedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE id_mappings SET permanent_id = ?, synced_at = ? WHERE temp_id = ?`,
		permanentID, dbx.TimeToDB(syncedAt), tempID)
	if err != nil {
		return fmt.Errorf("failed to resolve id mapping: %w", dbx.WrapStorageErr(err))
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", dbx.WrapStorageErr(err))
	}
	if ra != 1 {
		return fmt.Errorf("mapping %s: %w", tempID, common.ErrNotFound)
	}
	return nil
}

// Delete removes one mapping, used when a never-synchronized entity is
// discarded before its identifier resolves.
func (r *SQLiteRepository) Delete(ctx context.Context, tempID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM id_mappings WHERE temp_id = ?`, tempID)
	if err != nil {
		return fmt.Errorf("failed to delete id mapping: %w", dbx.WrapStorageErr(err))
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", dbx.WrapStorageErr(err))
	}
	if ra == 0 {
		return fmt.Errorf("mapping %s: %w", tempID, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM id_mappings`)
	if err != nil {
		return fmt.Errorf("failed to clear id mappings: %w", dbx.WrapStorageErr(err))
	}
	return nil
}
