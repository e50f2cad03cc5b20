package statuses

import (
	"context"
	"database/sql"
	"encoding/json"
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

// Put upserts a status by item id and stamps updated_at. Expiry dates and
// flags are stored as JSON arrays.
func (r *SQLiteRepository) Put(ctx context.Context, status *models.Status) error {
	status.UpdatedAt = time.Now().UTC()

	dates, err := json.Marshal(status.ExpiryDates)
	if err != nil {
		return fmt.Errorf("failed to encode expiry dates: %w", err)
	}
	flags, err := json.Marshal(status.Flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	query := `INSERT INTO statuses (item_id, classification, expiry_dates, flags, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET classification = excluded.classification,
				expiry_dates = excluded.expiry_dates,
				flags = excluded.flags,
				version = excluded.version,
				updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		status.ItemID, status.Classification, string(dates), string(flags),
		status.Version, dbx.TimeToDB(status.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert status: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) GetByItemID(ctx context.Context, itemID string) (*models.Status, error) {
	query := `SELECT item_id, classification, expiry_dates, flags, version, updated_at
			FROM statuses WHERE item_id = ?`
	row := r.db.QueryRowContext(ctx, query, itemID)

	st, err := scanStatus(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("status for item %s: %w", itemID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", dbx.WrapStorageErr(err))
	}
	return st, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Status, error) {
	return r.query(ctx, `SELECT item_id, classification, expiry_dates, flags, version, updated_at
			FROM statuses ORDER BY item_id`)
}

func (r *SQLiteRepository) GetByClassification(ctx context.Context, classification string) ([]models.Status, error) {
	return r.query(ctx, `SELECT item_id, classification, expiry_dates, flags, version, updated_at
			FROM statuses WHERE classification = ? ORDER BY item_id`, classification)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Status, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select statuses: %w", dbx.WrapStorageErr(err))
	}
	defer rows.Close()

	var result []models.Status
	for rows.Next() {
		st, err := scanStatus(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapStorageErr(err)
	}
	return result, nil
}

func scanStatus(scan func(dest ...any) error) (*models.Status, error) {
	var st models.Status
	var dates, flags, updated string
	if err := scan(&st.ItemID, &st.Classification, &dates, &flags, &st.Version, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dates), &st.ExpiryDates); err != nil {
		return nil, fmt.Errorf("failed to decode expiry dates: %w", err)
	}
	if err := json.Unmarshal([]byte(flags), &st.Flags); err != nil {
		return nil, fmt.Errorf("failed to decode flags: %w", err)
	}
	t, err := dbx.TimeFromDB(updated)
	if err != nil {
		return nil, err
	}
	st.UpdatedAt = t
	return &st, nil
}

// DeleteByItemID removes the status row. Absent rows are tolerated, the item
// is unclassified either way.
func (r *SQLiteRepository) DeleteByItemID(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM statuses WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) ReplaceItemID(ctx context.Context, oldID, newID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE statuses SET item_id = ? WHERE item_id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to replace status item id: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM statuses`)
	if err != nil {
		return fmt.Errorf("failed to clear statuses: %w", dbx.WrapStorageErr(err))
	}
	return nil
}
