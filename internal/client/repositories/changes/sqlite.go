package changes

import (
	"context"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/client/models"
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

// Append inserts the change and fills in its assigned sequence ID. The
// insert itself is atomic; callers must not assume atomicity with any store
// write that preceded it.
func (r *SQLiteRepository) Append(ctx context.Context, change *models.PendingChange) error {
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}
	if change.State == "" {
		change.State = models.ChangeStatePending
	}

	query := `INSERT INTO pending_changes (op, kind, target_id, payload, state, last_error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		string(change.Op), string(change.Kind), change.TargetID, []byte(change.Payload),
		change.State, change.LastError, dbx.TimeToDB(change.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append pending change: %w", dbx.WrapStorageErr(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read change id: %w", dbx.WrapStorageErr(err))
	}
	change.ID = id
	return nil
}

func (r *SQLiteRepository) GetAllPending(ctx context.Context) ([]*models.PendingChange, error) {
	return r.query(ctx, `SELECT id, op, kind, target_id, payload, state, last_error, created_at
			FROM pending_changes WHERE state = ? ORDER BY created_at, id`, models.ChangeStatePending)
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.PendingChange, error) {
	return r.query(ctx, `SELECT id, op, kind, target_id, payload, state, last_error, created_at
			FROM pending_changes ORDER BY created_at, id`)
}

func (r *SQLiteRepository) GetByTargetID(ctx context.Context, targetID string) ([]*models.PendingChange, error) {
	return r.query(ctx, `SELECT id, op, kind, target_id, payload, state, last_error, created_at
			FROM pending_changes WHERE target_id = ? ORDER BY created_at, id`, targetID)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.PendingChange, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending changes: %w", dbx.WrapStorageErr(err))
	}
	defer rows.Close()

	var result []*models.PendingChange
	for rows.Next() {
		c := &models.PendingChange{}
		var op, kind, created string
		var payload []byte
		if err := rows.Scan(&c.ID, &op, &kind, &c.TargetID, &payload, &c.State, &c.LastError, &created); err != nil {
			return nil, err
		}
		c.Op = models.Op(op)
		c.Kind = models.Kind(kind)
		c.Payload = payload
		t, err := dbx.TimeFromDB(created)
		if err != nil {
			return nil, err
		}
		c.CreatedAt = t
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapStorageErr(err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending change: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_changes SET state = ?, last_error = ? WHERE id = ?`,
		models.ChangeStateFailed, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark change failed: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) RetargetID(ctx context.Context, oldID, newID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_changes SET target_id = ? WHERE target_id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("failed to retarget pending changes: %w", dbx.WrapStorageErr(err))
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_changes WHERE state = ?`, models.ChangeStatePending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", dbx.WrapStorageErr(err))
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_changes`)
	if err != nil {
		return fmt.Errorf("failed to clear pending changes: %w", dbx.WrapStorageErr(err))
	}
	return nil
}
