package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/casefiles/internal/model"
)

// MaxAttemptRows caps how far back the admin access log reaches.
const MaxAttemptRows = 200

// AttemptRepo is the append-only store behind the access log.  There is no
// update or delete path.
type AttemptRepo struct{ db *sql.DB }

func NewAttemptRepo(db *sql.DB) *AttemptRepo { return &AttemptRepo{db: db} }

// Insert appends one attempt.  ID and CreatedAt are filled in when empty.
func (r *AttemptRepo) Insert(ctx context.Context, a *model.AccessAttempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	info, err := json.Marshal(a.DeviceInfo)
	if err != nil {
		return fmt.Errorf("marshal device info: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO access_attempts (id, password_tried, success, user_agent, device_info, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.PasswordTried, a.Success, a.UserAgent, string(info), a.CreatedAt)
	return err
}

// ListRecent returns attempts most-recent-first.  Only the newest
// MaxAttemptRows rows are reachable: offset+limit is clipped to that window.
func (r *AttemptRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.AccessAttempt, error) {
	if offset < 0 {
		offset = 0
	}
	if offset >= MaxAttemptRows {
		return []model.AccessAttempt{}, nil
	}
	if limit <= 0 || offset+limit > MaxAttemptRows {
		limit = MaxAttemptRows - offset
	}
	const q = `SELECT id, password_tried, success, user_agent, device_info, created_at
	           FROM access_attempts ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AccessAttempt, 0, limit)
	for rows.Next() {
		var (
			a    model.AccessAttempt
			info []byte
		)
		if err := rows.Scan(&a.ID, &a.PasswordTried, &a.Success, &a.UserAgent, &info, &a.CreatedAt); err != nil {
			return nil, err
		}
		// A malformed fingerprint leaves DeviceInfo zeroed rather than hiding the row.
		_ = json.Unmarshal(info, &a.DeviceInfo)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountRecent returns the number of rows visible through ListRecent.
func (r *AttemptRepo) CountRecent(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_attempts").Scan(&n); err != nil {
		return 0, err
	}
	if n > MaxAttemptRows {
		n = MaxAttemptRows
	}
	return n, nil
}
