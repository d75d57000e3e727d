package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smoothie-orders/internal/form"

	"github.com/jmoiron/sqlx"
)

// Repository persists form state per session key with a time-to-live.
type Repository struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// NewRepository creates a new Repository whose sessions expire ttl after their last save.
func NewRepository(db *sqlx.DB, ttl time.Duration) *Repository {
	return &Repository{db: db, ttl: ttl, now: time.Now}
}

// Load returns the stored state for key. Missing or expired sessions yield an empty state.
func (r *Repository) Load(ctx context.Context, key string) (form.State, error) {
	var raw string
	query := r.db.Rebind("SELECT state FROM form_sessions WHERE session_key = ? AND expires_at > ?")
	err := r.db.GetContext(ctx, &raw, query, key, r.now().Unix())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return form.State{}, nil
		}
		return form.State{}, fmt.Errorf("failed to load session %s: %w", key, err)
	}

	var st form.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return form.State{}, fmt.Errorf("failed to unmarshal session %s: %w", key, err)
	}
	return st, nil
}

// Save stores st under key and extends its expiry.
func (r *Repository) Save(ctx context.Context, key string, st form.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	now := r.now()
	query := r.db.Rebind(`INSERT INTO form_sessions (session_key, state, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_key) DO UPDATE SET state = excluded.state, expires_at = excluded.expires_at, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, key, string(data), now.Add(r.ttl).Unix(), now.Unix()); err != nil {
		return fmt.Errorf("failed to save session %s: %w", key, err)
	}
	return nil
}

// Delete removes a session
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM form_sessions WHERE session_key = ?"), key); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}
	return nil
}

// CleanupExpired removes all expired sessions and reports how many were removed.
func (r *Repository) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM form_sessions WHERE expires_at <= ?"), r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return res.RowsAffected()
}
