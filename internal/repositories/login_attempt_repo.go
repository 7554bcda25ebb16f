package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/jackc/pgx/v5"
)

// LoginAttemptRepository stores serialized attempt records in Postgres
type LoginAttemptRepository struct {
	db  *database.DB
	ttl time.Duration
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository.
// A positive ttl stamps each write with an expiry picked up by DeleteExpired.
func NewLoginAttemptRepository(db *database.DB, ttl time.Duration) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db, ttl: ttl}
}

// Get returns the record stored under key, ignoring rows past their expiry
func (r *LoginAttemptRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `
		SELECT value FROM login_attempt_records
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	`

	var value string
	err := r.db.Pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set upserts the record stored under key
func (r *LoginAttemptRepository) Set(ctx context.Context, key, value string) error {
	return r.SetRetained(ctx, key, value, time.Time{})
}

// SetRetained upserts like Set with an expiry no earlier than keepUntil
func (r *LoginAttemptRepository) SetRetained(ctx context.Context, key, value string, keepUntil time.Time) error {
	query := `
		INSERT INTO login_attempt_records (key, value, updated_at, expires_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
	`

	_, err := r.db.Pool.Exec(ctx, query, key, value, retainedExpiry(time.Now(), r.ttl, keepUntil))
	return err
}

// Remove deletes the record stored under key
func (r *LoginAttemptRepository) Remove(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempt_records WHERE key = $1`, key)
	return err
}

// DeleteExpired removes records past their expiry
func (r *LoginAttemptRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM login_attempt_records WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *LoginAttemptRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
