package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"secrets/internal/domain"
)

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		s.Token, s.UserID, nullTime(s.ExpiresAt), s.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateIdentifier
	}
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var (
		s       domain.Session
		expires sql.NullTime
	)
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &expires, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		s.ExpiresAt = expires.Time
	}
	return &s, nil
}

// Touch moves a session's expiry.
func (r *SessionRepo) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx, "UPDATE sessions SET expires_at = $2 WHERE token = $1", token, nullTime(expiresAt))
	return err
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all sessions expired at now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1", now)
	return err
}
