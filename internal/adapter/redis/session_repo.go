// Package redis stores sessions in Redis so several server instances can
// share them. Expiry is delegated to key TTLs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"secrets/internal/domain"
)

const defaultPrefix = "secrets:session:"

type record struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// SessionRepo implements domain.SessionRepository on a Redis client.
type SessionRepo struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewSessionRepo returns a repository using rdb. An empty prefix selects the
// default key namespace.
func NewSessionRepo(rdb redis.UniversalClient, prefix string) *SessionRepo {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SessionRepo{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *SessionRepo) key(token string) string {
	return r.prefix + token
}

// ttl converts an absolute expiry to a key TTL. Zero means no expiry; a
// negative result means the session is already gone.
func (r *SessionRepo) ttl(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	d := expiresAt.Sub(r.now())
	if d <= 0 {
		return -1
	}
	return d
}

func (r *SessionRepo) write(ctx context.Context, token string, rec record, nx bool) (bool, error) {
	ttl := r.ttl(rec.ExpiresAt)
	if ttl < 0 {
		return true, nil
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	if nx {
		return r.rdb.SetNX(ctx, r.key(token), blob, ttl).Result()
	}
	return true, r.rdb.Set(ctx, r.key(token), blob, ttl).Err()
}

// Create stores s. A token collision reports domain.ErrDuplicateIdentifier.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	ok, err := r.write(ctx, s.Token, record{UserID: s.UserID, CreatedAt: s.CreatedAt, ExpiresAt: s.ExpiresAt}, true)
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateIdentifier
	}
	return nil
}

func (r *SessionRepo) load(ctx context.Context, token string) (*record, error) {
	blob, err := r.rdb.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &rec, nil
}

// GetByToken returns the session or (nil, nil) when the key is absent.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	rec, err := r.load(ctx, token)
	if err != nil || rec == nil {
		return nil, err
	}
	return &domain.Session{Token: token, UserID: rec.UserID, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

// Touch rewrites the stored expiry and the key TTL. Missing sessions are
// left alone.
func (r *SessionRepo) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	rec, err := r.load(ctx, token)
	if err != nil || rec == nil {
		return err
	}
	if r.ttl(expiresAt) < 0 {
		return r.Delete(ctx, token)
	}
	rec.ExpiresAt = expiresAt
	_, err = r.write(ctx, token, *rec, false)
	return err
}

// Delete removes a session. Deleting an absent token is not an error.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, r.key(token)).Err()
}

// DeleteExpired is a no-op: Redis evicts expired keys on its own.
func (r *SessionRepo) DeleteExpired(context.Context, time.Time) error {
	return nil
}

// Ping checks connectivity.
func (r *SessionRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

var _ domain.SessionRepository = (*SessionRepo)(nil)
