package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"secrets/internal/domain"
	"secrets/internal/logging"
)

// DefaultSessionTTL is the lifetime of a session when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionManager turns a verified user id into an opaque token and resolves
// tokens back to users. Only the user id is bound to a token, so changes to
// the user record are visible on the next resolution.
type SessionManager struct {
	sessions domain.SessionRepository
	users    domain.UserRepository
	ttl      time.Duration
	sliding  bool
	now      func() time.Time
	log      logging.Logger
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithTTL sets the session lifetime. Zero keeps sessions until logout.
func WithTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) { m.ttl = ttl }
}

// WithSlidingExpiry extends a session by the TTL each time it is resolved.
func WithSlidingExpiry(on bool) SessionOption {
	return func(m *SessionManager) { m.sliding = on }
}

// WithLogger sets the logger used for background cleanup failures.
func WithLogger(log logging.Logger) SessionOption {
	return func(m *SessionManager) { m.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager creates a session manager.
func NewSessionManager(sessions domain.SessionRepository, users domain.UserRepository, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		sessions: sessions,
		users:    users,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
		log:      logging.Discard(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// TTL returns the configured lifetime; zero means until logout.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Sliding reports whether each resolution extends the session, in which case
// transports should re-issue whatever carries the token.
func (m *SessionManager) Sliding() bool {
	return m.sliding && m.ttl > 0
}

// Establish mints a new token bound to userID.
func (m *SessionManager) Establish(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("establish session: empty user id")
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	now := m.now().UTC()
	s := &domain.Session{Token: token, UserID: userID, CreatedAt: now}
	if m.ttl > 0 {
		s.ExpiresAt = now.Add(m.ttl)
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the user bound to token. A missing, expired or orphaned
// session yields (nil, nil); errors are reserved for storage failures.
// The returned user never carries the credential representation.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}

	s, err := m.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}

	now := m.now()
	if s.Expired(now) {
		m.discard(ctx, token, "expired")
		return nil, nil
	}

	u, err := m.users.GetByID(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		m.discard(ctx, token, "orphaned")
		return nil, nil
	}

	if m.sliding && m.ttl > 0 {
		if err := m.sessions.Touch(ctx, token, now.UTC().Add(m.ttl)); err != nil {
			return nil, err
		}
	}

	out := *u
	out.Credential = ""
	return &out, nil
}

// discard drops a session that can no longer resolve. The caller is already
// treated as unauthenticated, so a failure is only logged.
func (m *SessionManager) discard(ctx context.Context, token, reason string) {
	if err := m.sessions.Delete(ctx, token); err != nil {
		m.log.Warn(ctx, "session cleanup failed", "reason", reason, "error", err)
	}
}

// Destroy invalidates token. Destroying an unknown token is not an error.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.sessions.Delete(ctx, token)
}

// Sweep removes expired sessions.
func (m *SessionManager) Sweep(ctx context.Context) error {
	return m.sessions.DeleteExpired(ctx, m.now().UTC())
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
