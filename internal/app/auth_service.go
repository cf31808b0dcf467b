// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"

	"secrets/internal/credential"
	"secrets/internal/domain"
	"secrets/internal/logging"
)

// ErrInvalidCredentials is returned for every failed login, whether the
// identifier is unknown or the secret is wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// timingDummy is verified against when the identifier is unknown so that
// both failure modes pay the same verification cost.
const timingDummy = "timing-equaliser-not-a-secret"

type rehasher interface {
	NeedsRehash(representation string) bool
}

// AuthService handles local registration, login and logout.
type AuthService struct {
	users    *UserStore
	sessions *SessionManager
	codec    credential.Codec
	dummy    string
	log      logging.Logger
}

// NewAuthService creates a new authentication service using codec for every
// local credential.
func NewAuthService(users *UserStore, sessions *SessionManager, codec credential.Codec, log logging.Logger) *AuthService {
	dummy, _ := codec.Store(timingDummy)
	return &AuthService{
		users:    users,
		sessions: sessions,
		codec:    codec,
		dummy:    dummy,
		log:      log,
	}
}

// Register creates a local user and establishes a session for it. The user
// record is persisted before the session is minted.
func (s *AuthService) Register(ctx context.Context, identifier, secret string) (string, *domain.User, error) {
	rep, err := s.codec.Store(secret)
	if err != nil {
		return "", nil, err
	}

	u, err := s.users.Create(ctx, identifier, rep)
	if err != nil {
		return "", nil, err
	}

	token, err := s.sessions.Establish(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, sanitize(u), nil
}

// Login verifies secret against the stored representation and creates a
// session.
func (s *AuthService) Login(ctx context.Context, identifier, secret string) (string, error) {
	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}

	if u == nil || u.Credential == "" {
		_ = s.codec.Verify(secret, s.dummy)
		return "", ErrInvalidCredentials
	}
	if !s.codec.Verify(secret, u.Credential) {
		return "", ErrInvalidCredentials
	}

	if r, ok := s.codec.(rehasher); ok && r.NeedsRehash(u.Credential) {
		if err := s.ChangeSecret(ctx, u.ID, secret); err != nil {
			s.log.Warn(ctx, "credential rehash failed", "user_id", u.ID, "error", err)
		}
	}

	return s.sessions.Establish(ctx, u.ID)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// ChangeSecret re-encodes secret with the deployment codec and stores it.
// Existing sessions stay valid.
func (s *AuthService) ChangeSecret(ctx context.Context, userID, secret string) error {
	rep, err := s.codec.Store(secret)
	if err != nil {
		return err
	}
	if err := s.users.UpdateSecret(ctx, userID, rep); err != nil {
		return fmt.Errorf("change secret: %w", err)
	}
	return nil
}

func sanitize(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	out := *u
	out.Credential = ""
	return &out
}
