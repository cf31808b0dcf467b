// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSecret indicates an empty or malformed secret at registration.
	ErrInvalidSecret = errors.New("invalid secret")
	// ErrDuplicateIdentifier indicates that a unique key (identifier or
	// federated id) is already taken.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// User represents one registrant.
//
// Credential holds the codec-specific stored representation of the secret and
// must never leave the server. It is empty for users provisioned through a
// federated provider.
type User struct {
	ID          string
	Identifier  string
	Credential  string
	FederatedID string
	DisplayName string
	PrivateNote string
	CreatedAt   time.Time
}

// HasNote reports whether the user submitted a private note.
func (u *User) HasNote() bool {
	return u.PrivateNote != ""
}

// Session binds an opaque token to a user id. A zero ExpiresAt means the
// session lives until logout.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// FederatedIdentity is an identity asserted by an external provider.
type FederatedIdentity struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
}

// FederatedID returns the stable key used to look the identity up locally.
func (f FederatedIdentity) FederatedID() string {
	return f.Provider + ":" + f.Subject
}

// ProviderError is returned by provider integrations when the callback carries
// a denial or fails validation. Detail is for server logs only.
type ProviderError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// UserRepository defines the port for user persistence operations.
//
// Create must report ErrDuplicateIdentifier when the identifier or federated
// id collides with an existing record; lookups return (nil, nil) on a miss.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByFederatedID(ctx context.Context, federatedID string) (*User, error)
	UpdateCredential(ctx context.Context, id, credential string) error
	UpdatePrivateNote(ctx context.Context, id, note string) error
	ListWithPrivateNote(ctx context.Context) ([]User, error)
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Touch(ctx context.Context, token string, expiresAt time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) error
}
