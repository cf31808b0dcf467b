// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"secrets/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	byIdent  map[string]string
	byFed    map[string]string
	sessions map[string]domain.Session
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		users:    make(map[string]*domain.User),
		byIdent:  make(map[string]string),
		byFed:    make(map[string]string),
		sessions: make(map[string]domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- UserRepository ---

// Create stores u. Identifier and federated id are unique when non-empty.
func (db *DB) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if u.Identifier != "" {
		if _, ok := db.byIdent[u.Identifier]; ok {
			return nil, domain.ErrDuplicateIdentifier
		}
	}
	if u.FederatedID != "" {
		if _, ok := db.byFed[u.FederatedID]; ok {
			return nil, domain.ErrDuplicateIdentifier
		}
	}
	if _, ok := db.users[u.ID]; ok {
		return nil, domain.ErrDuplicateIdentifier
	}

	stored := *u
	db.users[u.ID] = &stored
	if u.Identifier != "" {
		db.byIdent[u.Identifier] = u.ID
	}
	if u.FederatedID != "" {
		db.byFed[u.FederatedID] = u.ID
	}
	out := stored
	return &out, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.copyOf(id), nil
}

// GetByIdentifier retrieves a user by login identifier.
func (db *DB) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.copyOf(db.byIdent[identifier]), nil
}

// GetByFederatedID retrieves a user by federated id.
func (db *DB) GetByFederatedID(ctx context.Context, federatedID string) (*domain.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.copyOf(db.byFed[federatedID]), nil
}

// UpdateCredential replaces a user's stored credential.
func (db *DB) UpdateCredential(ctx context.Context, id, credential string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Credential = credential
	return nil
}

// UpdatePrivateNote replaces a user's note.
func (db *DB) UpdatePrivateNote(ctx context.Context, id, note string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PrivateNote = note
	return nil
}

// ListWithPrivateNote lists users with a note, oldest first.
func (db *DB) ListWithPrivateNote(ctx context.Context) ([]domain.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var out []domain.User
	for _, u := range db.users {
		if u.HasNote() {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (db *DB) copyOf(id string) *domain.User {
	u, ok := db.users[id]
	if !ok {
		return nil
	}
	out := *u
	return &out
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.sessions[s.Token]; ok {
		return domain.ErrDuplicateIdentifier
	}
	r.db.sessions[s.Token] = *s
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.sessions[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Touch moves a session's expiry.
func (r *SessionRepo) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		s.ExpiresAt = expiresAt
		r.db.sessions[token] = s
	}
	return nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all sessions expired at now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, v := range r.db.sessions {
		if v.Expired(now) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
