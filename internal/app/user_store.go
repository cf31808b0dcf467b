package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"secrets/internal/domain"
)

// ErrInvalidIdentifier indicates an empty login identifier.
var ErrInvalidIdentifier = errors.New("identifier is required")

// UserStore is the persistence boundary for user records. It assigns ids and
// owns the find-or-create contract used by federated login.
type UserStore struct {
	repo domain.UserRepository
	now  func() time.Time
}

// NewUserStore wraps a user repository.
func NewUserStore(repo domain.UserRepository) *UserStore {
	return &UserStore{repo: repo, now: time.Now}
}

// Create registers a local user. The uniqueness of identifier is enforced by
// the repository, which reports domain.ErrDuplicateIdentifier.
func (s *UserStore) Create(ctx context.Context, identifier, representation string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrInvalidIdentifier
	}
	return s.repo.Create(ctx, &domain.User{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Credential: representation,
		CreatedAt:  s.now().UTC(),
	})
}

// FindByID returns the user with id, or nil.
func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

// FindByIdentifier returns the user registered under identifier, or nil.
func (s *UserStore) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	return s.repo.GetByIdentifier(ctx, strings.TrimSpace(identifier))
}

// FindByFederatedID returns the user provisioned for federatedID, or nil.
func (s *UserStore) FindByFederatedID(ctx context.Context, federatedID string) (*domain.User, error) {
	return s.repo.GetByFederatedID(ctx, federatedID)
}

// FindOrCreate returns the single record for the federated identity,
// creating it on first sight. An existing record is returned unmodified.
//
// Concurrent calls for the same identity converge: the loser of the insert
// race observes domain.ErrDuplicateIdentifier and re-reads the winner's row.
func (s *UserStore) FindOrCreate(ctx context.Context, ident domain.FederatedIdentity) (*domain.User, error) {
	fid := ident.FederatedID()
	if ident.Provider == "" || ident.Subject == "" {
		return nil, fmt.Errorf("find or create: incomplete federated identity %q", fid)
	}

	u, err := s.repo.GetByFederatedID(ctx, fid)
	if err != nil {
		return nil, fmt.Errorf("find or create: %w", err)
	}
	if u != nil {
		return u, nil
	}

	u, err = s.repo.Create(ctx, &domain.User{
		ID:          uuid.NewString(),
		FederatedID: fid,
		DisplayName: ident.DisplayName,
		CreatedAt:   s.now().UTC(),
	})
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrDuplicateIdentifier) {
		return nil, fmt.Errorf("find or create: %w", err)
	}

	u, err = s.repo.GetByFederatedID(ctx, fid)
	if err != nil {
		return nil, fmt.Errorf("find or create: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("find or create: %q conflicted but was not found", fid)
	}
	return u, nil
}

// UpdateSecret replaces the stored credential representation.
func (s *UserStore) UpdateSecret(ctx context.Context, userID, representation string) error {
	return s.repo.UpdateCredential(ctx, userID, representation)
}

// UpdatePrivateNote stores the user's note.
func (s *UserStore) UpdatePrivateNote(ctx context.Context, userID, note string) error {
	return s.repo.UpdatePrivateNote(ctx, userID, note)
}

// ListUsersWithPrivateNote returns every user that submitted a note.
func (s *UserStore) ListUsersWithPrivateNote(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListWithPrivateNote(ctx)
}
