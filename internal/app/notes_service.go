package app

import (
	"context"
	"errors"
	"strings"

	"secrets/internal/domain"
)

// ErrEmptyNote indicates a blank note submission.
var ErrEmptyNote = errors.New("note is empty")

// NotesService manages the protected notes users submit.
type NotesService struct {
	users     *UserStore
	aggregate bool
}

// NewNotesService creates a NotesService. With aggregate set every
// authenticated user sees every note; otherwise each user sees only their own.
func NewNotesService(users *UserStore, aggregate bool) *NotesService {
	return &NotesService{users: users, aggregate: aggregate}
}

// Submit stores note for the user.
func (s *NotesService) Submit(ctx context.Context, userID, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrEmptyNote
	}
	return s.users.UpdatePrivateNote(ctx, userID, note)
}

// Visible returns the users whose notes viewer may see.
func (s *NotesService) Visible(ctx context.Context, viewer *domain.User) ([]domain.User, error) {
	if s.aggregate {
		users, err := s.users.ListUsersWithPrivateNote(ctx)
		if err != nil {
			return nil, err
		}
		for i := range users {
			users[i].Credential = ""
		}
		return users, nil
	}

	u, err := s.users.FindByID(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.HasNote() {
		return nil, nil
	}
	return []domain.User{*sanitize(u)}, nil
}
