package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"secrets/internal/domain"
)

const userColumns = "id, identifier, credential, federated_id, display_name, private_note, created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var (
		u                                    domain.User
		identifier, cred, fedID, privateNote sql.NullString
	)
	if err := row.Scan(&u.ID, &identifier, &cred, &fedID, &u.DisplayName, &privateNote, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Identifier = identifier.String
	u.Credential = cred.String
	u.FederatedID = fedID.String
	u.PrivateNote = privateNote.String
	return &u, nil
}

// Create inserts u. Unique violations map to domain.ErrDuplicateIdentifier.
func (d *DB) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO users (id, identifier, credential, federated_id, display_name, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		u.ID, nullString(u.Identifier), nullString(u.Credential), nullString(u.FederatedID), u.DisplayName, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateIdentifier
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	out := *u
	return &out, nil
}

func (d *DB) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" = $1", arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return d.getOne(ctx, "id", id)
}

// GetByIdentifier retrieves a user by login identifier.
func (d *DB) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	return d.getOne(ctx, "identifier", identifier)
}

// GetByFederatedID retrieves a user by federated id.
func (d *DB) GetByFederatedID(ctx context.Context, federatedID string) (*domain.User, error) {
	return d.getOne(ctx, "federated_id", federatedID)
}

// UpdateCredential replaces the stored credential.
func (d *DB) UpdateCredential(ctx context.Context, id, credential string) error {
	return d.update(ctx, "UPDATE users SET credential = $2 WHERE id = $1", id, nullString(credential))
}

// UpdatePrivateNote replaces the user's note.
func (d *DB) UpdatePrivateNote(ctx context.Context, id, note string) error {
	return d.update(ctx, "UPDATE users SET private_note = $2 WHERE id = $1", id, nullString(note))
}

func (d *DB) update(ctx context.Context, stmt, id string, v any) error {
	res, err := d.sql.ExecContext(ctx, stmt, id, v)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListWithPrivateNote lists users with a note, oldest first.
func (d *DB) ListWithPrivateNote(ctx context.Context) ([]domain.User, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE private_note IS NOT NULL ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
