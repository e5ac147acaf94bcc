package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/sakif/bounty-portal/internal/apperror"
	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, uuid, name, email, active, role, created_at`

// CreateUser inserts a new user, assigning ID, UUID and CreatedAt.
//
// UNIQUE VIOLATIONS:
// SQLite reports "UNIQUE constraint failed: users.email" (or users.name).
// We translate those into repository.ErrEmailExists / ErrNameExists so the
// service can react (re-fetch, or pick another handle) without knowing
// anything about SQLite error text.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.UUID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.UUID,
		user.Name,
		user.Email,
		user.Active,
		user.Role,
		user.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.email"):
			return repository.ErrEmailExists
		case isUniqueViolation(err, "users.name"):
			return repository.ErrNameExists
		}
		return fmt.Errorf("sqlite: inserting user (name=%s): %w", user.Name, err)
	}

	return nil
}

// GetUserByEmail looks a user up by exact (case-sensitive) email.
// Returns apperror.ErrNotFound if nobody has that email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UserNameExists reports whether any user already holds name.
func (db *DB) UserNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE name = ?)`, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", name, err)
	}
	return exists, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.UUID,
		&u.Name,
		&u.Email,
		&u.Active,
		&u.Role,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// isUniqueViolation matches SQLite's constraint message for one column,
// e.g. "UNIQUE constraint failed: users.email".
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
