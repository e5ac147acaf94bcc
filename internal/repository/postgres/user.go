package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/sakif/bounty-portal/internal/apperror"
	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const (
	userColumns = `id, uuid, name, email, active, role, created_at`

	insertUserQuery    = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	userByEmailQuery   = `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	userNameExistQuery = `SELECT EXISTS (SELECT 1 FROM users WHERE name = $1)`
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// CreateUser inserts a new user, assigning ID, UUID and CreatedAt. Unique
// violations are told apart by constraint name.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.UUID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()

	_, err := db.pool.Exec(ctx, insertUserQuery,
		user.ID, user.UUID, user.Name, user.Email, user.Active, user.Role, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return repository.ErrEmailExists
			case "users_name_key":
				return repository.ErrNameExists
			}
		}
		return fmt.Errorf("postgres: inserting user (name=%s): %w", user.Name, err)
	}
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx, userByEmailQuery, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) UserNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := db.pool.QueryRow(ctx, userNameExistQuery, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: checking username %q: %w", name, err)
	}
	return exists, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.Active, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
