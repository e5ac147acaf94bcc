package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/bounty-portal/internal/apperror"
	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
)

// maxCreateAttempts bounds how often Resolve regenerates a handle after
// losing a uniqueness race on users.name.
const maxCreateAttempts = 3

// IdentityOptions is the policy side of identity resolution.
type IdentityOptions struct {
	// AllowedDomains are lowercase domains without a leading "@".
	AllowedDomains      []string
	DefaultRole         string
	MaxUsernameAttempts int
}

// IdentityService maps an external identity (email + display name) onto a
// local user, creating one on first sight.
//
//	SyncHandler → SyncService → IdentityService → UserRepository
type IdentityService struct {
	users  repository.UserRepository
	opts   IdentityOptions
	logger *slog.Logger
}

func NewIdentityService(users repository.UserRepository, opts IdentityOptions, logger *slog.Logger) *IdentityService {
	return &IdentityService{users: users, opts: opts, logger: logger}
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	User    *model.User
	Created bool
}

// Resolve returns the user with this exact email, creating it if needed.
//
// FLOW:
//  1. empty email        → ErrValidation ("Email is required")
//  2. domain not allowed → ErrForbidden  ("Invalid email domain")
//  3. lookup by email    → found: Created=false
//  4. generate handle, insert → Created=true
//
// Steps 1 and 2 never touch the store.
//
// LOOKUP-THEN-CREATE RACES:
// Two concurrent first syncs for the same email both miss in step 3. The
// store's UNIQUE(email) makes one insert fail with ErrEmailExists; that
// caller re-reads and returns the winner's row. A handle taken between
// generation and insert (ErrNameExists) triggers a fresh generation.
func (s *IdentityService) Resolve(ctx context.Context, email, displayName string) (*Resolution, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperror.ValidationFailed("email", "Email is required")
	}
	if err := s.CheckDomain(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return &Resolution{User: user, Created: false}, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, s.internal("looking up user", err, email)
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		name, err := GenerateUsername(ctx, email, displayName, s.users.UserNameExists, s.opts.MaxUsernameAttempts)
		if err != nil {
			return nil, s.internal("generating username", err, email)
		}

		user := &model.User{
			Name:   name,
			Email:  email,
			Active: true,
			Role:   s.opts.DefaultRole,
		}

		err = s.users.CreateUser(ctx, user)
		switch {
		case err == nil:
			s.logger.Info("user created",
				slog.String("user_id", user.ID),
				slog.String("name", user.Name),
			)
			return &Resolution{User: user, Created: true}, nil

		case errors.Is(err, repository.ErrEmailExists):
			existing, err := s.users.GetUserByEmail(ctx, email)
			if err != nil {
				return nil, s.internal("re-reading user after email conflict", err, email)
			}
			s.logger.Info("user created concurrently, using existing row",
				slog.String("user_id", existing.ID),
			)
			return &Resolution{User: existing, Created: false}, nil

		case errors.Is(err, repository.ErrNameExists):
			s.logger.Warn("username taken during insert, regenerating",
				slog.String("name", name),
				slog.Int("attempt", attempt),
			)
			continue

		default:
			return nil, s.internal("creating user", err, email)
		}
	}

	return nil, s.internal("creating user", errors.New("username conflicts on every attempt"), email)
}

// CheckDomain accepts email iff the text after its last "@" matches an
// allowed domain, ignoring case.
func (s *IdentityService) CheckDomain(email string) error {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return apperror.Forbidden("Invalid email domain")
	}
	domain := email[at+1:]

	for _, allowed := range s.opts.AllowedDomains {
		if strings.EqualFold(domain, allowed) {
			return nil
		}
	}
	return apperror.Forbidden("Invalid email domain")
}

// internal logs the full cause and returns an error whose message is safe
// to show a client.
func (s *IdentityService) internal(op string, cause error, email string) error {
	s.logger.Error("identity resolution failed",
		slog.String("op", op),
		slog.String("email", email),
		slog.String("error", cause.Error()),
	)
	return apperror.Internal("Internal server error", cause)
}
