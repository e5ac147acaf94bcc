// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in sub-packages (sqlite, postgres).
//
// Services never import an implementation; server.go picks one at startup
// and passes it in as these interfaces.
package repository

import (
	"context"
	"errors"

	"github.com/sakif/bounty-portal/internal/model"
)

// Unique-constraint failures on user insert. The identity resolver uses
// these to recover from lookup-then-create races.
var (
	ErrEmailExists = errors.New("email already exists")
	ErrNameExists  = errors.New("username already exists")
)

type UserRepository interface {
	// GetUserByEmail returns apperror.ErrNotFound when no user has exactly this email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UserNameExists(ctx context.Context, name string) (bool, error)
	// CreateUser fills in ID, UUID and CreatedAt. Returns ErrEmailExists or
	// ErrNameExists on a uniqueness violation.
	CreateUser(ctx context.Context, user *model.User) error
}

// TeamRepository answers the two halves of the membership check.
type TeamRepository interface {
	// TeamIDsForMember returns at most limit ids of teams in vocabulary
	// whose members include userID.
	TeamIDsForMember(ctx context.Context, vocabulary, userID string, limit int) ([]string, error)
	// ProjectIDsForTeams returns at most limit ids of projects of
	// projectType that reference any of teamIDs.
	ProjectIDsForTeams(ctx context.Context, projectType string, teamIDs []string, limit int) ([]string, error)
}

type ProjectRepository interface {
	// ListPublishedProjects returns published projects with tracks and
	// milestones loaded, in creation order.
	ListPublishedProjects(ctx context.Context, projectType string) ([]model.Project, error)
	CountPublishedProjects(ctx context.Context, projectType string) (int, error)
}

// ContentRepository writes content. Only the seeder uses it.
type ContentRepository interface {
	CreateTeam(ctx context.Context, team *model.Team) error
	CreateProject(ctx context.Context, project *model.Project) error
}

// Store is everything a backend provides.
type Store interface {
	UserRepository
	TeamRepository
	ProjectRepository
	ContentRepository
	Ping(ctx context.Context) error
	Close() error
}
