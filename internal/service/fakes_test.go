package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/bounty-portal/internal/apperror"
	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written in-memory stand-ins for the repository interfaces. Each one
// counts calls and can be told to fail, so tests can assert both results
// and how much store traffic an operation caused.

type fakeUserRepo struct {
	byEmail map[string]*model.User
	names   map[string]bool
	nextID  int

	lookups  int
	creates  int
	getErr   error
	existErr error
	// createErrs are returned by successive CreateUser calls before it
	// starts succeeding. onCreateErr runs when one is returned.
	createErrs  []error
	onCreateErr func()
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*model.User{}, names: map[string]bool{}}
}

func (f *fakeUserRepo) add(name, email string) *model.User {
	f.nextID++
	u := &model.User{
		ID:     fmt.Sprintf("user-%d", f.nextID),
		UUID:   fmt.Sprintf("uuid-%d", f.nextID),
		Name:   name,
		Email:  email,
		Active: true,
		Role:   "authenticated",
	}
	f.byEmail[email] = u
	f.names[name] = true
	return u
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) UserNameExists(_ context.Context, name string) (bool, error) {
	if f.existErr != nil {
		return false, f.existErr
	}
	return f.names[name], nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if f.onCreateErr != nil {
			f.onCreateErr()
		}
		return err
	}
	stored := f.add(user.Name, user.Email)
	user.ID, user.UUID = stored.ID, stored.UUID
	stored.Role, stored.Active = user.Role, user.Active
	return nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

type fakeTeamRepo struct {
	teamsByUser    map[string][]string
	projectsByTeam map[string][]string

	teamCalls    int
	projectCalls int
	lastLimits   []int
	err          error
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teamsByUser: map[string][]string{}, projectsByTeam: map[string][]string{}}
}

func (f *fakeTeamRepo) TeamIDsForMember(_ context.Context, _ string, userID string, limit int) ([]string, error) {
	f.teamCalls++
	f.lastLimits = append(f.lastLimits, limit)
	if f.err != nil {
		return nil, f.err
	}
	ids := f.teamsByUser[userID]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeTeamRepo) ProjectIDsForTeams(_ context.Context, _ string, teamIDs []string, limit int) ([]string, error) {
	f.projectCalls++
	f.lastLimits = append(f.lastLimits, limit)
	var ids []string
	for _, t := range teamIDs {
		ids = append(ids, f.projectsByTeam[t]...)
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

var _ repository.TeamRepository = (*fakeTeamRepo)(nil)

type fakeProjectRepo struct {
	projects []model.Project
	listErr  error
	countErr error
}

func (f *fakeProjectRepo) ListPublishedProjects(context.Context, string) ([]model.Project, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.projects, nil
}

func (f *fakeProjectRepo) CountPublishedProjects(context.Context, string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.projects), nil
}

var _ repository.ProjectRepository = (*fakeProjectRepo)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
