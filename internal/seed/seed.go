// Package seed loads users, teams and projects from a JSON fixture. It is
// how a fresh install gets content to sync against and export.
//
// FIXTURE SHAPE:
//
//	{
//	  "users":    [{"email": "jane@qed42.com", "name": "Jane Doe"}],
//	  "teams":    [{"name": "Red", "members": ["jane@qed42.com"]}],
//	  "projects": [{"title": "Search", "published": true, "teams": ["Red"],
//	                "tracks": [[{"name": "Design", "details": "Wireframes"}]]}]
//	}
//
// Users go through the identity resolver, so the email domain policy and
// handle generation apply exactly as for a live sync.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/bounty-portal/internal/apperror"
	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
	"github.com/sakif/bounty-portal/internal/service"
)

type Fixture struct {
	Users    []UserFixture    `json:"users"`
	Teams    []TeamFixture    `json:"teams"`
	Projects []ProjectFixture `json:"projects"`
}

type UserFixture struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type TeamFixture struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type ProjectFixture struct {
	Title string `json:"title"`
	// Published defaults to true when omitted.
	Published *bool                `json:"published"`
	Teams     []string             `json:"teams"`
	Tracks    [][]MilestoneFixture `json:"tracks"`
}

type MilestoneFixture struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

// Decode reads a fixture, rejecting unknown fields so typos fail loudly.
func Decode(r io.Reader) (*Fixture, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: decoding fixture: %w", err)
	}
	return &f, nil
}

// Summary counts what Apply wrote.
type Summary struct {
	UsersCreated  int
	UsersExisting int
	Teams         int
	Projects      int
}

// Resolver is the part of service.IdentityService the seeder needs.
type Resolver interface {
	Resolve(ctx context.Context, email, displayName string) (*service.Resolution, error)
}

// Store is what the seeder writes to and looks members up in.
type Store interface {
	repository.ContentRepository
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type Seeder struct {
	identity    Resolver
	store       Store
	vocabulary  string
	projectType string
	logger      *slog.Logger
}

func NewSeeder(identity Resolver, store Store, vocabulary, projectType string, logger *slog.Logger) *Seeder {
	return &Seeder{
		identity:    identity,
		store:       store,
		vocabulary:  vocabulary,
		projectType: projectType,
		logger:      logger,
	}
}

// Apply writes the fixture in dependency order: users, teams, projects.
// It stops at the first error; rows written before it stay.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (*Summary, error) {
	var sum Summary

	userIDs := make(map[string]string, len(f.Users))
	for _, u := range f.Users {
		res, err := s.identity.Resolve(ctx, u.Email, u.Name)
		if err != nil {
			return &sum, fmt.Errorf("seed: user %q: %w", u.Email, err)
		}
		userIDs[u.Email] = res.User.ID
		if res.Created {
			sum.UsersCreated++
		} else {
			sum.UsersExisting++
		}
		s.logger.Debug("seeded user",
			slog.String("email", u.Email),
			slog.String("name", res.User.Name),
			slog.Bool("created", res.Created),
		)
	}

	teamIDs := make(map[string]string, len(f.Teams))
	for _, tf := range f.Teams {
		team := &model.Team{Vocabulary: s.vocabulary, Name: tf.Name}
		for _, email := range tf.Members {
			id, err := s.memberID(ctx, userIDs, email)
			if err != nil {
				return &sum, fmt.Errorf("seed: team %q: %w", tf.Name, err)
			}
			team.MemberIDs = append(team.MemberIDs, id)
		}
		if err := s.store.CreateTeam(ctx, team); err != nil {
			return &sum, fmt.Errorf("seed: team %q: %w", tf.Name, err)
		}
		teamIDs[tf.Name] = team.ID
		sum.Teams++
	}

	for _, pf := range f.Projects {
		project := &model.Project{
			Type:      s.projectType,
			Title:     pf.Title,
			Published: pf.Published == nil || *pf.Published,
		}
		for _, name := range pf.Teams {
			id, ok := teamIDs[name]
			if !ok {
				return &sum, fmt.Errorf("seed: project %q: unknown team %q", pf.Title, name)
			}
			project.TeamIDs = append(project.TeamIDs, id)
		}
		for _, milestones := range pf.Tracks {
			track := model.Track{}
			for _, m := range milestones {
				track.Plan = append(track.Plan, model.Milestone{Name: m.Name, Details: m.Details})
			}
			project.Tracks = append(project.Tracks, track)
		}
		if err := s.store.CreateProject(ctx, project); err != nil {
			return &sum, fmt.Errorf("seed: project %q: %w", pf.Title, err)
		}
		sum.Projects++
	}

	s.logger.Info("seed applied",
		slog.Int("users_created", sum.UsersCreated),
		slog.Int("users_existing", sum.UsersExisting),
		slog.Int("teams", sum.Teams),
		slog.Int("projects", sum.Projects),
	)
	return &sum, nil
}

// memberID finds a member among this fixture's users, then in the store.
func (s *Seeder) memberID(ctx context.Context, seeded map[string]string, email string) (string, error) {
	if id, ok := seeded[email]; ok {
		return id, nil
	}
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", fmt.Errorf("unknown member %q", email)
		}
		return "", err
	}
	return u.ID, nil
}
