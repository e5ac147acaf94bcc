package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bounty-portal/internal/apperror"
	"github.com/sakif/bounty-portal/internal/repository/sqlite"
	"github.com/sakif/bounty-portal/internal/service"
)

const fixtureJSON = `{
  "users": [
    {"email": "jane@qed42.com", "name": "Jane Doe"},
    {"email": "sam@qed42.com"}
  ],
  "teams": [
    {"name": "Red", "members": ["jane@qed42.com"]},
    {"name": "Blue", "members": ["sam@qed42.com", "jane@qed42.com"]}
  ],
  "projects": [
    {"title": "Search", "teams": ["Red"], "tracks": [
      [{"name": "Design", "details": "Wireframes"}, {"name": "Build"}],
      [{"details": "QA"}]
    ]},
    {"title": "Draft", "published": false, "teams": ["Blue"]}
  ]
}`

func newTestSeeder(t *testing.T) (*Seeder, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identity := service.NewIdentityService(db, service.IdentityOptions{
		AllowedDomains:      []string{"qed42.com"},
		DefaultRole:         "authenticated",
		MaxUsernameAttempts: 100,
	}, logger)
	return NewSeeder(identity, db, "project_team", "project", logger), db
}

func TestDecode(t *testing.T) {
	f, err := Decode(strings.NewReader(fixtureJSON))
	require.NoError(t, err)

	assert.Len(t, f.Users, 2)
	assert.Len(t, f.Teams, 2)
	require.Len(t, f.Projects, 2)
	assert.Nil(t, f.Projects[0].Published)
	require.NotNil(t, f.Projects[1].Published)
	assert.False(t, *f.Projects[1].Published)
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"userz": []}`))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	s, db := newTestSeeder(t)
	ctx := context.Background()

	f, err := Decode(strings.NewReader(fixtureJSON))
	require.NoError(t, err)

	sum, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, &Summary{UsersCreated: 2, Teams: 2, Projects: 2}, sum)

	jane, err := db.GetUserByEmail(ctx, "jane@qed42.com")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", jane.Name)

	sam, err := db.GetUserByEmail(ctx, "sam@qed42.com")
	require.NoError(t, err)
	assert.Equal(t, "sam.user", sam.Name)

	projects, err := db.ListPublishedProjects(ctx, "project")
	require.NoError(t, err)
	require.Len(t, projects, 1, "Draft is unpublished")
	assert.Equal(t, "Search", projects[0].Title)
	assert.Len(t, projects[0].Tracks, 2)

	membership := service.NewMembershipService(db, "project_team", "project", slog.New(slog.NewTextHandler(io.Discard, nil)))
	ok, err := membership.IsInAnyTeam(ctx, sam.ID)
	require.NoError(t, err)
	assert.True(t, ok, "membership ignores publication status")
}

func TestApply_RerunReusesUsers(t *testing.T) {
	s, _ := newTestSeeder(t)
	ctx := context.Background()

	f, err := Decode(strings.NewReader(`{"users": [{"email": "jane@qed42.com", "name": "Jane Doe"}]}`))
	require.NoError(t, err)

	_, err = s.Apply(ctx, f)
	require.NoError(t, err)

	sum, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.UsersCreated)
	assert.Equal(t, 1, sum.UsersExisting)
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "disallowed domain",
			fixture: `{"users": [{"email": "x@gmail.com"}]}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, apperror.ErrForbidden))
			},
		},
		{
			name:    "unknown member",
			fixture: `{"teams": [{"name": "Red", "members": ["ghost@qed42.com"]}]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "unknown member")
			},
		},
		{
			name:    "unknown team",
			fixture: `{"projects": [{"title": "Search", "teams": ["Nope"]}]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "unknown team")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSeeder(t)
			f, err := Decode(strings.NewReader(tt.fixture))
			require.NoError(t, err)

			_, err = s.Apply(context.Background(), f)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
