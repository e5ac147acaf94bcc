package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/bounty-portal/internal/apperror"
)

func newTestSync(t *testing.T) (*SyncService, *fakeUserRepo, *fakeTeamRepo) {
	t.Helper()
	identity, users := newTestIdentity(t)
	membership, teams := newTestMembership(t)
	return NewSyncService(identity, membership, discardLogger()), users, teams
}

func TestSync_CreatedThenExists(t *testing.T) {
	svc, _, _ := newTestSync(t)
	ctx := context.Background()

	first, err := svc.Sync(ctx, SyncRequest{Email: "jane@qed42.com", Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, SyncStatusCreated, first.Status)
	assert.Equal(t, "jane.doe", first.User.Name)
	assert.False(t, first.InProjectTeam)

	second, err := svc.Sync(ctx, SyncRequest{Email: "jane@qed42.com", Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, SyncStatusExists, second.Status)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, first.User.UUID, second.User.UUID)
}

func TestSync_ProjectTeamFlag(t *testing.T) {
	svc, users, teams := newTestSync(t)
	u := users.add("jane.doe", "jane@qed42.com")
	teams.teamsByUser[u.ID] = []string{"team-1"}
	teams.projectsByTeam["team-1"] = []string{"project-1"}

	res, err := svc.Sync(context.Background(), SyncRequest{Email: "jane@qed42.com"})
	require.NoError(t, err)
	assert.True(t, res.InProjectTeam)
}

func TestSync_MembershipErrorIsNotFatal(t *testing.T) {
	svc, _, teams := newTestSync(t)
	teams.err = errors.New("boom")

	res, err := svc.Sync(context.Background(), SyncRequest{Email: "jane@qed42.com", Name: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, SyncStatusCreated, res.Status)
	assert.False(t, res.InProjectTeam)
}

func TestSync_PropagatesResolveErrors(t *testing.T) {
	svc, _, teams := newTestSync(t)

	_, err := svc.Sync(context.Background(), SyncRequest{})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = svc.Sync(context.Background(), SyncRequest{Email: "x@gmail.com"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	assert.Zero(t, teams.teamCalls)
}
