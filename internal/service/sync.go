package service

import (
	"context"
	"log/slog"

	"github.com/sakif/bounty-portal/internal/model"
)

// Sync statuses reported to the caller.
const (
	SyncStatusCreated = "created"
	SyncStatusExists  = "exists"
)

type SyncRequest struct {
	Email string
	Name  string
}

type SyncResult struct {
	Status        string
	User          *model.User
	InProjectTeam bool
}

// SyncService is the OAuth sync use case: resolve the identity, then
// enrich it with the project-team flag.
type SyncService struct {
	identity   *IdentityService
	membership *MembershipService
	logger     *slog.Logger
}

func NewSyncService(identity *IdentityService, membership *MembershipService, logger *slog.Logger) *SyncService {
	return &SyncService{identity: identity, membership: membership, logger: logger}
}

// Sync fails only when identity resolution fails. A failed membership
// lookup yields InProjectTeam=false.
func (s *SyncService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	res, err := s.identity.Resolve(ctx, req.Email, req.Name)
	if err != nil {
		return nil, err
	}

	status := SyncStatusExists
	if res.Created {
		status = SyncStatusCreated
	}

	result := &SyncResult{
		Status:        status,
		User:          res.User,
		InProjectTeam: s.membership.InAnyTeamBestEffort(ctx, res.User.ID),
	}

	s.logger.Debug("user synced",
		slog.String("user_id", res.User.ID),
		slog.String("status", status),
		slog.Bool("in_project_team", result.InProjectTeam),
	)
	return result, nil
}
