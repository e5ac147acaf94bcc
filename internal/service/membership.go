package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/bounty-portal/internal/repository"
)

// Fan-out bounds for the two membership queries. The first is a safety cap;
// the second only needs to know whether any row exists.
const (
	teamLookupLimit    = 50
	projectLookupLimit = 1
)

// MembershipService answers "is this user on any project's team?".
type MembershipService struct {
	teams       repository.TeamRepository
	vocabulary  string
	projectType string
	logger      *slog.Logger
}

func NewMembershipService(teams repository.TeamRepository, vocabulary, projectType string, logger *slog.Logger) *MembershipService {
	return &MembershipService{
		teams:       teams,
		vocabulary:  vocabulary,
		projectType: projectType,
		logger:      logger,
	}
}

// IsInAnyTeam is true iff the user belongs to a team (of the configured
// vocabulary) that some project (of the configured type) references.
// A user on no team costs one query.
func (s *MembershipService) IsInAnyTeam(ctx context.Context, userID string) (bool, error) {
	teamIDs, err := s.teams.TeamIDsForMember(ctx, s.vocabulary, userID, teamLookupLimit)
	if err != nil {
		return false, fmt.Errorf("membership: listing teams: %w", err)
	}
	if len(teamIDs) == 0 {
		return false, nil
	}

	projectIDs, err := s.teams.ProjectIDsForTeams(ctx, s.projectType, teamIDs, projectLookupLimit)
	if err != nil {
		return false, fmt.Errorf("membership: listing projects: %w", err)
	}
	return len(projectIDs) > 0, nil
}

// InAnyTeamBestEffort is IsInAnyTeam for callers that treat membership as
// an optional enrichment: errors are logged and read as false.
func (s *MembershipService) InAnyTeamBestEffort(ctx context.Context, userID string) bool {
	ok, err := s.IsInAnyTeam(ctx, userID)
	if err != nil {
		s.logger.Warn("team membership check failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}
