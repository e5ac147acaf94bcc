package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
)

var (
	_ repository.TeamRepository    = (*DB)(nil)
	_ repository.ProjectRepository = (*DB)(nil)
	_ repository.ContentRepository = (*DB)(nil)
)

const (
	insertTeamQuery        = `INSERT INTO teams (id, vocabulary, name, created_at) VALUES ($1, $2, $3, $4)`
	insertMemberQuery      = `INSERT INTO team_members (team_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	insertProjectQuery     = `INSERT INTO projects (id, type, title, published, created_at) VALUES ($1, $2, $3, $4, $5)`
	insertProjectTeamQuery = `INSERT INTO project_teams (project_id, team_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	insertTrackQuery       = `INSERT INTO tracks (id, project_id, position) VALUES ($1, $2, $3)`
	insertMilestoneQuery   = `INSERT INTO milestones (id, track_id, position, name, details) VALUES ($1, $2, $3, $4, $5)`

	teamsForMemberQuery = `
SELECT tm.team_id
FROM team_members tm
JOIN teams t ON t.id = tm.team_id
WHERE t.vocabulary = $1 AND tm.user_id = $2
ORDER BY tm.team_id
LIMIT $3`

	projectsForTeamsQuery = `
SELECT DISTINCT pt.project_id
FROM project_teams pt
JOIN projects p ON p.id = pt.project_id
WHERE p.type = $1 AND pt.team_id = ANY($2::text[])
LIMIT $3`

	countPublishedQuery = `SELECT COUNT(*) FROM projects WHERE type = $1 AND published`

	listPublishedQuery = `
SELECT id, type, title, published, created_at
FROM projects
WHERE type = $1 AND published
ORDER BY created_at, id`

	listTracksQuery = `
SELECT t.id, t.project_id
FROM tracks t
JOIN projects p ON p.id = t.project_id
WHERE p.type = $1 AND p.published
ORDER BY t.project_id, t.position`

	listMilestonesQuery = `
SELECT m.track_id, m.name, m.details
FROM milestones m
JOIN tracks t ON t.id = m.track_id
JOIN projects p ON p.id = t.project_id
WHERE p.type = $1 AND p.published
ORDER BY m.track_id, m.position`
)

func (db *DB) CreateTeam(ctx context.Context, team *model.Team) error {
	team.ID = xid.New().String()
	team.CreatedAt = time.Now().UTC()

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: beginning team tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertTeamQuery, team.ID, team.Vocabulary, team.Name, team.CreatedAt); err != nil {
		return fmt.Errorf("postgres: inserting team %q: %w", team.Name, err)
	}
	for _, userID := range team.MemberIDs {
		if _, err := tx.Exec(ctx, insertMemberQuery, team.ID, userID); err != nil {
			return fmt.Errorf("postgres: adding member %s to team %q: %w", userID, team.Name, err)
		}
	}

	return tx.Commit(ctx)
}

func (db *DB) CreateProject(ctx context.Context, project *model.Project) error {
	project.ID = xid.New().String()
	project.CreatedAt = time.Now().UTC()

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: beginning project tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertProjectQuery,
		project.ID, project.Type, project.Title, project.Published, project.CreatedAt); err != nil {
		return fmt.Errorf("postgres: inserting project %q: %w", project.Title, err)
	}
	for _, teamID := range project.TeamIDs {
		if _, err := tx.Exec(ctx, insertProjectTeamQuery, project.ID, teamID); err != nil {
			return fmt.Errorf("postgres: linking team %s to project %q: %w", teamID, project.Title, err)
		}
	}

	for i := range project.Tracks {
		track := &project.Tracks[i]
		track.ID = xid.New().String()
		if _, err := tx.Exec(ctx, insertTrackQuery, track.ID, project.ID, i); err != nil {
			return fmt.Errorf("postgres: inserting track %d of project %q: %w", i, project.Title, err)
		}
		for j, m := range track.Plan {
			if _, err := tx.Exec(ctx, insertMilestoneQuery,
				xid.New().String(), track.ID, j, nullable(m.Name), nullable(m.Details)); err != nil {
				return fmt.Errorf("postgres: inserting milestone %d of track %s: %w", j, track.ID, err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (db *DB) TeamIDsForMember(ctx context.Context, vocabulary, userID string, limit int) ([]string, error) {
	rows, err := db.pool.Query(ctx, teamsForMemberQuery, vocabulary, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing teams for user %s: %w", userID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning team ids: %w", err)
	}
	return ids, nil
}

func (db *DB) ProjectIDsForTeams(ctx context.Context, projectType string, teamIDs []string, limit int) ([]string, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	rows, err := db.pool.Query(ctx, projectsForTeamsQuery, projectType, teamIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing projects for %d teams: %w", len(teamIDs), err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning project ids: %w", err)
	}
	return ids, nil
}

func (db *DB) CountPublishedProjects(ctx context.Context, projectType string) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, countPublishedQuery, projectType).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: counting projects: %w", err)
	}
	return n, nil
}

// ListPublishedProjects loads projects, tracks and milestones with one
// query per level and stitches them together by id.
func (db *DB) ListPublishedProjects(ctx context.Context, projectType string) ([]model.Project, error) {
	rows, err := db.pool.Query(ctx, listPublishedQuery, projectType)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing projects: %w", err)
	}
	projects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Project, error) {
		var p model.Project
		err := row.Scan(&p.ID, &p.Type, &p.Title, &p.Published, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning projects: %w", err)
	}
	if len(projects) == 0 {
		return []model.Project{}, nil
	}

	byID := make(map[string]*model.Project, len(projects))
	for i := range projects {
		byID[projects[i].ID] = &projects[i]
	}

	type trackRef struct {
		project *model.Project
		index   int
	}
	tracks := make(map[string]trackRef)

	rows, err = db.pool.Query(ctx, listTracksQuery, projectType)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing tracks: %w", err)
	}
	var trackID, projectID string
	_, err = pgx.ForEachRow(rows, []any{&trackID, &projectID}, func() error {
		p, ok := byID[projectID]
		if !ok {
			return nil
		}
		p.Tracks = append(p.Tracks, model.Track{ID: trackID})
		tracks[trackID] = trackRef{project: p, index: len(p.Tracks) - 1}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning tracks: %w", err)
	}

	rows, err = db.pool.Query(ctx, listMilestonesQuery, projectType)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing milestones: %w", err)
	}
	var name, details *string
	_, err = pgx.ForEachRow(rows, []any{&trackID, &name, &details}, func() error {
		ref, ok := tracks[trackID]
		if !ok {
			return nil
		}
		t := &ref.project.Tracks[ref.index]
		t.Plan = append(t.Plan, model.Milestone{Name: deref(name), Details: deref(details)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning milestones: %w", err)
	}

	return projects, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
