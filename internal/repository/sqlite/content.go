package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bounty-portal/internal/model"
	"github.com/sakif/bounty-portal/internal/repository"
)

var (
	_ repository.TeamRepository    = (*DB)(nil)
	_ repository.ProjectRepository = (*DB)(nil)
	_ repository.ContentRepository = (*DB)(nil)
)

// =========================================================================
// WRITES (seeder)
// =========================================================================

// CreateTeam inserts a team and its member links in one transaction.
func (db *DB) CreateTeam(ctx context.Context, team *model.Team) error {
	team.ID = xid.New().String()
	team.CreatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning team tx: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teams (id, vocabulary, name, created_at) VALUES (?, ?, ?, ?)`,
		team.ID, team.Vocabulary, team.Name, team.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting team %q: %w", team.Name, err)
	}

	for _, userID := range team.MemberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO team_members (team_id, user_id) VALUES (?, ?)`,
			team.ID, userID,
		); err != nil {
			return fmt.Errorf("sqlite: adding member %s to team %q: %w", userID, team.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing team %q: %w", team.Name, err)
	}
	return nil
}

// CreateProject inserts a project with its team links, tracks and
// milestones. Slice order becomes the stored position.
func (db *DB) CreateProject(ctx context.Context, project *model.Project) error {
	project.ID = xid.New().String()
	project.CreatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning project tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, type, title, published, created_at) VALUES (?, ?, ?, ?, ?)`,
		project.ID, project.Type, project.Title, project.Published, project.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting project %q: %w", project.Title, err)
	}

	for _, teamID := range project.TeamIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_teams (project_id, team_id) VALUES (?, ?)`,
			project.ID, teamID,
		); err != nil {
			return fmt.Errorf("sqlite: linking team %s to project %q: %w", teamID, project.Title, err)
		}
	}

	for i := range project.Tracks {
		track := &project.Tracks[i]
		track.ID = xid.New().String()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (id, project_id, position) VALUES (?, ?, ?)`,
			track.ID, project.ID, i,
		); err != nil {
			return fmt.Errorf("sqlite: inserting track %d of project %q: %w", i, project.Title, err)
		}

		for j, m := range track.Plan {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO milestones (id, track_id, position, name, details) VALUES (?, ?, ?, ?, ?)`,
				xid.New().String(), track.ID, j, nullable(m.Name), nullable(m.Details),
			); err != nil {
				return fmt.Errorf("sqlite: inserting milestone %d of track %s: %w", j, track.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing project %q: %w", project.Title, err)
	}
	return nil
}

// =========================================================================
// MEMBERSHIP QUERIES
// =========================================================================

// TeamIDsForMember is the first hop: user → teams of one vocabulary.
func (db *DB) TeamIDsForMember(ctx context.Context, vocabulary, userID string, limit int) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tm.team_id
		 FROM team_members tm
		 JOIN teams t ON t.id = tm.team_id
		 WHERE t.vocabulary = ? AND tm.user_id = ?
		 ORDER BY tm.team_id
		 LIMIT ?`,
		vocabulary, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing teams for user %s: %w", userID, err)
	}
	return collectIDs(rows)
}

// ProjectIDsForTeams is the second hop: teams → projects referencing any of them.
func (db *DB) ProjectIDsForTeams(ctx context.Context, projectType string, teamIDs []string, limit int) ([]string, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(teamIDs)+2)
	args = append(args, projectType)
	for _, id := range teamIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT pt.project_id
		 FROM project_teams pt
		 JOIN projects p ON p.id = pt.project_id
		 WHERE p.type = ? AND pt.team_id IN (`+placeholders(len(teamIDs))+`)
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects for %d teams: %w", len(teamIDs), err)
	}
	return collectIDs(rows)
}

// =========================================================================
// EXPORT QUERIES
// =========================================================================

// CountPublishedProjects counts published projects of one type.
func (db *DB) CountPublishedProjects(ctx context.Context, projectType string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE type = ? AND published = 1`, projectType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting projects: %w", err)
	}
	return n, nil
}

// ListPublishedProjects loads the whole project → track → milestone tree.
//
// THREE FLAT QUERIES, NOT N+1:
// One query per level, each ordered by position, then stitched together in
// Go. Each result set is fully read and closed before the next query runs.
func (db *DB) ListPublishedProjects(ctx context.Context, projectType string) ([]model.Project, error) {
	projects, err := db.listProjects(ctx, projectType)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return projects, nil
	}

	byID := make(map[string]*model.Project, len(projects))
	for i := range projects {
		byID[projects[i].ID] = &projects[i]
	}

	// --- tracks ---
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.project_id
		 FROM tracks t
		 JOIN projects p ON p.id = t.project_id
		 WHERE p.type = ? AND p.published = 1
		 ORDER BY t.project_id, t.position`,
		projectType,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tracks: %w", err)
	}

	type trackRef struct {
		project *model.Project
		index   int
	}
	tracks := make(map[string]trackRef)

	for rows.Next() {
		var trackID, projectID string
		if err := rows.Scan(&trackID, &projectID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning track: %w", err)
		}
		p, ok := byID[projectID]
		if !ok {
			continue
		}
		p.Tracks = append(p.Tracks, model.Track{ID: trackID})
		tracks[trackID] = trackRef{project: p, index: len(p.Tracks) - 1}
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tracks: %w", err)
	}

	// --- milestones ---
	rows, err = db.conn.QueryContext(ctx,
		`SELECT m.track_id, m.name, m.details
		 FROM milestones m
		 JOIN tracks t ON t.id = m.track_id
		 JOIN projects p ON p.id = t.project_id
		 WHERE p.type = ? AND p.published = 1
		 ORDER BY m.track_id, m.position`,
		projectType,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing milestones: %w", err)
	}

	for rows.Next() {
		var trackID string
		var name, details sql.NullString
		if err := rows.Scan(&trackID, &name, &details); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning milestone: %w", err)
		}
		ref, ok := tracks[trackID]
		if !ok {
			continue
		}
		t := &ref.project.Tracks[ref.index]
		t.Plan = append(t.Plan, model.Milestone{Name: name.String, Details: details.String})
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("sqlite: iterating milestones: %w", err)
	}

	return projects, nil
}

func (db *DB) listProjects(ctx context.Context, projectType string) ([]model.Project, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, type, title, published, created_at
		 FROM projects
		 WHERE type = ? AND published = 1
		 ORDER BY created_at, id`,
		projectType,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Type, &p.Title, &p.Published, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("sqlite: iterating projects: %w", err)
	}

	return projects, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func collectIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("sqlite: iterating ids: %w", err)
	}
	return ids, nil
}

// closeRows closes rows and reports any iteration error first.
func closeRows(rows *sql.Rows) error {
	iterErr := rows.Err()
	closeErr := rows.Close()
	if iterErr != nil {
		return iterErr
	}
	return closeErr
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// nullable stores "" as NULL; absent milestone fields read back as "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
