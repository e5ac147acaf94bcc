// Package postgres implements the repository interfaces on PostgreSQL via
// a pgx connection pool. Selected with DB_DRIVER=postgres.
//
// The schema mirrors the SQLite one table for table. Ordered relations keep
// an explicit position column.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/bounty-portal/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, pings, and applies the schema.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close releases the pool. It never fails; the error return satisfies
// repository.Store.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	uuid       TEXT NOT NULL,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	role       TEXT NOT NULL DEFAULT 'authenticated',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT users_uuid_key UNIQUE (uuid),
	CONSTRAINT users_name_key UNIQUE (name),
	CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS teams (
	id         TEXT PRIMARY KEY,
	vocabulary TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_teams_vocabulary ON teams(vocabulary);

CREATE TABLE IF NOT EXISTS team_members (
	team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (team_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_team_members_user_id ON team_members(user_id);

CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	published  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_projects_type_published ON projects(type, published);

CREATE TABLE IF NOT EXISTS project_teams (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	PRIMARY KEY (project_id, team_id)
);
CREATE INDEX IF NOT EXISTS idx_project_teams_team_id ON project_teams(team_id);

CREATE TABLE IF NOT EXISTS tracks (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tracks_project_id ON tracks(project_id, position);

CREATE TABLE IF NOT EXISTS milestones (
	id       TEXT PRIMARY KEY,
	track_id TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT,
	details  TEXT
);
CREATE INDEX IF NOT EXISTS idx_milestones_track_id ON milestones(track_id, position);
`

// migrate applies the idempotent schema. Multiple statements in one Exec
// use the simple protocol, which pgx does when there are no arguments.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
