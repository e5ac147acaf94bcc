// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// SQLITE IS THE DEFAULT DRIVER:
// One process, one database file next to the binary. Set
// DB_DRIVER=postgres when several instances share the store.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C compiler
// is needed and cross-compilation just works.
//
// TABLE LAYOUT:
//
//	users ─┐
//	       └─< team_members >─ teams ─< project_teams >─ projects ─< tracks ─< milestones
//
// Ordered relations (tracks of a project, milestones of a track) carry an
// explicit position column; attachment order is part of the data.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/bounty-portal/internal/repository"
)

// compile-time check that *DB implements the full store
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// busyTimeoutMillis is how long a connection waits for another writer's
// lock before failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/bounty.db" → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests)
//
// PER-CONNECTION PRAGMAS:
// database/sql opens connections lazily, so a PRAGMA sent through Exec only
// reaches whichever connection ran it. The pragmas go in the DSN instead
// and the driver applies them to every new connection:
//
//	busy_timeout  concurrent writers queue instead of failing with SQLITE_BUSY
//	foreign_keys  OFF by default in SQLite
//	journal_mode  WAL, readers (the export) never block a sync's insert
//
// _txlock=immediate takes the write lock at BEGIN, so a transaction never
// has to upgrade a read lock mid-way (which busy_timeout cannot wait out).
//
// IN-MEMORY AND THE CONNECTION POOL:
// Every new connection to ":memory:" gets its OWN empty database. We pin the
// pool to one connection so all queries see the same tables. Repository
// methods always drain a result set before issuing the next query; with a
// single connection a nested query would otherwise block forever.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends the connection pragmas to dbPath.
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return dbPath + "?" + q.Encode()
}

// Ping checks database connectivity. Used by the readiness endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates all tables. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	// UNIQUE on email and name is what makes lookup-then-create safe under
	// concurrent syncs: the loser of a race gets a constraint error instead
	// of a duplicate row.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			uuid       TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL UNIQUE,
			active     INTEGER NOT NULL DEFAULT 1,
			role       TEXT NOT NULL DEFAULT 'authenticated',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS teams (
			id         TEXT PRIMARY KEY,
			vocabulary TEXT NOT NULL,
			name       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_teams_vocabulary ON teams(vocabulary);

		CREATE TABLE IF NOT EXISTS team_members (
			team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (team_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_team_members_user_id ON team_members(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating teams tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			published  INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
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
	`)
	if err != nil {
		return fmt.Errorf("creating project tables: %w", err)
	}

	return nil
}
