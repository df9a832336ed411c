// Package journal records sync run history in a local SQLite database.
// It stores run metadata only; issue content is never persisted.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one sync run's outcome.
type Run struct {
	ID         string
	Repo       string
	DatabaseID string
	StartedAt  time.Time
	FinishedAt time.Time
	Fetched    int
	Created    int
	Updated    int
	Status     string
	Error      string // empty unless Status is failed
}

// DB is a handle on the journal database.
type DB struct {
	path string
	conn *sql.DB
}

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    repo TEXT NOT NULL,
    database_id TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    fetched INTEGER DEFAULT 0,
    created INTEGER DEFAULT 0,
    updated INTEGER DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT
);
`

// Open creates or opens the journal database at the given path and
// initializes the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only supports a single writer; one connection avoids
	// "database is locked" errors.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(createRunsTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	return &DB{
		path: path,
		conn: conn,
	}, nil
}

// Close closes the journal.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Record inserts a run. Assigns a fresh id when the run has none.
func (db *DB) Record(run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	query := `
		INSERT INTO runs (
			id, repo, database_id, started_at, finished_at,
			fetched, created, updated, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.conn.Exec(query,
		run.ID,
		run.Repo,
		run.DatabaseID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Fetched,
		run.Created,
		run.Updated,
		run.Status,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// Recent returns the most recent runs, newest first.
func (db *DB) Recent(limit int) ([]Run, error) {
	query := `
		SELECT id, repo, database_id, started_at, finished_at,
		       fetched, created, updated, status, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt string
		if err := rows.Scan(
			&run.ID, &run.Repo, &run.DatabaseID, &startedAt, &finishedAt,
			&run.Fetched, &run.Created, &run.Updated, &run.Status, &run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
