// Package runindex keeps a local SQLite registry of past benchmark runs so
// operators can list and compare them without walking the output directory.
package runindex

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fastbench/fbench/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	source        TEXT NOT NULL,
	cache_policy  TEXT NOT NULL,
	state         TEXT NOT NULL,
	operator      TEXT,
	started_at    TEXT NOT NULL,
	ended_at      TEXT,
	error         TEXT,
	manifest_path TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// Entry is one indexed run.
type Entry struct {
	RunID        string
	Mode         string
	Source       string
	CachePolicy  string
	State        string
	Operator     string
	StartedAt    time.Time
	EndedAt      time.Time
	Error        string
	ManifestPath string
}

// Index is the SQLite-backed run registry.
type Index struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry database in dir.
func Open(dir string) (*Index, error) {
	db, err := sql.Open("sqlite", filepath.Join(dir, "runs.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open run index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize run index: %w", err)
	}
	return &Index{db: db}, nil
}

// Record upserts a finalized run. Recording the same run twice (e.g. a
// re-finalized manifest after a crash recovery) overwrites the prior row.
func (i *Index) Record(m *domain.RunManifest, manifestPath string) error {
	_, err := i.db.Exec(`
		INSERT INTO runs (run_id, mode, source, cache_policy, state, operator, started_at, ended_at, error, manifest_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			state = excluded.state, ended_at = excluded.ended_at, error = excluded.error`,
		m.RunID, m.Mode, m.Source, m.CachePolicy, m.State, m.Operator,
		m.StartedAt.UTC().Format(time.RFC3339Nano),
		m.EndedAt.UTC().Format(time.RFC3339Nano),
		m.Error, manifestPath)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (i *Index) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := i.db.Query(`
		SELECT run_id, mode, source, cache_policy, state, operator, started_at, ended_at, error, manifest_path
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, ended, operator, errText sql.NullString
		if err := rows.Scan(&e.RunID, &e.Mode, &e.Source, &e.CachePolicy, &e.State,
			&operator, &started, &ended, &errText, &e.ManifestPath); err != nil {
			return nil, err
		}
		e.Operator = operator.String
		e.Error = errText.String
		if started.Valid {
			e.StartedAt, _ = time.Parse(time.RFC3339Nano, started.String)
		}
		if ended.Valid {
			e.EndedAt, _ = time.Parse(time.RFC3339Nano, ended.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (i *Index) Close() error { return i.db.Close() }
