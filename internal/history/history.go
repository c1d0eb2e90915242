// Package history keeps a local record of completed envdiff runs in an
// embedded SQLite database, so operators can see what was analyzed against
// which image without digging through report files.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database holding run history.
type Store struct {
	conn *sql.DB
	path string
}

// DefaultPath returns ~/.envdiff/envdiff.db, creating the directory if
// needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".envdiff")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "envdiff.db"), nil
}

// Open opens or creates the history database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    generated_on    TEXT NOT NULL,
    title           TEXT,
    base_image      TEXT NOT NULL,
    container_tool  TEXT NOT NULL,
    config_path     TEXT NOT NULL,
    report_path     TEXT NOT NULL,
    operation_count INTEGER NOT NULL,
    changed_paths   INTEGER NOT NULL,
    recorded_at     TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_runs_recorded ON runs(recorded_at DESC);
`

// Run is one row of run history.
type Run struct {
	ID             int
	GeneratedOn    string
	Title          string
	BaseImage      string
	ContainerTool  string
	ConfigPath     string
	ReportPath     string
	OperationCount int
	ChangedPaths   int
}

// Record inserts one completed run.
func (s *Store) Record(run Run) error {
	_, err := s.conn.Exec(
		`INSERT INTO runs (generated_on, title, base_image, container_tool, config_path, report_path, operation_count, changed_paths)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.GeneratedOn, run.Title, run.BaseImage, run.ContainerTool,
		run.ConfigPath, run.ReportPath, run.OperationCount, run.ChangedPaths,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(
		`SELECT id, generated_on, title, base_image, container_tool, config_path, report_path, operation_count, changed_paths
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.GeneratedOn, &r.Title, &r.BaseImage, &r.ContainerTool,
			&r.ConfigPath, &r.ReportPath, &r.OperationCount, &r.ChangedPaths); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
