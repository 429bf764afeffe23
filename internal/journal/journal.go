// Package journal records sync operations in a small SQLite database under
// the workspace's .esm directory.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Dir is the workspace-relative directory holding local esm state.
const Dir = ".esm"

// SchemaVersion is bumped whenever the entries table changes shape.
const SchemaVersion = 1

// Action names the kind of sync operation an entry describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionFetch  Action = "fetch"
	ActionAttach Action = "attach"
)

// Entry is one journal row.
type Entry struct {
	ID     int64     `json:"id"`
	Action Action    `json:"action"`
	Name   string    `json:"name"`
	Number *uint64   `json:"number,omitempty"`
	URL    string    `json:"url,omitempty"`
	At     time.Time `json:"at"`
}

// Journal is the SQLite database handle.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Path returns the journal database path for a workspace root.
func Path(root string) string {
	return filepath.Join(root, Dir, "journal.db")
}

// Open opens or creates the journal for root.
func Open(root string) (*Journal, error) {
	dbDir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}

	db, err := sql.Open("sqlite", Path(root))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, now: time.Now}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			name TEXT NOT NULL,
			number INTEGER,
			url TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL            -- Unix nanoseconds
		);

		CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	_, err := j.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(SchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("failed to record journal schema version: %w", err)
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an entry. A zero At is stamped with the current time.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	if entry.At.IsZero() {
		entry.At = j.now()
	}

	var number any
	if entry.Number != nil {
		if *entry.Number > math.MaxInt64 {
			return fmt.Errorf("failed to record %s of %s: number %d is out of range", entry.Action, entry.Name, *entry.Number)
		}
		number = int64(*entry.Number)
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO entries (action, name, number, url, at) VALUES (?, ?, ?, ?, ?)`,
		string(entry.Action), entry.Name, number, entry.URL, entry.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s of %s: %w", entry.Action, entry.Name, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A limit of zero or
// less returns every entry.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, action, name, number, url, at FROM entries ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return scanRows(rows, scanEntry)
}

// ForName returns every entry for one post name, newest first.
func (j *Journal) ForName(ctx context.Context, name string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, action, name, number, url, at FROM entries WHERE name = ? ORDER BY id DESC`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal for %s: %w", name, err)
	}
	return scanRows(rows, scanEntry)
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e      Entry
		action string
		number sql.NullInt64
		at     int64
	)
	if err := rows.Scan(&e.ID, &action, &e.Name, &number, &e.URL, &at); err != nil {
		return Entry{}, err
	}
	e.Action = Action(action)
	if number.Valid {
		n := uint64(number.Int64)
		e.Number = &n
	}
	e.At = time.Unix(0, at)
	return e, nil
}

// scanRows scans all rows into a slice using the provided scanner.
func scanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
