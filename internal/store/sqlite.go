package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/candigo/candigo/internal/application"
)

// SQLiteStore implements Store on a single SQLite file. WAL mode gives
// crash consistency per statement and lets reads proceed alongside
// writes to other keys.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the tracking database. Use ":memory:"
// for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	pragmas := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;
	`
	if _, err := s.db.Exec(pragmas); err != nil {
		return err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS applications (
		dedup_key        TEXT PRIMARY KEY,
		state            TEXT NOT NULL,
		source           TEXT NOT NULL,
		title            TEXT NOT NULL,
		company          TEXT NOT NULL,
		location         TEXT NOT NULL DEFAULT '',
		url              TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		score            REAL NOT NULL DEFAULT 0,
		breakdown        TEXT,
		attempts         INTEGER NOT NULL DEFAULT 0,
		last_error       TEXT NOT NULL DEFAULT '',
		materials_path   TEXT NOT NULL DEFAULT '',
		created_at       INTEGER NOT NULL,
		state_changed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_applications_state ON applications(state);
	CREATE INDEX IF NOT EXISTS idx_applications_url ON applications(url);
	`
	_, err := s.db.Exec(schema)
	return err
}

const recordColumns = `dedup_key, state, source, title, company, location, url, description,
	score, breakdown, attempts, last_error, materials_path, created_at, state_changed_at`

// Get returns the record for a key, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*application.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM applications WHERE dedup_key = ?`, key)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Error{Key: key, Op: "get", Err: err}
	}
	return rec, nil
}

// Upsert writes the record in a single statement; SQLite makes the
// insert-or-update atomic per key.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *application.Record) error {
	var breakdown []byte
	if rec.Breakdown != nil {
		var err error
		breakdown, err = json.Marshal(rec.Breakdown)
		if err != nil {
			return &Error{Key: rec.DedupKey, Op: "upsert", Err: fmt.Errorf("marshal breakdown: %w", err)}
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO UPDATE SET
			state = excluded.state,
			source = excluded.source,
			title = excluded.title,
			company = excluded.company,
			location = excluded.location,
			url = excluded.url,
			description = excluded.description,
			score = excluded.score,
			breakdown = excluded.breakdown,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			materials_path = excluded.materials_path,
			state_changed_at = excluded.state_changed_at`,
		rec.DedupKey, string(rec.State), rec.Source, rec.Title, rec.Company,
		rec.Location, rec.URL, rec.Description, rec.Score, breakdown, rec.Attempts,
		rec.LastError, rec.MaterialsPath,
		rec.CreatedAt.Unix(), rec.StateChangedAt.Unix(),
	)
	if err != nil {
		return &Error{Key: rec.DedupKey, Op: "upsert", Err: err}
	}
	return nil
}

// List returns records, optionally filtered by state, newest change first.
func (s *SQLiteStore) List(ctx context.Context, states ...application.State) ([]*application.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM applications`
	var args []any
	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, st := range states {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE state IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY state_changed_at DESC, dedup_key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	defer rows.Close()

	var records []*application.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &Error{Op: "list", Err: err}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindByURL returns the record whose posting URL matches exactly, or
// ErrNotFound.
func (s *SQLiteStore) FindByURL(ctx context.Context, url string) (*application.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM applications WHERE url = ? LIMIT 1`, url)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Error{Op: "find-by-url", Err: err}
	}
	return rec, nil
}

// Prune deletes records in the given states older than the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time, states ...application.State) (int, error) {
	if len(states) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(states))
	args := []any{olderThan.Unix()}
	for i, st := range states {
		placeholders[i] = "?"
		args = append(args, string(st))
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM applications WHERE state_changed_at < ? AND state IN (`+strings.Join(placeholders, ", ")+`)`,
		args...)
	if err != nil {
		return 0, &Error{Op: "prune", Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*application.Record, error) {
	var rec application.Record
	var state string
	var breakdown []byte
	var createdAt, stateChangedAt int64

	err := row.Scan(&rec.DedupKey, &state, &rec.Source, &rec.Title, &rec.Company,
		&rec.Location, &rec.URL, &rec.Description, &rec.Score, &breakdown, &rec.Attempts,
		&rec.LastError, &rec.MaterialsPath, &createdAt, &stateChangedAt)
	if err != nil {
		return nil, err
	}

	rec.State, err = application.ParseState(state)
	if err != nil {
		return nil, err
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &rec.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.StateChangedAt = time.Unix(stateChangedAt, 0).UTC()

	return &rec, nil
}
