// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/repochat/internal/util"
)

// =============================================================================
// HISTORY ENTRY TYPE
// =============================================================================

// Entry is one answered question.
type Entry struct {
	ID         string    `json:"id"`
	RepoURL    string    `json:"repo_url"`
	Repo       string    `json:"repo"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Sources    []string  `json:"sources"`
	K          int       `json:"k"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Preview returns the question on one line, cut to width display cells.
func (e *Entry) Preview(width int) string {
	return util.TruncateWidth(util.OneLine(e.Question), width)
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id          TEXT PRIMARY KEY,
	repo_url    TEXT NOT NULL,
	repo        TEXT NOT NULL,
	question    TEXT NOT NULL,
	answer      TEXT NOT NULL,
	sources     TEXT NOT NULL DEFAULT '[]',
	k           INTEGER NOT NULL DEFAULT 5,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_history_repo ON history(repo);
`

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore persists answered questions in SQLite.
//
// The store is safe for concurrent use; SQLite allows a single writer, so
// the pool is held to one connection.
type HistoryStore struct {
	db   *sql.DB
	path string

	// MaxEntries caps stored entries after each Add (0 = unlimited).
	MaxEntries int

	mu     sync.Mutex
	closed bool
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*HistoryStore, error) {
	if path == "" {
		return nil, errors.New("storage: empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &HistoryStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *HistoryStore) Path() string {
	return s.path
}

// Close closes the database. It is safe to call more than once.
func (s *HistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Add stores e, filling in ID and CreatedAt when they are unset, then prunes
// down to MaxEntries.
func (s *HistoryStore) Add(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.New("storage: nil entry")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Sources == nil {
		e.Sources = []string{}
	}

	sources, err := json.Marshal(e.Sources)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (id, repo_url, repo, question, answer, sources, k, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RepoURL, e.Repo, e.Question, e.Answer, string(sources), e.K, e.DurationMs, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	if s.MaxEntries > 0 {
		if _, err := s.Prune(ctx, s.MaxEntries); err != nil {
			return err
		}
	}
	return nil
}

// Prune deletes all but the newest keep entries and returns how many went.
func (s *HistoryStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Delete removes one entry by ID.
func (s *HistoryStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Clear removes every entry and returns how many there were.
func (s *HistoryStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// ListOptions filters List.
type ListOptions struct {
	Repo   string // only this repo name
	Search string // case-insensitive substring of question or answer
	Limit  int    // 0 = no limit
}

// List returns entries newest first.
func (s *HistoryStore) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT id, repo_url, repo, question, answer, sources, k, duration_ms, created_at FROM history`
	var where []string
	var args []interface{}
	if opts.Repo != "" {
		where = append(where, "repo = ?")
		args = append(args, opts.Repo)
	}
	if opts.Search != "" {
		where = append(where, "(lower(question) LIKE ? OR lower(answer) LIKE ?)")
		pattern := "%" + strings.ToLower(opts.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get returns the entry whose ID equals id or, failing that, the single
// entry whose ID starts with it. An ambiguous prefix is an error.
func (s *HistoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEntryNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, repo_url, repo, question, answer, sources, k, duration_ms, created_at
		 FROM history WHERE id = ? OR id LIKE ? ORDER BY (id = ?) DESC LIMIT 2`,
		id, escapeLike(id)+"%", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(found) == 0:
		return nil, ErrEntryNotFound
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
	}
}

// Count returns the number of stored entries.
func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}

// Stats summarises the store for `repochat status`.
type Stats struct {
	Entries int
	Repos   int
	Newest  time.Time
}

// Stats returns entry and repository counts.
func (s *HistoryStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var newest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT repo), MAX(created_at) FROM history`,
	).Scan(&st.Entries, &st.Repos, &newest)
	if err != nil {
		return st, err
	}
	if newest.Valid {
		st.Newest = time.Unix(0, newest.Int64)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var sources string
	var created int64
	if err := row.Scan(&e.ID, &e.RepoURL, &e.Repo, &e.Question, &e.Answer, &sources, &e.K, &e.DurationMs, &created); err != nil {
		return nil, err
	}
	e.CreatedAt = time.Unix(0, created)
	if err := json.Unmarshal([]byte(sources), &e.Sources); err != nil || e.Sources == nil {
		e.Sources = []string{}
	}
	return &e, nil
}

// escapeLike strips LIKE wildcards so an ID prefix only matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

// =============================================================================
// ERRORS
// =============================================================================

// HistoryError is a history lookup error, comparable with errors.Is.
type HistoryError struct {
	Message string
}

func (e *HistoryError) Error() string {
	return e.Message
}

// Is matches history errors by message.
func (e *HistoryError) Is(target error) bool {
	t, ok := target.(*HistoryError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

var (
	// ErrEntryNotFound is returned when no entry matches an ID.
	ErrEntryNotFound = &HistoryError{Message: "history entry not found"}

	// ErrAmbiguousID is returned when an ID prefix matches several entries.
	ErrAmbiguousID = &HistoryError{Message: "ambiguous history id"}
)

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatHistoryList renders entries as a plain table for the CLI.
func FormatHistoryList(entries []Entry) string {
	if len(entries) == 0 {
		return "No history found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 10) + " " + util.PadRight("When", 17) + " " + util.PadRight("Repo", 16) + " Question\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	for i := range entries {
		e := &entries[i]
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		sb.WriteString(util.PadRight(id, 10) + " " +
			util.PadRight(e.CreatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(util.TruncateWidth(e.Repo, 16), 16) + " " +
			e.Preview(40) + "\n")
	}
	return sb.String()
}
