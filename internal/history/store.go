// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records conversions in a SQLite database so that batch
// runs can skip sources that have not changed and users can review what
// was sent to the writing assistant.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/latex2awa/pkg/types"
)

// defaultLimit bounds List when the caller passes a non-positive limit.
const defaultLimit = 20

// Run is one recorded conversion.
type Run struct {
	types.Report `yaml:",inline"`

	ID         int64  `json:"id" yaml:"id"`
	OptionsKey string `json:"options" yaml:"options"`
}

// Store manages the conversion history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and creates the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			output TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			options TEXT NOT NULL,
			status TEXT NOT NULL,
			titles INTEGER NOT NULL DEFAULT 0,
			titles_suppressed INTEGER NOT NULL DEFAULT 0,
			citations INTEGER NOT NULL DEFAULT 0,
			bytes INTEGER NOT NULL DEFAULT 0,
			notes TEXT,
			converted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores the outcome of one conversion.
func (s *Store) Record(ctx context.Context, report types.Report, optsKey string) error {
	notesJSON, err := json.Marshal(report.Notes)
	if err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}
	at := report.ConvertedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (source, output, sha256, options, status, titles, titles_suppressed, citations, bytes, notes, converted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		absPath(report.Source), report.Output, report.SHA256, optsKey, string(report.Status),
		report.Titles, report.TitlesSuppressed, report.Citations, report.Bytes,
		string(notesJSON), at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", report.Source, err)
	}
	return nil
}

// Unchanged reports whether the latest run for source succeeded with the
// same content digest and options.
func (s *Store) Unchanged(ctx context.Context, source, sha, optsKey string) (bool, error) {
	var storedSHA, storedOpts, status string
	err := s.db.QueryRowContext(ctx,
		`SELECT sha256, options, status FROM runs WHERE source = ? ORDER BY id DESC LIMIT 1`,
		absPath(source),
	).Scan(&storedSHA, &storedOpts, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up %s: %w", source, err)
	}
	return storedSHA == sha && storedOpts == optsKey && status == string(types.ConversionDone), nil
}

// List returns the most recent runs, newest first. A non-empty source
// restricts the list to that file.
func (s *Store) List(ctx context.Context, source string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	query := `SELECT id, source, output, sha256, options, status, titles, titles_suppressed, citations, bytes, notes, converted_at
		FROM runs`
	var args []any
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, absPath(source))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r           Run
			status      string
			notesJSON   sql.NullString
			convertedAt string
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.Output, &r.SHA256, &r.OptionsKey, &status,
			&r.Titles, &r.TitlesSuppressed, &r.Citations, &r.Bytes, &notesJSON, &convertedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Status = types.ConversionStatus(status)
		if notesJSON.Valid && notesJSON.String != "" && notesJSON.String != "null" {
			if err := json.Unmarshal([]byte(notesJSON.String), &r.Notes); err != nil {
				return nil, fmt.Errorf("decoding notes of run %d: %w", r.ID, err)
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, convertedAt); err == nil {
			r.ConvertedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Export writes runs as YAML or JSON to w.
func Export(runs []Run, format string, w io.Writer) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(runs); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported format %q: use yaml or json", format)
}

// absPath keys runs by absolute path so that relative invocations from
// different directories agree.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
