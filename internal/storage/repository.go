package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Submission statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recent limits
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// timeLayout is fixed width so submitted_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Submission is one journaled append attempt.
type Submission struct {
	ID           string    `json:"id"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Backend      string    `json:"backend"`
	DocumentPath string    `json:"documentPath"`
	EntryCount   int       `json:"entryCount"`
	Status       string    `json:"status"`
	ErrorType    string    `json:"errorType,omitempty"`
	Message      string    `json:"message"`
	Error        string    `json:"error,omitempty"`
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := MigrateJournal(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record stores s, assigning an id and timestamp when absent.
func (r *SQLiteRepository) Record(ctx context.Context, s Submission) (Submission, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	if s.Status != StatusSuccess && s.Status != StatusError {
		return Submission{}, fmt.Errorf("invalid submission status %q", s.Status)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (id, submitted_at, backend, document_path, entry_count, status, error_type, message, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SubmittedAt.UTC().Format(timeLayout), s.Backend, s.DocumentPath,
		s.EntryCount, s.Status, s.ErrorType, s.Message, s.Error)
	if err != nil {
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}

	slog.DebugContext(ctx, "Submission recorded",
		"id", s.ID,
		"status", s.Status,
		"entry_count", s.EntryCount)

	return s, nil
}

// Recent returns up to limit submissions, newest first. A non-positive
// limit uses DefaultRecentLimit; limits above MaxRecentLimit are capped.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Submission, error) {
	limit = ClampLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submitted_at, backend, document_path, entry_count, status, error_type, message, error
		FROM submissions
		ORDER BY submitted_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			s  Submission
			at string
		)
		if err := rows.Scan(&s.ID, &at, &s.Backend, &s.DocumentPath, &s.EntryCount,
			&s.Status, &s.ErrorType, &s.Message, &s.Error); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if s.SubmittedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parse submitted_at %q: %w", at, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

// Get returns the submission with id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (Submission, error) {
	var (
		s  Submission
		at string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, submitted_at, backend, document_path, entry_count, status, error_type, message, error
		FROM submissions WHERE id = ?`, id).
		Scan(&s.ID, &at, &s.Backend, &s.DocumentPath, &s.EntryCount, &s.Status, &s.ErrorType, &s.Message, &s.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	if s.SubmittedAt, err = time.Parse(timeLayout, at); err != nil {
		return Submission{}, fmt.Errorf("parse submitted_at %q: %w", at, err)
	}
	return s, nil
}

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("not found")

// ClampLimit normalises a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}
