package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cxr/internal/labels"
)

// ErrNotFound indicates the requested subject has no journal row.
var ErrNotFound = errors.New("manifest: subject not found")

// Store manages the preprocessing journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the manifest database under the array
// root and applies the schema.
func Open(arrayRoot string) (*Store, error) {
	if err := os.MkdirAll(arrayRoot, 0o755); err != nil {
		return nil, fmt.Errorf("ensure array root: %w", err)
	}

	dbPath := filepath.Join(arrayRoot, "manifest.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Enqueue inserts a pending row for a subject. Subjects already journaled
// keep their existing row, so re-running preprocessing never resets
// completed work.
func (s *Store) Enqueue(ctx context.Context, rec labels.Record, split labels.Split) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO subjects (subject_id, split, label, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(subject_id) DO NOTHING`,
		rec.SubjectID,
		string(split),
		rec.Target,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("enqueue subject %s: %w", rec.SubjectID, err)
	}
	return nil
}

// Get returns one subject's journal row.
func (s *Store) Get(ctx context.Context, subjectID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject_id, split, label, status, array_path, error_message, created_at, updated_at
         FROM subjects WHERE subject_id = ?`, subjectID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, subjectID)
	}
	return item, err
}

// SetStatus transitions a subject's row and records the outcome.
func (s *Store) SetStatus(ctx context.Context, subjectID string, status Status, arrayPath, errorMessage string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE subjects SET status = ?, array_path = ?, error_message = ?, updated_at = ?
         WHERE subject_id = ?`,
		string(status), nullableString(arrayPath), nullableString(errorMessage), timestamp, subjectID)
	if err != nil {
		return fmt.Errorf("update subject %s: %w", subjectID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, subjectID)
	}
	return nil
}

// List returns journal rows, optionally filtered by status, ordered by
// insertion (= label-table) order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT id, subject_id, split, label, status, array_path, error_message, created_at, updated_at
              FROM subjects`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Summarize aggregates journal counts per lifecycle state.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM subjects GROUP BY status")
	if err != nil {
		return Summary{}, fmt.Errorf("summarize subjects: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending, StatusDecoding:
			summary.Pending += count
		case StatusWritten:
			summary.Written += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}

// Clear removes every journal row.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM subjects"); err != nil {
		return fmt.Errorf("clear manifest: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		split     string
		status    string
		arrayPath sql.NullString
		errorMsg  sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&item.ID, &item.SubjectID, &split, &item.Label, &status,
		&arrayPath, &errorMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	item.Split = labels.Split(split)
	item.Status = Status(status)
	item.ArrayPath = arrayPath.String
	item.ErrorMessage = errorMsg.String
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		item.CreatedAt = ts
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		item.UpdatedAt = ts
	}
	return &item, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
