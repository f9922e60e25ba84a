// Package history keeps a sqlite ledger of transcription runs
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run statuses
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run is one file transcription attempt
type Run struct {
	ID         string     `json:"id"`
	FileName   string     `json:"file_name"`
	Model      string     `json:"model"`
	Device     string     `json:"device"`
	Status     string     `json:"status"`
	OutputPath string     `json:"output_path,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store persists runs in a sqlite database
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	if err := s.failInterrupted(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		model TEXT NOT NULL,
		device TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		output_path TEXT,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// failInterrupted closes runs left running by a previous process
func (s *Store) failInterrupted() error {
	_, err := s.db.Exec("UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE status = ?",
		StatusFailed, "interrupted", s.now(), StatusRunning)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Start records a new running run and returns its id
func (s *Store) Start(ctx context.Context, fileName, model, device string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, file_name, model, device, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, fileName, model, device, StatusRunning, s.now(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Finish marks a run done, or failed when runErr is not nil
func (s *Store) Finish(ctx context.Context, id, outputPath string, runErr error) error {
	status := StatusDone
	var errMsg sql.NullString
	if runErr != nil {
		status = StatusFailed
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, output_path = ?, error = ?, finished_at = ? WHERE id = ?",
		status, outputPath, errMsg, s.now(), id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// Recent returns up to limit runs, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, model, device, status, output_path, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var output, errMsg sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.FileName, &r.Model, &r.Device, &r.Status,
			&output, &errMsg, &r.StartedAt, &finishedAt); err != nil {
			return nil, err
		}
		r.OutputPath = output.String
		r.Error = errMsg.String
		if finishedAt.Valid {
			r.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
