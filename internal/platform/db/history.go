package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is one validation run and its per-file outcomes.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	Input     string
	SkipSetup bool
	ExitCode  int
	Files     []FileRecord
}

// FileRecord is the outcome of validating one file. Nil counts were not
// found in the validator output.
type FileRecord struct {
	File     string
	Errors   *int
	Warnings *int
	Notes    *int
	Status   string
}

// HistoryStore persists validation runs.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore applies pending migrations and returns a store on db.
func NewHistoryStore(ctx context.Context, db *DB) (*HistoryStore, error) {
	if _, err := NewMigrator(db).Up(ctx); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Record stores run and its files in one transaction.
func (s *HistoryStore) Record(ctx context.Context, run RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	skip := 0
	if run.SkipSetup {
		skip = 1
	}
	if _, err := tx.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO validation_runs (id, started_at, input, skip_setup, exit_code) VALUES (?, ?, ?, ?, ?)`),
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.Input, skip, run.ExitCode,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	insertFile := s.db.Rebind(`INSERT INTO validation_files (run_id, position, file, errors, warnings, notes, status) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i, f := range run.Files {
		if _, err := tx.ExecContext(ctx, insertFile,
			run.ID, i, f.File, nullInt(f.Errors), nullInt(f.Warnings), nullInt(f.Notes), f.Status,
		); err != nil {
			return fmt.Errorf("insert file %s: %w", f.File, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first, with their files.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT id, started_at, input, skip_setup, exit_code FROM validation_runs ORDER BY started_at DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r       RunRecord
			started string
			skip    int
		)
		if err := rows.Scan(&r.ID, &started, &r.Input, &skip, &r.ExitCode); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at of %s: %w", r.ID, err)
		}
		r.SkipSetup = skip != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		files, err := s.files(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Files = files
	}
	return runs, nil
}

func (s *HistoryStore) files(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind(`SELECT file, errors, warnings, notes, status FROM validation_files WHERE run_id = ? ORDER BY position`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query files of %s: %w", runID, err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var errs, warnings, notes sql.NullInt64
		if err := rows.Scan(&f.File, &errs, &warnings, &notes, &f.Status); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.Errors, f.Warnings, f.Notes = intPtr(errs), intPtr(warnings), intPtr(notes)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
