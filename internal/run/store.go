package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "run", "open", "ensure directories", err)
	}

	dbPath := cfg.RunDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "run", "open", dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStorage, "run", "open",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStorage, "run", "open", "init schema", err)
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

// CreateRun inserts a new run for the occurrence in the scanning state.
func (s *Store) CreateRun(ctx context.Context, occurrence string) (*Run, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (occurrence, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		occurrence, StatusScanning, now, now,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "run", "create", occurrence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "run", "create", "last insert id", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads one run.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRunColumns+` WHERE id = ?`, id)
	return scanRun(row)
}

// GetByOccurrence loads the run for an occurrence, or nil when none exists.
func (s *Store) GetByOccurrence(ctx context.Context, occurrence string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRunColumns+` WHERE occurrence = ?`, occurrence)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// Transition moves a run to a new status and records why.
func (s *Store) Transition(ctx context.Context, id int64, to Status, cause string) error {
	if !to.Valid() {
		return services.Wrap(services.ErrValidation, "run", "transition", string(to), nil)
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrStorage, "run", "transition", "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		to, now, id,
	); err != nil {
		return services.Wrap(services.ErrStorage, "run", "transition", "update run", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_transitions (run_id, from_status, to_status, cause, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		id, current.Status, to, cause, now,
	); err != nil {
		return services.Wrap(services.ErrStorage, "run", "transition", "insert transition", err)
	}
	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrStorage, "run", "transition", "commit", err)
	}
	return nil
}

// SetCapture records which receiver produced the audio and at what level.
func (s *Store) SetCapture(ctx context.Context, id int64, receiver string, levelDB float64, scanGeneration string) error {
	return s.update(ctx, id,
		`UPDATE runs SET receiver = ?, level_db = ?, scan_generation = ?, updated_at = ? WHERE id = ?`,
		receiver, levelDB, scanGeneration)
}

// SetResult records the published artifact.
func (s *Store) SetResult(ctx context.Context, id int64, outputPath string, trimmed bool, reviewReason string) error {
	return s.update(ctx, id,
		`UPDATE runs SET output_path = ?, trimmed = ?, review_reason = ?, updated_at = ? WHERE id = ?`,
		outputPath, trimmed, reviewReason)
}

// SetError records the failure message on a run.
func (s *Store) SetError(ctx context.Context, id int64, message string) error {
	return s.update(ctx, id,
		`UPDATE runs SET error = ?, updated_at = ? WHERE id = ?`,
		message)
}

func (s *Store) update(ctx context.Context, id int64, query string, args ...any) error {
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return services.Wrap(services.ErrStorage, "run", "update", "", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectRunColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "run", "list", "", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "run", "list", "iterate", err)
	}
	return runs, nil
}

// Transitions returns the ordered transition history for a run.
func (s *Store) Transitions(ctx context.Context, runID int64) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, from_status, to_status, cause, created_at
         FROM run_transitions WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "run", "transitions", "", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		var created string
		if err := rows.Scan(&tr.ID, &tr.RunID, &tr.FromStatus, &tr.ToStatus, &tr.Cause, &created); err != nil {
			return nil, services.Wrap(services.ErrStorage, "run", "transitions", "scan", err)
		}
		tr.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, tr)
	}
	return out, rows.Err()
}

const selectRunColumns = `SELECT id, occurrence, status, receiver, level_db, scan_generation,
    output_path, trimmed, review_reason, error, created_at, updated_at FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var trimmed int
	var created, updated string
	err := row.Scan(&r.ID, &r.Occurrence, &r.Status, &r.Receiver, &r.LevelDB,
		&r.ScanGeneration, &r.OutputPath, &trimmed, &r.ReviewReason, &r.Error,
		&created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrStorage, "run", "scan", "", err)
	}
	r.Trimmed = trimmed != 0
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &r, nil
}
