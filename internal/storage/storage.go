// Package storage provides SQLite-backed history of stage runs and evaluations.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/finsent/internal/evaluate"
	"github.com/rewired-gh/finsent/internal/models"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db      *sql.DB
	maxRuns int
}

// New opens or creates the SQLite database at dbPath and keeps at most
// maxRuns runs (0 keeps all). An empty dbPath defaults to
// $TMPDIR/finsent/runs.db.
func New(maxRuns int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "finsent", "runs.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db, maxRuns: maxRuns}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			stage       TEXT NOT NULL,
			input       TEXT,
			output      TEXT,
			processed   INTEGER NOT NULL DEFAULT 0,
			skipped     INTEGER NOT NULL DEFAULT 0,
			status      TEXT NOT NULL,
			error       TEXT,
			started_at  INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			run_id      TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			matched     INTEGER NOT NULL,
			accuracy    REAL NOT NULL,
			macro_f1    REAL NOT NULL,
			weighted_f1 REAL NOT NULL,
			ece         REAL NOT NULL,
			bins        INTEGER NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS label_scores (
			run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			label     TEXT NOT NULL,
			precision REAL NOT NULL,
			recall    REAL NOT NULL,
			f1        REAL NOT NULL,
			support   INTEGER NOT NULL,
			PRIMARY KEY (run_id, label)
		)`,
		`CREATE TABLE IF NOT EXISTS calibration_bins (
			run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx             INTEGER NOT NULL,
			lower           REAL NOT NULL,
			upper           REAL NOT NULL,
			count           INTEGER NOT NULL,
			accuracy        REAL NOT NULL,
			mean_confidence REAL NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddRun records a finished stage run and enforces the retention cap.
func (s *Storage) AddRun(run *models.StageRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO runs
			(id, stage, input, output, processed, skipped, status, error, started_at, duration_ns)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Stage, run.Input, run.Output, run.Processed, run.Skipped,
		run.Status, run.Error, run.StartedAt.UnixNano(), int64(run.Duration),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if err := rotate(tx, s.maxRuns); err != nil {
		return err
	}
	return tx.Commit()
}

// GetRun returns the run with the given ID.
func (s *Storage) GetRun(id string) (*models.StageRun, error) {
	row := s.db.QueryRow(`SELECT `+runCols+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Storage) RecentRuns(limit int) ([]*models.StageRun, error) {
	rows, err := s.db.Query(`SELECT `+runCols+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()
	runs := []*models.StageRun{}
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SaveEvaluation stores a report against an existing run.
func (s *Storage) SaveEvaluation(runID string, r *evaluate.Report, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	c := r.Classification
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO evaluations
			(run_id, matched, accuracy, macro_f1, weighted_f1, ece, bins, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		runID, r.Matched, c.Accuracy, c.MacroAvg.F1, c.WeightedAvg.F1,
		r.Calibration.ECE, len(r.Calibration.Bins), at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}

	for i, l := range models.LabelOrder {
		sc := c.PerLabel[i]
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO label_scores (run_id, label, precision, recall, f1, support)
			VALUES (?,?,?,?,?,?)`,
			runID, string(l), sc.Precision, sc.Recall, sc.F1, sc.Support,
		); err != nil {
			return fmt.Errorf("failed to insert label scores: %w", err)
		}
	}

	for i, b := range r.Calibration.Bins {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO calibration_bins
				(run_id, idx, lower, upper, count, accuracy, mean_confidence)
			VALUES (?,?,?,?,?,?,?)`,
			runID, i, b.Lower, b.Upper, b.Count, b.Accuracy, b.MeanConfidence,
		); err != nil {
			return fmt.Errorf("failed to insert calibration bin: %w", err)
		}
	}
	return tx.Commit()
}

// RecentEvaluations returns up to limit evaluation summaries, newest first.
func (s *Storage) RecentEvaluations(limit int) ([]models.EvaluationSummary, error) {
	rows, err := s.db.Query(`
		SELECT run_id, matched, accuracy, macro_f1, weighted_f1, ece, bins, created_at
		FROM evaluations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	evals := []models.EvaluationSummary{}
	for rows.Next() {
		var e models.EvaluationSummary
		var createdAtNano int64
		if err := rows.Scan(&e.RunID, &e.Matched, &e.Accuracy, &e.MacroF1, &e.WeightedF1,
			&e.ECE, &e.Bins, &createdAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		e.CreatedAt = time.Unix(0, createdAtNano)
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// CalibrationBins returns the stored per-bin breakdown of one evaluation.
func (s *Storage) CalibrationBins(runID string) ([]evaluate.Bin, error) {
	rows, err := s.db.Query(`
		SELECT lower, upper, count, accuracy, mean_confidence
		FROM calibration_bins WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration bins: %w", err)
	}
	defer rows.Close()

	var bins []evaluate.Bin
	for rows.Next() {
		var b evaluate.Bin
		if err := rows.Scan(&b.Lower, &b.Upper, &b.Count, &b.Accuracy, &b.MeanConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan calibration bin: %w", err)
		}
		bins = append(bins, b)
	}
	return bins, rows.Err()
}

// RotateRuns keeps at most maxRuns newest runs by start time.
// Cascading deletes remove the associated evaluation rows.
func (s *Storage) RotateRuns() error {
	return rotate(s.db, s.maxRuns)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func rotate(db execer, maxRuns int) error {
	if maxRuns <= 0 {
		return nil
	}
	_, err := db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)`, maxRuns)
	if err != nil {
		return fmt.Errorf("failed to rotate runs: %w", err)
	}
	return nil
}

const runCols = `id, stage, input, output, processed, skipped, status, error, started_at, duration_ns`

func scanRun(scan func(...any) error) (*models.StageRun, error) {
	var r models.StageRun
	var input, output, errText sql.NullString
	var startedAtNano, durationNano int64
	err := scan(
		&r.ID, &r.Stage, &input, &output, &r.Processed, &r.Skipped,
		&r.Status, &errText, &startedAtNano, &durationNano,
	)
	if err != nil {
		return nil, err
	}
	r.Input = input.String
	r.Output = output.String
	r.Error = errText.String
	r.StartedAt = time.Unix(0, startedAtNano)
	r.Duration = time.Duration(durationNano)
	return &r, nil
}
