// Package journal persists a record of provisioning runs in sqlite.
// Journaling is an observability aid: callers treat write failures as
// warnings, never as pipeline failures.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one provisioning invocation.
type Run struct {
	ID          string     `json:"id"`
	Packages    string     `json:"packages"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	LoopDevice  *string    `json:"loop_device,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Step is one executed pipeline stage within a run.
type Step struct {
	RunID       string    `json:"run_id"`
	Seq         int       `json:"seq"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Error       *string   `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Artifact is one package file placed into the repository directory.
type Artifact struct {
	RunID   string `json:"run_id"`
	Package string `json:"package"`
	Path    string `json:"path"`
	Digest  string `json:"digest"`
	Size    int64  `json:"size"`
}

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path and applies
// the schema.
func Open(ctx context.Context, path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal db %s: %w", path, err)
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) BeginRun(ctx context.Context, packages []string) (*Run, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}

	run := &Run{
		ID:        id.String(),
		Packages:  strings.Join(packages, " "),
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}

	query := `
		INSERT INTO runs (id, packages, status, started_at)
		VALUES (?, ?, ?, ?)
	`

	_, err = j.db.ExecContext(ctx, query, run.ID, run.Packages, run.Status, run.StartedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	return run, nil
}

func (j *Journal) RecordStep(ctx context.Context, runID string, seq int, name string, stepErr error) error {
	status := StatusSucceeded
	var errText *string
	if stepErr != nil {
		status = StatusFailed
		s := stepErr.Error()
		errText = &s
	}

	query := `
		INSERT INTO steps (run_id, seq, name, status, error, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query, runID, seq, name, status, errText, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("inserting step %d (%s): %w", seq, name, err)
	}

	return nil
}

func (j *Journal) RecordArtifact(ctx context.Context, a Artifact) error {
	query := `
		INSERT INTO artifacts (run_id, package, path, digest, size)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(ctx, query, a.RunID, a.Package, a.Path, a.Digest, a.Size)
	if err != nil {
		return fmt.Errorf("inserting artifact %s: %w", a.Path, err)
	}

	return nil
}

// SetLoopDevice records the loop device assigned to the run.
func (j *Journal) SetLoopDevice(ctx context.Context, runID, device string) error {
	_, err := j.db.ExecContext(ctx, `UPDATE runs SET loop_device = ? WHERE id = ?`, device, runID)
	if err != nil {
		return fmt.Errorf("updating run loop device: %w", err)
	}

	return nil
}

func (j *Journal) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := StatusSucceeded
	var errText *string
	if runErr != nil {
		status = StatusFailed
		s := runErr.Error()
		errText = &s
	}

	query := `
		UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?
	`

	_, err := j.db.ExecContext(ctx, query, status, errText, time.Now().Unix(), runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}

	return nil
}

// ListRuns returns all runs, newest first.
func (j *Journal) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
		SELECT id, packages, status, error, loop_device, started_at, completed_at
		FROM runs ORDER BY started_at DESC
	`

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt int64
		var completedAt sql.NullInt64
		var errText, loopDevice sql.NullString

		err := rows.Scan(&run.ID, &run.Packages, &run.Status, &errText, &loopDevice, &startedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		run.StartedAt = time.Unix(startedAt, 0)
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0)
			run.CompletedAt = &t
		}
		if errText.Valid {
			run.Error = &errText.String
		}
		if loopDevice.Valid {
			run.LoopDevice = &loopDevice.String
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ListSteps returns the steps of one run in execution order.
func (j *Journal) ListSteps(ctx context.Context, runID string) ([]Step, error) {
	query := `
		SELECT run_id, seq, name, status, error, completed_at
		FROM steps WHERE run_id = ? ORDER BY seq ASC
	`

	rows, err := j.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying steps of %s: %w", runID, err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var step Step
		var completedAt int64
		var errText sql.NullString

		err := rows.Scan(&step.RunID, &step.Seq, &step.Name, &step.Status, &errText, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}

		step.CompletedAt = time.Unix(completedAt, 0)
		if errText.Valid {
			step.Error = &errText.String
		}

		steps = append(steps, step)
	}

	return steps, rows.Err()
}
