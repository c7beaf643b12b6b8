// Package runlog persists the history of reconciliation runs in the index
// database: one row per run with its status, the stage that failed, and the
// counters it produced.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbsmedya/custrecon/internal/logger"
)

// Status is the state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const createRunTableSQL = `
CREATE TABLE IF NOT EXISTS recon_run (
	run_id CHAR(36) PRIMARY KEY,
	command VARCHAR(64) NOT NULL,
	sources VARCHAR(255) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'running',
	failed_stage VARCHAR(64),
	error_message TEXT,
	counters JSON,
	started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	finished_at TIMESTAMP NULL,
	INDEX idx_status (status),
	INDEX idx_started (started_at)
) ENGINE=InnoDB;
`

// Run is one row of recon_run.
type Run struct {
	ID          string
	Command     string
	Sources     string
	Status      Status
	FailedStage string
	Error       string
	Counters    map[string]int64
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// Store reads and writes recon_run.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB, log *logger.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{db: db, logger: log}, nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// InitializeTable creates recon_run if it does not exist.
func (s *Store) InitializeTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRunTableSQL); err != nil {
		return fmt.Errorf("failed to create recon_run table: %w", err)
	}
	s.logger.Debug("Run log table initialized")
	return nil
}

// Start records a new running run.
func (s *Store) Start(ctx context.Context, runID, command, sources string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO recon_run (run_id, command, sources, status) VALUES (?, ?, ?, ?)",
		runID, command, sources, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	s.logger.Debugf("Run %s started (%s: %s)", runID, command, sources)
	return nil
}

// Complete marks a run completed with its final counters.
func (s *Store) Complete(ctx context.Context, runID string, counters map[string]int64) error {
	payload, err := encodeCounters(counters)
	if err != nil {
		return err
	}
	return s.finish(ctx,
		"UPDATE recon_run SET status = ?, counters = ?, finished_at = CURRENT_TIMESTAMP WHERE run_id = ?",
		runID, StatusCompleted, payload, runID,
	)
}

// Fail marks a run failed. partial holds the counters reached before the
// failure; they are stored for diagnosis, never as a result.
func (s *Store) Fail(ctx context.Context, runID, stage string, runErr error, partial map[string]int64) error {
	payload, err := encodeCounters(partial)
	if err != nil {
		return err
	}
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	if err := s.finish(ctx,
		"UPDATE recon_run SET status = ?, failed_stage = ?, error_message = ?, counters = ?, finished_at = CURRENT_TIMESTAMP WHERE run_id = ?",
		runID, StatusFailed, stage, message, payload, runID,
	); err != nil {
		return err
	}
	s.logger.Warnf("Run %s failed at stage %s: %s", runID, stage, message)
	return nil
}

func (s *Store) finish(ctx context.Context, query, runID string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, command, sources, status, failed_stage, error_message, counters, started_at, finished_at "+
			"FROM recon_run ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("Failed to close rows: %v", err)
		}
	}()

	var runs []Run
	for rows.Next() {
		var (
			run                  Run
			stage, message, blob sql.NullString
			finished             sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Command, &run.Sources, &run.Status,
			&stage, &message, &blob, &run.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.FailedStage = stage.String
		run.Error = message.String
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		if blob.Valid && blob.String != "" {
			if err := json.Unmarshal([]byte(blob.String), &run.Counters); err != nil {
				return nil, fmt.Errorf("failed to decode counters of run %s: %w", run.ID, err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

func encodeCounters(counters map[string]int64) (string, error) {
	if counters == nil {
		counters = map[string]int64{}
	}
	payload, err := json.Marshal(counters)
	if err != nil {
		return "", fmt.Errorf("failed to encode counters: %w", err)
	}
	return string(payload), nil
}
