// Package journal keeps a Postgres row per pipeline run.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/pipeline"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	state         TEXT NOT NULL,
	language      TEXT NOT NULL DEFAULT '',
	failed_stage  TEXT NOT NULL DEFAULT '',
	failure_kind  TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	skipped       TEXT NOT NULL DEFAULT '',
	transcript    TEXT NOT NULL DEFAULT '',
	advice        TEXT NOT NULL DEFAULT '',
	tts_text      TEXT NOT NULL DEFAULT '',
	pronunciation TEXT NOT NULL DEFAULT '',
	stages        TEXT[] NOT NULL DEFAULT '{}',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL
)`

// Entry is one stored run.
type Entry struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	State       string    `json:"state"`
	Language    string    `json:"language"`
	FailedStage string    `json:"failed_stage,omitempty"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	Stages      []string  `json:"stages"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

type Journal struct {
	db      *sql.DB
	timeout time.Duration
	logger  *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		db:      db,
		timeout: 5 * time.Second,
		logger:  logger.With(zap.String("component", "journal")),
	}
}

func (j *Journal) Migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate pipeline_runs: %w", err)
	}
	return nil
}

func (j *Journal) StageDone(*pipeline.Run, pipeline.StageReport) {}

// RunDone stores the run; a failed insert is only logged.
func (j *Journal) RunDone(run *pipeline.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if err := j.Insert(ctx, run); err != nil {
		j.logger.Error("journal insert failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (j *Journal) Insert(ctx context.Context, run *pipeline.Run) error {
	var failedStage, failureKind, errText string
	if run.Failure != nil {
		failedStage = string(run.Failure.Stage)
		failureKind = string(run.Failure.Kind)
		errText = run.Failure.Error()
	}

	stages := make([]string, 0, len(run.Stages))
	for _, s := range run.Stages {
		stages = append(stages, fmt.Sprintf("%s:%d", s.Stage, s.Duration.Milliseconds()))
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			id, source, state, language, failed_stage, failure_kind, error, skipped,
			transcript, advice, tts_text, pronunciation, stages, started_at, finished_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		run.ID, run.Source, string(run.State), run.Language(), failedStage, failureKind, errText, string(run.Skipped),
		run.Transcript.Text, run.Advice, run.Prepared.Text, string(run.Prepared.Outcome),
		pq.Array(stages), run.StartedAt, run.FinishedAt, run.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, source, state, language, failed_stage, failure_kind, error, stages, started_at, duration_ms
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.Source,
			&e.State,
			&e.Language,
			&e.FailedStage,
			&e.FailureKind,
			&e.Error,
			pq.Array(&e.Stages),
			&e.StartedAt,
			&e.DurationMS,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
