package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/census-disagg/internal/db"
	"github.com/sells-group/census-disagg/internal/model"
)

// PostgresStore implements Store on the disagg schema. The pool is owned by
// the caller, which usually shares it with the assignment sink.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore over pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS disagg;

CREATE TABLE IF NOT EXISTS disagg.runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	config      JSONB NOT NULL,
	summary     JSONB,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS disagg.run_shortfall (
	run_id      TEXT NOT NULL REFERENCES disagg.runs(id),
	position    INTEGER NOT NULL,
	rule        TEXT NOT NULL,
	expected    INTEGER NOT NULL,
	by_rule     INTEGER NOT NULL,
	by_residual INTEGER NOT NULL,
	unresolved  INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON disagg.runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON disagg.runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error {
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, cfg model.RunConfig) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal config")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO disagg.runs (id, status, config, started_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusRunning), cfgJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		Config:    cfg,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary, runErr error) error {
	var summaryJSON []byte
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal summary")
		}
		summaryJSON = b
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin finish run")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE disagg.runs SET status = $1, summary = $2, error = $3, finished_at = $4 WHERE id = $5`,
		string(status), summaryJSON, errText(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}

	if summary != nil && len(summary.Rules) > 0 {
		rows := make([][]any, len(summary.Rules))
		for i, r := range summary.Rules {
			rows[i] = []any{runID, r.Position, r.Rule, r.Expected, r.ByRule, r.ByResidual, r.Unresolved}
		}
		_, err := db.CopyFromSchema(ctx, tx, "disagg", "run_shortfall",
			[]string{"run_id", "position", "rule", "expected", "by_rule", "by_residual", "unresolved"},
			rows,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: copy shortfall %s", runID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit finish run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, config, summary, error, started_at, finished_at FROM disagg.runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if r.Summary == nil {
		return r, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT rule, position, expected, by_rule, by_residual, unresolved
		 FROM disagg.run_shortfall WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query shortfall %s", runID)
	}
	defer rows.Close()

	r.Summary.Rules = nil
	for rows.Next() {
		var rs model.RuleShortfall
		if err := rows.Scan(&rs.Rule, &rs.Position, &rs.Expected, &rs.ByRule, &rs.ByResidual, &rs.Unresolved); err != nil {
			return nil, eris.Wrap(err, "postgres: scan shortfall")
		}
		r.Summary.Rules = append(r.Summary.Rules, rs)
	}
	return r, eris.Wrap(rows.Err(), "postgres: iterate shortfall")
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, config, summary, error, started_at, finished_at FROM disagg.runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY started_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var cfgJSON []byte
	var summaryJSON []byte

	if err := row.Scan(&r.ID, &status, &cfgJSON, &summaryJSON, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal(cfgJSON, &r.Config); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal config")
	}
	if summaryJSON != nil {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	return &r, nil
}
