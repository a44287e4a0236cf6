package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore records runs using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	dataset_path TEXT NOT NULL,
	fingerprint  TEXT NOT NULL DEFAULT '',
	seed         INTEGER NOT NULL DEFAULT 0,
	rows_loaded  INTEGER NOT NULL DEFAULT 0,
	rows_clean   INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'running',
	error        TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS question_results (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	question_id   TEXT NOT NULL,
	task          TEXT NOT NULL,
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	cached        INTEGER NOT NULL DEFAULT 0,
	artifact_path TEXT NOT NULL DEFAULT '',
	metrics       TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_question_results_run_id ON question_results(run_id);
CREATE INDEX IF NOT EXISTS idx_question_results_question_id ON question_results(question_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, datasetPath string, seed int64) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset_path, seed, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, datasetPath, seed, RunStatusRunning, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:          id,
		DatasetPath: datasetPath,
		Seed:        seed,
		Status:      RunStatusRunning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateRun persists the mutable fields of a run in place.
func (s *SQLiteStore) UpdateRun(ctx context.Context, r *Run) error {
	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET fingerprint = ?, rows_loaded = ?, rows_clean = ?, status = ?, error = ?, updated_at = ? WHERE id = ?`,
		r.Fingerprint, r.RowsLoaded, r.RowsClean, r.Status, r.Error, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", r.ID)
	}
	return checkRowsAffected(res, "run", r.ID)
}

func (s *SQLiteStore) SaveQuestionResult(ctx context.Context, qr *QuestionResult) error {
	if qr.ID == "" {
		qr.ID = uuid.New().String()
	}
	if qr.CreatedAt.IsZero() {
		qr.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO question_results (id, run_id, question_id, task, status, error, cached, artifact_path, metrics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		qr.ID, qr.RunID, qr.QuestionID, qr.Task, qr.Status, qr.Error, qr.Cached, qr.ArtifactPath, qr.Metrics, qr.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert result for run %s", qr.RunID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, dataset_path, fingerprint, seed, rows_loaded, rows_clean, status, error, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset_path, fingerprint, seed, rows_loaded, rows_clean, status, error, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) QuestionResults(ctx context.Context, runID string) ([]QuestionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, question_id, task, status, error, cached, artifact_path, metrics, created_at
		 FROM question_results WHERE run_id = ? ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: results for run %s", runID)
	}
	defer rows.Close()

	var results []QuestionResult
	for rows.Next() {
		var qr QuestionResult
		if err := rows.Scan(&qr.ID, &qr.RunID, &qr.QuestionID, &qr.Task, &qr.Status, &qr.Error,
			&qr.Cached, &qr.ArtifactPath, &qr.Metrics, &qr.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		results = append(results, qr)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: results iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.DatasetPath, &r.Fingerprint, &r.Seed, &r.RowsLoaded, &r.RowsClean,
		&r.Status, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
