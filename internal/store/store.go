// Package store persists analysis runs and per-question results in a local
// SQLite database, so past runs and their metrics stay queryable after the
// process exits.
package store

import "time"

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Question result statuses. A skipped question failed in isolation while the
// rest of the run proceeded.
const (
	ResultStatusCompleted = "completed"
	ResultStatusSkipped   = "skipped"
)

// Run is one invocation of the analysis pipeline.
type Run struct {
	ID          string
	DatasetPath string
	Fingerprint string
	Seed        int64
	RowsLoaded  int
	RowsClean   int
	Status      string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// QuestionResult is the outcome of one research question within a run.
// Metrics holds the evaluator report as a JSON document.
type QuestionResult struct {
	ID           string
	RunID        string
	QuestionID   string
	Task         string
	Status       string
	Error        string
	Cached       bool
	ArtifactPath string
	Metrics      string
	CreatedAt    time.Time
}
