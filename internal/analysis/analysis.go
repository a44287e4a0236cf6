// Package analysis orchestrates the full pipeline: the shared cleaning stages
// run once, then the four research questions train and evaluate sequentially.
// Shared-stage failures abort the run; a question failure skips that question
// and the run continues.
package analysis

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/canopy-analytics/canopy-cli/internal/dataset"
	"github.com/canopy-analytics/canopy-cli/internal/evaluate"
	"github.com/canopy-analytics/canopy-cli/internal/forest"
	"github.com/canopy-analytics/canopy-cli/internal/schema"
	"github.com/canopy-analytics/canopy-cli/internal/split"
	"github.com/canopy-analytics/canopy-cli/internal/store"
	"github.com/canopy-analytics/canopy-cli/internal/train"
)

// Options configures a run. Store and ReportPath are optional; leave them
// zero to skip run recording or the YAML report.
type Options struct {
	DataPath     string
	ArtifactsDir string
	ReportPath   string
	Split        split.Config
	Forest       forest.Config
	TopK         int
	Force        bool
	Store        *store.SQLiteStore
}

// QuestionOutcome is one research question's result within a run report.
type QuestionOutcome struct {
	QuestionID     string                         `yaml:"question"`
	Task           string                         `yaml:"task"`
	Status         string                         `yaml:"status"`
	Error          string                         `yaml:"error,omitempty"`
	Cached         bool                           `yaml:"cached"`
	Regression     *evaluate.RegressionReport     `yaml:"regression,omitempty"`
	Classification *evaluate.ClassificationReport `yaml:"classification,omitempty"`
}

// Report is the run summary written to report.yaml.
type Report struct {
	RunID       string              `yaml:"run_id,omitempty"`
	DatasetPath string              `yaml:"dataset"`
	Seed        int64               `yaml:"seed"`
	Cleaning    dataset.CleanReport `yaml:"cleaning"`
	TrainRows   int                 `yaml:"train_rows"`
	HoldoutRows int                 `yaml:"holdout_rows"`
	Questions   []QuestionOutcome   `yaml:"questions"`
	CreatedAt   time.Time           `yaml:"created_at"`
}

// Prepare runs the shared stages: load, normalize, coerce, clean, eliminate.
// Every research question consumes the same prepared table.
func Prepare(path string) (dataset.Result, error) {
	df, err := dataset.Load(path)
	if err != nil {
		return dataset.Result{}, err
	}
	if df, err = dataset.Normalize(df); err != nil {
		return dataset.Result{}, err
	}
	if df, err = dataset.Coerce(df); err != nil {
		return dataset.Result{}, err
	}
	res, err := dataset.Clean(df)
	if err != nil {
		return dataset.Result{}, err
	}
	return dataset.Eliminate(res)
}

// Run executes the full analysis under opts.
func Run(ctx context.Context, opts Options) (*Report, error) {
	log := zap.L().With(zap.String("dataset", opts.DataPath))
	started := time.Now().UTC()

	var run *store.Run
	if opts.Store != nil {
		var err error
		run, err = opts.Store.CreateRun(ctx, opts.DataPath, opts.Split.Seed)
		if err != nil {
			return nil, err
		}
	}

	report, err := execute(ctx, opts, run)
	if opts.Store != nil && run != nil {
		if err != nil {
			run.Status = store.RunStatusFailed
			run.Error = err.Error()
		} else {
			run.Status = store.RunStatusCompleted
		}
		if uerr := opts.Store.UpdateRun(ctx, run); uerr != nil {
			log.Warn("analysis: failed to record run", zap.Error(uerr))
		}
	}
	if err != nil {
		return nil, err
	}

	if run != nil {
		report.RunID = run.ID
	}
	report.CreatedAt = started

	if opts.ReportPath != "" {
		if err := writeReport(report, opts.ReportPath); err != nil {
			return nil, err
		}
		log.Info("analysis: wrote report", zap.String("path", opts.ReportPath))
	}
	return report, nil
}

func execute(ctx context.Context, opts Options, run *store.Run) (*Report, error) {
	res, err := Prepare(opts.DataPath)
	if err != nil {
		return nil, err
	}
	if run != nil {
		run.RowsLoaded = res.Report.InputRows
		run.RowsClean = res.Report.AfterEliminate
		if fp, ferr := train.Fingerprint(res.Table); ferr == nil {
			run.Fingerprint = fp
		}
	}

	part, err := split.Split(res.Table, opts.Split)
	if err != nil {
		return nil, err
	}

	report := &Report{
		DatasetPath: opts.DataPath,
		Seed:        opts.Split.Seed,
		Cleaning:    res.Report,
		TrainRows:   part.Train.Nrow(),
		HoldoutRows: part.Holdout.Nrow(),
	}

	for _, q := range schema.Questions() {
		outcome := answer(q, part, res.Condition, opts)
		report.Questions = append(report.Questions, outcome)
		recordOutcome(ctx, opts, run, q, outcome)
	}
	return report, nil
}

// answer trains and evaluates one question. Errors never propagate: the
// outcome carries them so the remaining questions still run.
func answer(q schema.Question, part split.Partition, condition schema.Domain, opts Options) QuestionOutcome {
	log := zap.L().With(zap.String("question", q.ID))
	outcome := QuestionOutcome{QuestionID: q.ID, Task: string(q.Task)}

	m, cached, err := train.LoadOrFit(q, part.Train, condition, opts.Forest, opts.ArtifactsDir, opts.Force)
	if err != nil {
		log.Warn("analysis: question skipped", zap.Error(err))
		outcome.Status = store.ResultStatusSkipped
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Cached = cached

	switch q.Task {
	case schema.TaskClassification:
		holdout, rerr := train.Restrict(part.Holdout, q)
		if rerr == nil {
			var cr evaluate.ClassificationReport
			cr, rerr = evaluate.Classification(m, holdout, q.PositiveClass, opts.TopK)
			if rerr == nil {
				outcome.Classification = &cr
			}
		}
		err = rerr
	default:
		trainFrame, rerr := train.Restrict(part.Train, q)
		if rerr == nil {
			var rr evaluate.RegressionReport
			rr, rerr = evaluate.Regression(m, trainFrame, opts.TopK)
			if rerr == nil {
				outcome.Regression = &rr
			}
		}
		err = rerr
	}

	if err != nil {
		log.Warn("analysis: evaluation failed", zap.Error(err))
		outcome.Status = store.ResultStatusSkipped
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = store.ResultStatusCompleted
	return outcome
}

func recordOutcome(ctx context.Context, opts Options, run *store.Run, q schema.Question, outcome QuestionOutcome) {
	if opts.Store == nil || run == nil {
		return
	}

	metrics := ""
	if outcome.Regression != nil || outcome.Classification != nil {
		if data, err := json.Marshal(outcome); err == nil {
			metrics = string(data)
		}
	}
	qr := &store.QuestionResult{
		RunID:        run.ID,
		QuestionID:   q.ID,
		Task:         string(q.Task),
		Status:       outcome.Status,
		Error:        outcome.Error,
		Cached:       outcome.Cached,
		ArtifactPath: train.ArtifactPath(opts.ArtifactsDir, q.ID),
		Metrics:      metrics,
	}
	if err := opts.Store.SaveQuestionResult(ctx, qr); err != nil {
		zap.L().Warn("analysis: failed to record question result",
			zap.String("question", q.ID), zap.Error(err))
	}
}

// TrainOne trains (or loads the cached artifact for) a single question and
// evaluates it against a fresh split of the prepared table.
func TrainOne(questionID string, opts Options) (QuestionOutcome, error) {
	q, ok := schema.QuestionByID(questionID)
	if !ok {
		return QuestionOutcome{}, eris.Errorf("analysis: unknown question %q", questionID)
	}

	res, err := Prepare(opts.DataPath)
	if err != nil {
		return QuestionOutcome{}, err
	}
	part, err := split.Split(res.Table, opts.Split)
	if err != nil {
		return QuestionOutcome{}, err
	}

	outcome := answer(q, part, res.Condition, opts)
	if outcome.Status == store.ResultStatusSkipped {
		return outcome, eris.New(outcome.Error)
	}
	return outcome, nil
}

func writeReport(report *Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "analysis: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "analysis: write report %s", path)
	}
	return nil
}
