package train

import (
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/canopy-analytics/canopy-cli/internal/forest"
	"github.com/canopy-analytics/canopy-cli/internal/schema"
	"github.com/canopy-analytics/canopy-cli/internal/split"
)

// Model is the persisted artifact for one research question: the fitted
// forest plus everything needed to predict with identical behavior later —
// the encoding (with its domains) and the provenance keys the cache checks.
type Model struct {
	QuestionID  string
	Task        schema.Task
	Forest      *forest.Forest
	Encoding    Encoding
	TrainedRows int
	Fingerprint string
	ParamsHash  string
	CreatedAt   time.Time
}

// forestTask maps the question task onto the forest's.
func forestTask(t schema.Task) forest.Task {
	if t == schema.TaskClassification {
		return forest.Classification
	}
	return forest.Regression
}

// Fit trains a forest for q on the training frame. The frame must already be
// cleaned and complete; condition is the ordinal domain attached by the
// cleaner. Fit always retrains — cache lookups live in LoadOrFit.
func Fit(q schema.Question, trainDF dataframe.DataFrame, condition schema.Domain, cfg forest.Config) (*Model, error) {
	log := zap.L().With(zap.String("question", q.ID))

	restricted, err := Restrict(trainDF, q)
	if err != nil {
		return nil, err
	}
	if restricted.Nrow() < split.DefaultMinRows {
		return nil, eris.Wrapf(split.ErrInsufficientData,
			"train: %s has %d training rows after restriction", q.ID, restricted.Nrow())
	}

	enc, err := BuildEncoding(restricted, q, condition)
	if err != nil {
		return nil, err
	}

	x, err := enc.Matrix(restricted)
	if err != nil {
		return nil, err
	}
	y, err := enc.TargetVector(restricted)
	if err != nil {
		return nil, err
	}

	cfg.Task = forestTask(q.Task)
	// The cache key hashes the requested configuration, not the resolved
	// one, so LoadOrFit can rebuild the same key without refitting.
	paramsHash := ParamsHash(cfg)
	fingerprint, err := Fingerprint(restricted)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	fitted, err := forest.Fit(x, y, cfg)
	if err != nil {
		return nil, eris.Wrapf(err, "train: fit %s", q.ID)
	}

	log.Info("train: fitted forest",
		zap.Int("rows", len(x)),
		zap.Int("features", fitted.NFeatures),
		zap.Int("trees", fitted.Cfg.Trees),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &Model{
		QuestionID:  q.ID,
		Task:        q.Task,
		Forest:      fitted,
		Encoding:    enc,
		TrainedRows: len(x),
		Fingerprint: fingerprint,
		ParamsHash:  paramsHash,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Predict encodes df with the model's stored encoding and returns raw
// predictions (regression values or class codes).
func (m *Model) Predict(df dataframe.DataFrame) ([]float64, error) {
	x, err := m.Encoding.Matrix(df)
	if err != nil {
		return nil, err
	}
	return m.Forest.Predict(x)
}

// PredictLabels is Predict for classifiers, decoded to target labels.
func (m *Model) PredictLabels(df dataframe.DataFrame) ([]string, error) {
	codes, err := m.Predict(df)
	if err != nil {
		return nil, err
	}
	return m.Encoding.Labels(codes)
}
