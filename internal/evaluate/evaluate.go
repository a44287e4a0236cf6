// Package evaluate scores fitted models: out-of-bag RMSE for regressions,
// holdout confusion matrices for classifiers, and impurity-based feature
// importance rankings for both.
package evaluate

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/canopy-analytics/canopy-cli/internal/train"
)

// DefaultTopK is the importance ranking depth when none is configured.
const DefaultTopK = 10

// FeatureImportance is one entry of the importance ranking.
type FeatureImportance struct {
	Feature string  `yaml:"feature"`
	Weight  float64 `yaml:"weight"`
}

// RegressionReport summarizes a regression model.
type RegressionReport struct {
	OOBRMSE     float64             `yaml:"oob_rmse"`
	OOBCoverage int                 `yaml:"oob_coverage"`
	TrainedRows int                 `yaml:"trained_rows"`
	Importances []FeatureImportance `yaml:"importances"`
}

// ClassificationReport summarizes a classifier scored on a holdout.
type ClassificationReport struct {
	Levels      []string            `yaml:"levels"`
	Counts      [][]int             `yaml:"counts"`
	Accuracy    float64             `yaml:"accuracy"`
	Positive    string              `yaml:"positive"`
	Sensitivity Rate                `yaml:"sensitivity"`
	Specificity Rate                `yaml:"specificity"`
	HoldoutRows int                 `yaml:"holdout_rows"`
	Importances []FeatureImportance `yaml:"importances"`
}

// Regression reports the model's out-of-bag RMSE against the training
// targets it was fitted on. OOB predictions come only from trees whose
// bootstrap excluded the row, the forest's internal cross-validation
// substitute.
func Regression(m *train.Model, trainDF dataframe.DataFrame, topK int) (RegressionReport, error) {
	y, err := m.Encoding.TargetVector(trainDF)
	if err != nil {
		return RegressionReport{}, err
	}

	oob := m.Forest.OOBPredictions()
	if len(oob) != len(y) {
		return RegressionReport{}, eris.Errorf("evaluate: %d OOB rows but %d targets — wrong training frame", len(oob), len(y))
	}

	var sse float64
	covered := 0
	for i, p := range oob {
		if math.IsNaN(p) {
			continue
		}
		covered++
		sse += (p - y[i]) * (p - y[i])
	}
	if covered == 0 {
		return RegressionReport{}, eris.New("evaluate: no out-of-bag rows; increase the ensemble size")
	}

	report := RegressionReport{
		OOBRMSE:     math.Sqrt(sse / float64(covered)),
		OOBCoverage: covered,
		TrainedRows: m.TrainedRows,
		Importances: TopImportances(m, topK),
	}
	zap.L().Info("evaluate: regression",
		zap.String("question", m.QuestionID),
		zap.Float64("oob_rmse", report.OOBRMSE),
		zap.Int("oob_coverage", covered),
	)
	return report, nil
}

// Classification scores the model on a disjoint holdout frame. The holdout
// must already carry the question's row restriction.
func Classification(m *train.Model, holdout dataframe.DataFrame, positive string, topK int) (ClassificationReport, error) {
	actualCodes, err := m.Encoding.TargetVector(holdout)
	if err != nil {
		return ClassificationReport{}, err
	}
	actual, err := m.Encoding.Labels(actualCodes)
	if err != nil {
		return ClassificationReport{}, err
	}
	predicted, err := m.PredictLabels(holdout)
	if err != nil {
		return ClassificationReport{}, err
	}

	cm, err := Confusion(actual, predicted)
	if err != nil {
		return ClassificationReport{}, err
	}

	report := ClassificationReport{
		Levels:      cm.Levels,
		Counts:      cm.Counts,
		Accuracy:    cm.Accuracy(),
		Positive:    positive,
		Sensitivity: cm.Sensitivity(positive),
		Specificity: cm.Specificity(positive),
		HoldoutRows: len(actual),
		Importances: TopImportances(m, topK),
	}
	zap.L().Info("evaluate: classification",
		zap.String("question", m.QuestionID),
		zap.Float64("accuracy", report.Accuracy),
		zap.Int("holdout_rows", report.HoldoutRows),
	)
	return report, nil
}

// TopImportances ranks features by normalized impurity reduction, largest
// first, truncated to k (DefaultTopK when k <= 0).
func TopImportances(m *train.Model, k int) []FeatureImportance {
	if k <= 0 {
		k = DefaultTopK
	}

	weights := m.Forest.Importances()
	ranking := make([]FeatureImportance, 0, len(weights))
	for i, w := range weights {
		ranking = append(ranking, FeatureImportance{Feature: m.Encoding.Features[i], Weight: w})
	}
	sort.SliceStable(ranking, func(a, b int) bool { return ranking[a].Weight > ranking[b].Weight })

	if len(ranking) > k {
		ranking = ranking[:k]
	}
	return ranking
}
