package evaluate

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-analytics/canopy-cli/internal/forest"
	"github.com/canopy-analytics/canopy-cli/internal/schema"
	"github.com/canopy-analytics/canopy-cli/internal/train"
)

func TestConfusion_AlignsMismatchedLevelSets(t *testing.T) {
	// Truth has 3 categories; predictions reference a 4th unused one.
	actual := []string{"a", "b", "c", "a"}
	predicted := []string{"a", "b", "d", "a"}

	cm, err := Confusion(actual, predicted)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, cm.Levels)
	assert.Equal(t, 4, cm.Total())
	assert.InDelta(t, 0.75, cm.Accuracy(), 1e-9)
}

func TestConfusion_LengthMismatch(t *testing.T) {
	_, err := Confusion([]string{"a"}, []string{"a", "b"})
	assert.Error(t, err)
}

func TestSensitivitySpecificity_Binary(t *testing.T) {
	actual := []string{"yes", "yes", "yes", "no", "no"}
	predicted := []string{"yes", "yes", "no", "no", "yes"}

	cm, err := Confusion(actual, predicted)
	require.NoError(t, err)

	sens := cm.Sensitivity("yes")
	require.True(t, sens.Defined)
	assert.InDelta(t, 2.0/3.0, sens.Value, 1e-9)

	spec := cm.Specificity("yes")
	require.True(t, spec.Defined)
	assert.InDelta(t, 0.5, spec.Value, 1e-9)
}

func TestSpecificity_OneClassHoldoutIsUndefinedNotNaN(t *testing.T) {
	// Ground truth is all positives: no actual negatives exist, so
	// specificity has a zero denominator and must be explicitly undefined.
	actual := []string{"Residential", "Residential", "Residential"}
	predicted := []string{"Residential", "Industrial", "Residential"}

	cm, err := Confusion(actual, predicted)
	require.NoError(t, err)

	spec := cm.Specificity("Residential")
	assert.False(t, spec.Defined, "zero denominator must be reported as undefined")

	sens := cm.Sensitivity("Residential")
	require.True(t, sens.Defined)
	assert.InDelta(t, 2.0/3.0, sens.Value, 1e-9)

	// The absent class is the mirror case for sensitivity.
	assert.False(t, cm.Sensitivity("Industrial").Defined)
}

func frame(t *testing.T, csv string, stringCols ...string) dataframe.DataFrame {
	t.Helper()
	types := map[string]series.Type{}
	for _, c := range stringCols {
		types[c] = series.String
	}
	df := dataframe.ReadCSV(strings.NewReader(csv),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
		dataframe.WithTypes(types),
	)
	require.NoError(t, df.Err)
	return df
}

func regressionFixture(t *testing.T) (*train.Model, dataframe.DataFrame) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	var b strings.Builder
	b.WriteString("x1,x2,y\n")
	for i := 0; i < 250; i++ {
		x1 := rng.Float64()
		fmt.Fprintf(&b, "%.4f,%.4f,%.4f\n", x1, rng.Float64(), 10*x1)
	}
	df := frame(t, b.String())

	q := schema.Question{
		ID:       "linear",
		Task:     schema.TaskRegression,
		Target:   "y",
		Features: []string{"x1", "x2"},
	}
	m, err := train.Fit(q, df, schema.ConditionDomain(), forest.Config{Trees: 40, Seed: 2})
	require.NoError(t, err)
	return m, df
}

func TestRegression_OOBRMSEAndImportances(t *testing.T) {
	m, df := regressionFixture(t)

	report, err := Regression(m, df, 0)
	require.NoError(t, err)

	assert.Greater(t, report.OOBCoverage, 200)
	assert.Less(t, report.OOBRMSE, 2.0, "forest should track a noiseless linear target closely")
	require.Len(t, report.Importances, 2)
	assert.Equal(t, "x1", report.Importances[0].Feature, "informative feature must rank first")
}

func TestClassification_HoldoutReport(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var b strings.Builder
	b.WriteString("x1,label\n")
	for i := 0; i < 300; i++ {
		x1 := rng.Float64()
		label := "no"
		if x1 > 0.5 {
			label = "yes"
		}
		fmt.Fprintf(&b, "%.4f,%s\n", x1, label)
	}
	df := frame(t, b.String(), "label")

	d := schema.NewDomain("label", []string{"no", "yes"})
	q := schema.Question{
		ID:            "band",
		Task:          schema.TaskClassification,
		Target:        "label",
		Features:      []string{"x1"},
		TargetDomain:  &d,
		PositiveClass: "yes",
	}
	m, err := train.Fit(q, df, schema.ConditionDomain(), forest.Config{Trees: 30, Seed: 4})
	require.NoError(t, err)

	holdout := frame(t, "x1,label\n0.05,no\n0.10,no\n0.90,yes\n0.95,yes\n", "label")
	report, err := Classification(m, holdout, q.PositiveClass, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, report.HoldoutRows)
	assert.InDelta(t, 1.0, report.Accuracy, 1e-9)
	require.True(t, report.Sensitivity.Defined)
	require.True(t, report.Specificity.Defined)
	assert.InDelta(t, 1.0, report.Sensitivity.Value, 1e-9)
	assert.InDelta(t, 1.0, report.Specificity.Value, 1e-9)
}

func TestTopImportances_Truncates(t *testing.T) {
	m, _ := regressionFixture(t)
	assert.Len(t, TopImportances(m, 1), 1)
	assert.Len(t, TopImportances(m, 0), 2, "default K exceeds feature count; all features returned")
}
