package train

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-analytics/canopy-cli/internal/forest"
	"github.com/canopy-analytics/canopy-cli/internal/schema"
)

// frame loads a CSV literal with float defaults and explicit string columns.
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

// syntheticCSV builds a classification table: class b iff x1 > 0.5, with a
// correlated categorical column.
func syntheticCSV(n int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString("x1,cat,label\n")
	for i := 0; i < n; i++ {
		x1 := rng.Float64()
		cat, label := "low", "a"
		if x1 > 0.5 {
			cat, label = "high", "b"
		}
		fmt.Fprintf(&b, "%.4f,%s,%s\n", x1, cat, label)
	}
	return b.String()
}

func testQuestion() schema.Question {
	d := schema.NewDomain("label", []string{"a", "b"})
	return schema.Question{
		ID:            "synthetic",
		Task:          schema.TaskClassification,
		Target:        "label",
		Features:      []string{"x1", "cat"},
		TargetDomain:  &d,
		PositiveClass: "b",
	}
}

func TestBuildEncoding_DomainsPerColumnKind(t *testing.T) {
	df := frame(t, "x1,cat,label\n0.1,low,a\n0.9,high,b\n", "cat", "label")
	enc, err := BuildEncoding(df, testQuestion(), schema.ConditionDomain())
	require.NoError(t, err)

	_, hasNumeric := enc.Domains["x1"]
	assert.False(t, hasNumeric, "float columns are not categorical")

	d, ok := enc.Domains["cat"]
	require.True(t, ok)
	assert.Equal(t, []string{"high", "low"}, d.Levels, "observed levels in sorted order")
}

func TestBuildEncoding_MissingFeature(t *testing.T) {
	df := frame(t, "x1,label\n0.1,a\n", "label")
	_, err := BuildEncoding(df, testQuestion(), schema.ConditionDomain())
	assert.Error(t, err)
}

func TestMatrix_EncodesAndDetectsLevelMismatch(t *testing.T) {
	trainDF := frame(t, "x1,cat,label\n0.1,low,a\n0.9,high,b\n", "cat", "label")
	enc, err := BuildEncoding(trainDF, testQuestion(), schema.ConditionDomain())
	require.NoError(t, err)

	x, err := enc.Matrix(trainDF)
	require.NoError(t, err)
	require.Len(t, x, 2)
	assert.Equal(t, []float64{0.1, 1}, x[0]) // "low" codes to 1 in sorted {high,low}
	assert.Equal(t, []float64{0.9, 0}, x[1])

	unseen := frame(t, "x1,cat,label\n0.2,medium,a\n", "cat", "label")
	_, err = enc.Matrix(unseen)
	require.Error(t, err)
	assert.True(t, eris.Is(err, schema.ErrLevelMismatch), "unseen level must surface, not coerce")
}

func TestTargetVector_LabelsAndNumericCodes(t *testing.T) {
	q := testQuestion()
	df := frame(t, "x1,cat,label\n0.1,low,a\n0.9,high,b\n", "cat", "label")
	enc, err := BuildEncoding(df, q, schema.ConditionDomain())
	require.NoError(t, err)

	y, err := enc.TargetVector(df)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, y)

	// Numeric 0/1 targets (the derived overhead indicator) validate against
	// the domain size.
	numDomain := schema.NewDomain("flag", []string{"0", "1"})
	numEnc := Encoding{Features: []string{"x1"}, Domains: map[string]schema.Domain{}, Target: "flag", TargetDomain: &numDomain}
	numDF := frame(t, "x1,flag\n0.1,0\n0.9,1\n")
	y, err = numEnc.TargetVector(numDF)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, y)

	badDF := frame(t, "x1,flag\n0.1,0.5\n")
	_, err = numEnc.TargetVector(badDF)
	require.Error(t, err)
	assert.True(t, eris.Is(err, schema.ErrLevelMismatch))
}

func TestRestrict_KeepAndCollapse(t *testing.T) {
	q := schema.Question{
		ID:     "landuse-like",
		Task:   schema.TaskClassification,
		Target: "use",
		Restrict: &schema.RowRestriction{
			Column:   "use",
			Keep:     []string{"Residential", "Commercial/Industrial"},
			Collapse: map[string]string{"Commercial/Industrial": "Industrial"},
		},
	}
	df := frame(t, "x1,use\n1,Residential\n2,Commercial/Industrial\n3,Park\n", "use")

	out, err := Restrict(df, q)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Nrow())
	assert.ElementsMatch(t, []string{"Residential", "Industrial"}, out.Col("use").Records())
}

func TestFit_PredictLabels(t *testing.T) {
	df := frame(t, syntheticCSV(300, 1), "cat", "label")
	m, err := Fit(testQuestion(), df, schema.ConditionDomain(), forest.Config{Trees: 30, Seed: 5})
	require.NoError(t, err)

	holdout := frame(t, "x1,cat,label\n0.05,low,a\n0.95,high,b\n", "cat", "label")
	labels, err := m.PredictLabels(holdout)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels)
}

func TestSaveLoad_RoundTripPredictsIdentically(t *testing.T) {
	df := frame(t, syntheticCSV(200, 2), "cat", "label")
	m, err := Fit(testQuestion(), df, schema.ConditionDomain(), forest.Config{Trees: 15, Seed: 3})
	require.NoError(t, err)

	path := ArtifactPath(t.TempDir(), m.QuestionID)
	require.NoError(t, Save(m, path))

	restored, err := Load(path)
	require.NoError(t, err)

	want, err := m.Predict(df)
	require.NoError(t, err)
	got, err := restored.Predict(df)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, m.Fingerprint, restored.Fingerprint)
}

func TestLoadOrFit_CacheHitAndInvalidation(t *testing.T) {
	dir := t.TempDir()
	df := frame(t, syntheticCSV(200, 4), "cat", "label")
	cfg := forest.Config{Trees: 10, Seed: 9}

	_, cached, err := LoadOrFit(testQuestion(), df, schema.ConditionDomain(), cfg, dir, false)
	require.NoError(t, err)
	assert.False(t, cached, "first call must fit")

	_, cached, err = LoadOrFit(testQuestion(), df, schema.ConditionDomain(), cfg, dir, false)
	require.NoError(t, err)
	assert.True(t, cached, "second call must reuse the artifact")

	// force retrains even with a valid artifact.
	_, cached, err = LoadOrFit(testQuestion(), df, schema.ConditionDomain(), cfg, dir, true)
	require.NoError(t, err)
	assert.False(t, cached)

	// Different hyperparameters invalidate the cache.
	_, cached, err = LoadOrFit(testQuestion(), df, schema.ConditionDomain(), forest.Config{Trees: 20, Seed: 9}, dir, false)
	require.NoError(t, err)
	assert.False(t, cached)

	// Different training data invalidates the cache.
	other := frame(t, syntheticCSV(150, 5), "cat", "label")
	_, cached, err = LoadOrFit(testQuestion(), other, schema.ConditionDomain(), forest.Config{Trees: 20, Seed: 9}, dir, false)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestFit_InsufficientData(t *testing.T) {
	df := frame(t, "x1,cat,label\n0.1,low,a\n", "cat", "label")
	_, err := Fit(testQuestion(), df, schema.ConditionDomain(), forest.Config{Trees: 5, Seed: 1})
	assert.Error(t, err)
}
