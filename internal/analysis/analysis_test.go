package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/canopy-analytics/canopy-cli/internal/forest"
	"github.com/canopy-analytics/canopy-cli/internal/schema"
	"github.com/canopy-analytics/canopy-cli/internal/split"
	"github.com/canopy-analytics/canopy-cli/internal/store"
)

// fixtureRow fills every required column for row i. Categorical columns cycle
// through two levels each so an 80/20 split always sees every level during
// training; numeric benefits track height so the regressions have signal.
func fixtureRow(i int) map[string]string {
	alt := func(a, b string) string {
		if i%2 == 0 {
			return a
		}
		return b
	}
	height := 20.0 + float64(i%50)
	row := map[string]string{
		schema.ColID:                "fixture-" + fmt.Sprint(i),
		schema.ColAddressNumber:     "100",
		schema.ColStreet:            alt("Main St", "Oak Ave"),
		schema.ColNeighborhood:      alt("Bloomfield", "Shadyside"),
		schema.ColWard:              "8",
		schema.ColTract:             "42",
		schema.ColFireZone:          "2-1",
		schema.ColPoliceZone:        "5",
		schema.ColLatitude:          fmt.Sprintf("%.4f", 40.45+float64(i)*0.0001),
		schema.ColLongitude:         "-79.9300",
		schema.ColCommonName:        alt("Red Maple", "Pin Oak"),
		schema.ColScientificName:    alt("Acer rubrum", "Quercus palustris"),
		schema.ColHeight:            fmt.Sprintf("%.1f", height),
		schema.ColWidth:             "15.0",
		schema.ColDiameterBase:      "12.5",
		schema.ColStems:             "1",
		schema.ColGrowthSpaceLength: "4.0",
		schema.ColGrowthSpaceWidth:  "3.0",
		schema.ColGrowthSpaceType:   alt("Well or Pit", "Open or Unrestricted"),
		schema.ColOverheadUtil:      alt("Yes", "No"),
		schema.ColLandUse:           alt("Residential", "Commercial/Industrial"),
		schema.ColCondition:         alt("Good", "Fair"),
	}
	for _, c := range schema.BenefitColumns {
		row[c] = "1.0"
	}
	row[schema.ColStormwaterElim] = fmt.Sprintf("%.1f", height*30)
	row[schema.ColTotalAirBenefits] = fmt.Sprintf("%.2f", height*0.5)
	return row
}

// writeFixture produces a 121-row dataset file: 120 plausible rows plus one
// stormwater outlier the plausibility filter must drop.
func writeFixture(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(strings.Join(schema.RequiredColumns, ","))
	b.WriteString("\n")
	writeRow := func(row map[string]string) {
		cells := make([]string, len(schema.RequiredColumns))
		for j, c := range schema.RequiredColumns {
			cells[j] = row[c]
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}

	for i := 0; i < 120; i++ {
		writeRow(fixtureRow(i))
	}
	outlier := fixtureRow(120)
	outlier[schema.ColStormwaterElim] = "15000"
	writeRow(outlier)

	path := filepath.Join(t.TempDir(), "trees.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testOptions(t *testing.T, dataPath string) Options {
	t.Helper()
	return Options{
		DataPath:     dataPath,
		ArtifactsDir: t.TempDir(),
		Split:        split.Config{Proportion: split.DefaultProportion, Seed: 1234},
		Forest:       forest.Config{Trees: 15, Seed: 1234},
		TopK:         5,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	opts := testOptions(t, writeFixture(t))
	opts.ReportPath = filepath.Join(t.TempDir(), "report.yaml")

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 121, report.Cleaning.InputRows)
	assert.Equal(t, 120, report.Cleaning.AfterFilter, "the stormwater outlier must be dropped")
	assert.Equal(t, 120, report.TrainRows+report.HoldoutRows)

	require.Len(t, report.Questions, 4)
	for _, q := range report.Questions {
		assert.Equal(t, store.ResultStatusCompleted, q.Status, q.QuestionID)
		assert.Empty(t, q.Error, q.QuestionID)
	}

	// Regression questions report OOB metrics; classifiers report holdout
	// confusion summaries.
	byID := map[string]QuestionOutcome{}
	for _, q := range report.Questions {
		byID[q.QuestionID] = q
	}
	require.NotNil(t, byID["stormwater"].Regression)
	require.NotNil(t, byID["air"].Regression)
	require.NotNil(t, byID["overhead"].Classification)
	require.NotNil(t, byID["landuse"].Classification)
	assert.Greater(t, byID["stormwater"].Regression.OOBCoverage, 0)
	assert.Greater(t, byID["overhead"].Classification.HoldoutRows, 0)

	// The report file round-trips.
	data, err := os.ReadFile(opts.ReportPath)
	require.NoError(t, err)
	var restored Report
	require.NoError(t, yaml.Unmarshal(data, &restored))
	assert.Equal(t, report.TrainRows, restored.TrainRows)
	require.Len(t, restored.Questions, 4)
}

func TestRun_SecondRunHitsCache(t *testing.T) {
	opts := testOptions(t, writeFixture(t))

	first, err := Run(context.Background(), opts)
	require.NoError(t, err)
	for _, q := range first.Questions {
		assert.False(t, q.Cached, q.QuestionID)
	}

	second, err := Run(context.Background(), opts)
	require.NoError(t, err)
	for _, q := range second.Questions {
		assert.True(t, q.Cached, "unchanged data and parameters must reuse the artifact for %s", q.QuestionID)
	}
}

func TestRun_RecordsRunAndResults(t *testing.T) {
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	opts := testOptions(t, writeFixture(t))
	opts.Store = s

	report, err := Run(ctx, opts)
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)

	run, err := s.GetRun(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusCompleted, run.Status)
	assert.Equal(t, 121, run.RowsLoaded)
	assert.Equal(t, 120, run.RowsClean)
	assert.NotEmpty(t, run.Fingerprint)

	results, err := s.QuestionResults(ctx, report.RunID)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, store.ResultStatusCompleted, r.Status, r.QuestionID)
		assert.NotEmpty(t, r.Metrics, r.QuestionID)
	}
}

func TestRun_MissingDatasetFailsRun(t *testing.T) {
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	opts := testOptions(t, filepath.Join(t.TempDir(), "absent.csv"))
	opts.Store = s

	_, err = Run(ctx, opts)
	require.Error(t, err)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestTrainOne(t *testing.T) {
	opts := testOptions(t, writeFixture(t))

	outcome, err := TrainOne("overhead", opts)
	require.NoError(t, err)
	assert.Equal(t, store.ResultStatusCompleted, outcome.Status)
	require.NotNil(t, outcome.Classification)

	_, err = TrainOne("no-such-question", opts)
	assert.Error(t, err)
}
