package dataset

import (
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/require"

	"github.com/canopy-analytics/canopy-cli/internal/schema"
)

// testColumns is the canonical header used by fixtures. Canonical names pass
// through the normalizer unchanged, which keeps fixtures readable.
var testColumns = schema.RequiredColumns

// defaultCell returns a plausible value for a column.
func defaultCell(col string) string {
	switch col {
	case schema.ColID:
		return "1"
	case schema.ColAddressNumber:
		return "4620"
	case schema.ColStreet:
		return "Forbes Ave"
	case schema.ColNeighborhood:
		return "Squirrel Hill North"
	case schema.ColWard:
		return "14"
	case schema.ColTract:
		return "140300"
	case schema.ColFireZone:
		return "2-18"
	case schema.ColPoliceZone:
		return "4"
	case schema.ColLatitude:
		return "40.4388"
	case schema.ColLongitude:
		return "-79.9228"
	case schema.ColCommonName:
		return "Red Maple"
	case schema.ColScientificName:
		return "Acer rubrum"
	case schema.ColHeight:
		return "40"
	case schema.ColWidth:
		return "30"
	case schema.ColDiameterBase:
		return "12"
	case schema.ColStems:
		return "1"
	case schema.ColGrowthSpaceLength:
		return "6"
	case schema.ColGrowthSpaceWidth:
		return "4"
	case schema.ColGrowthSpaceType:
		return "Open"
	case schema.ColOverheadUtil:
		return "No"
	case schema.ColLandUse:
		return "Residential"
	case schema.ColCondition:
		return "Good"
	case schema.ColStormwaterElim:
		return "120.5"
	default:
		// Remaining benefit columns are plain dollar values.
		return "5.25"
	}
}

// fixtureCSV renders a CSV document with one row per override map. Columns
// absent from an override get the default cell.
func fixtureCSV(rows []map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(testColumns, ","))
	b.WriteString("\n")
	for _, overrides := range rows {
		cells := make([]string, len(testColumns))
		for i, col := range testColumns {
			if v, ok := overrides[col]; ok {
				cells[i] = v
			} else {
				cells[i] = defaultCell(col)
			}
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// row builds an override map; id is always set so tests can track rows
// through filters and subsets.
func row(id string, overrides map[string]string) map[string]string {
	m := map[string]string{schema.ColID: id}
	for k, v := range overrides {
		m[k] = v
	}
	return m
}

// loadFixture runs a fixture through load, normalize, and coerce.
func loadFixture(t *testing.T, rows []map[string]string) dataframe.DataFrame {
	t.Helper()
	df, err := ReadCSV(strings.NewReader(fixtureCSV(rows)))
	require.NoError(t, err)
	df, err = Normalize(df)
	require.NoError(t, err)
	df, err = Coerce(df)
	require.NoError(t, err)
	return df
}

// cleanFixture additionally runs the cleaning sequence.
func cleanFixture(t *testing.T, rows []map[string]string) Result {
	t.Helper()
	res, err := Clean(loadFixture(t, rows))
	require.NoError(t, err)
	return res
}

// ids returns the id column of a frame as strings. The id column is not in
// the numeric set, so records come back verbatim.
func ids(t *testing.T, df dataframe.DataFrame) []string {
	t.Helper()
	return df.Col(schema.ColID).Records()
}
