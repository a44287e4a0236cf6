package dataset

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/canopy-analytics/canopy-cli/internal/schema"
)

// Normalize renames raw export labels to canonical short names and drops the
// internal-only identifier column. The mapping is total: columns not renamed
// or dropped pass through unchanged, and applying Normalize to an already
// normalized frame is a no-op. A required canonical column missing afterwards
// is a schema mismatch.
func Normalize(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for raw, canon := range schema.RenameMap {
		if raw == canon || !hasColumn(df, raw) {
			continue
		}
		df = df.Rename(canon, raw)
		if df.Err != nil {
			return dataframe.DataFrame{}, eris.Wrapf(ErrSchemaMismatch, "dataset: rename %s: %v", raw, df.Err)
		}
	}

	dropped := make(map[string]bool, len(schema.DroppedColumns))
	for _, c := range schema.DroppedColumns {
		dropped[c] = true
	}
	var keep []string
	for _, name := range df.Names() {
		if !dropped[name] {
			keep = append(keep, name)
		}
	}
	if len(keep) < df.Ncol() {
		df = df.Select(keep)
		if df.Err != nil {
			return dataframe.DataFrame{}, eris.Wrapf(ErrSchemaMismatch, "dataset: drop columns: %v", df.Err)
		}
	}

	for _, req := range schema.RequiredColumns {
		if !hasColumn(df, req) {
			return dataframe.DataFrame{}, eris.Wrapf(ErrSchemaMismatch, "dataset: required column %q absent after normalization", req)
		}
	}

	return df, nil
}

// Coerce parses the declared numeric columns as floats. Missing markers and
// unparseable cells become NaN, the float-side missing representation.
// Coerce is idempotent; string columns are untouched.
func Coerce(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	for _, c := range schema.NumericColumns {
		if !hasColumn(df, c) {
			return dataframe.DataFrame{}, eris.Wrapf(ErrSchemaMismatch, "dataset: numeric column %q absent", c)
		}
		df = df.Mutate(series.New(df.Col(c).Float(), series.Float, c))
		if df.Err != nil {
			return dataframe.DataFrame{}, eris.Wrapf(ErrSchemaMismatch, "dataset: coerce %s: %v", c, df.Err)
		}
	}

	zap.L().Debug("dataset: coerced numeric columns", zap.Int("count", len(schema.NumericColumns)))
	return df, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
