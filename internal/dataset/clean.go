package dataset

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/canopy-analytics/canopy-cli/internal/schema"
)

// Physical plausibility bounds. Rows at or above either bound are data-entry
// outliers and are discarded permanently — a lossy, irrecoverable step.
const (
	MaxStormwaterGallons = 10000.0
	MaxHeightFeet        = 125.0
)

// CleanReport records the row counts around each lossy stage so the loss is
// visible in logs and the run report.
type CleanReport struct {
	InputRows         int `yaml:"input_rows"`
	AfterFilter       int `yaml:"after_filter"`
	AfterEliminate    int `yaml:"after_eliminate"`
	UnknownConditions int `yaml:"unknown_conditions"`
}

// Result is the output of the shared cleaning pipeline: the cleaned frame,
// the ordinal condition domain attached to it, and the loss report.
type Result struct {
	Table     dataframe.DataFrame
	Condition schema.Domain
	Report    CleanReport
}

// Clean applies the fixed-order cleaning sequence to a normalized, coerced
// frame: plausibility filter, overhead indicator derivation, label recoding,
// growth-space area derivation, and ordinal leveling of condition. Order
// matters; each step sees the previous step's output.
func Clean(df dataframe.DataFrame) (Result, error) {
	log := zap.L().With(zap.String("stage", "clean"))
	report := CleanReport{InputRows: df.Nrow()}

	// 1. Plausibility filter.
	df = df.Filter(dataframe.F{Colname: schema.ColStormwaterElim, Comparator: series.Less, Comparando: MaxStormwaterGallons})
	if df.Err != nil {
		return Result{}, eris.Wrapf(ErrSchemaMismatch, "dataset: filter stormwater: %v", df.Err)
	}
	df = df.Filter(dataframe.F{Colname: schema.ColHeight, Comparator: series.Less, Comparando: MaxHeightFeet})
	if df.Err != nil {
		return Result{}, eris.Wrapf(ErrSchemaMismatch, "dataset: filter height: %v", df.Err)
	}
	report.AfterFilter = df.Nrow()
	log.Info("filtered implausible rows",
		zap.Int("before", report.InputRows),
		zap.Int("after", report.AfterFilter),
	)

	// 2. Derive overhead_numeric from the raw labels. This deliberately runs
	// before the "Conflicting" -> "Yes" recode: conflicting-utility rows keep
	// overhead_numeric = 0 even though overhead_utilities reads "Yes" after
	// step 4. The overhead classifier was defined against these labels, so
	// the order is preserved as-is.
	df = deriveOverheadNumeric(df)
	if df.Err != nil {
		return Result{}, eris.Wrapf(ErrSchemaMismatch, "dataset: derive overhead_numeric: %v", df.Err)
	}

	// 3. Canonicalize growth-space labels; unknown labels pass through.
	df = recodeColumn(df, schema.ColGrowthSpaceType, schema.GrowthSpaceRecode)
	if df.Err != nil {
		return Result{}, eris.Wrapf(ErrSchemaMismatch, "dataset: recode growth_space_type: %v", df.Err)
	}

	// 4. Fold conflicting overhead utilities into the Yes class.
	df = recodeColumn(df, schema.ColOverheadUtil, schema.OverheadRecode)
	if df.Err != nil {
		return Result{}, eris.Wrapf(ErrSchemaMismatch, "dataset: recode overhead_utilities: %v", df.Err)
	}

	// 5. Growth-space area; NaN operands propagate.
	length := df.Col(schema.ColGrowthSpaceLength).Float()
	width := df.Col(schema.ColGrowthSpaceWidth).Float()
	area := make([]float64, len(length))
	for i := range area {
		area[i] = length[i] * width[i]
	}
	df = df.Mutate(series.New(area, series.Float, schema.ColGrowthSpaceArea))
	if df.Err != nil {
		return Result{}, eris.Wrapf(ErrSchemaMismatch, "dataset: derive growth_space_area: %v", df.Err)
	}

	// 6. Impose the ordinal condition leveling. Labels outside the seven
	// known levels become missing and fall to the eliminator; the count is
	// reported rather than silently absorbed.
	condition := schema.ConditionDomain()
	unknown := 0
	conditionSeries := df.Col(schema.ColCondition).Map(func(e series.Element) series.Element {
		if !e.IsNA() && !condition.Contains(e.String()) {
			unknown++
			e.Set("NaN")
		}
		return e
	})
	conditionSeries.Name = schema.ColCondition
	df = df.Mutate(conditionSeries)
	if df.Err != nil {
		return Result{}, eris.Wrapf(ErrSchemaMismatch, "dataset: level condition: %v", df.Err)
	}
	report.UnknownConditions = unknown
	if unknown > 0 {
		log.Warn("condition labels outside the ordinal scale treated as missing", zap.Int("count", unknown))
	}

	report.AfterEliminate = report.AfterFilter
	return Result{Table: df, Condition: condition, Report: report}, nil
}

// Eliminate drops every row containing a missing value in any column. This
// is an aggressive policy — one missing benefit field discards the whole
// row — so the before/after counts go into the report.
func Eliminate(res Result) (Result, error) {
	df := res.Table
	before := df.Nrow()

	keep := make([]int, 0, before)
	ncol := df.Ncol()
	for r := 0; r < before; r++ {
		complete := true
		for c := 0; c < ncol; c++ {
			if df.Elem(r, c).IsNA() {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}

	if len(keep) < before {
		df = df.Subset(keep)
		if df.Err != nil {
			return Result{}, eris.Wrapf(ErrMalformedInput, "dataset: eliminate incomplete rows: %v", df.Err)
		}
	}

	res.Table = df
	res.Report.AfterEliminate = df.Nrow()
	zap.L().Info("dataset: eliminated incomplete rows",
		zap.Int("before", before),
		zap.Int("after", df.Nrow()),
	)
	return res, nil
}

func deriveOverheadNumeric(df dataframe.DataFrame) dataframe.DataFrame {
	s := df.Col(schema.ColOverheadUtil)
	vals := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		switch {
		case e.IsNA():
			vals[i] = math.NaN()
		case e.String() == "Yes":
			vals[i] = 1
		default:
			vals[i] = 0
		}
	}
	return df.Mutate(series.New(vals, series.Float, schema.ColOverheadNumeric))
}

func recodeColumn(df dataframe.DataFrame, col string, table map[string]string) dataframe.DataFrame {
	recoded := df.Col(col).Map(func(e series.Element) series.Element {
		if e.IsNA() {
			return e
		}
		if canon, ok := table[e.String()]; ok {
			e.Set(canon)
		}
		return e
	})
	recoded.Name = col
	return df.Mutate(recoded)
}
