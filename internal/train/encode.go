// Package train turns a feature manifest plus a training frame into a fitted
// forest, and manages the persisted model artifacts. Categorical encodings
// are explicit Domain objects built once at fit time, serialized with the
// artifact, and reused verbatim at prediction time.
package train

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"

	"github.com/canopy-analytics/canopy-cli/internal/schema"
)

// Encoding maps manifest columns onto design-matrix columns. Numeric columns
// pass through; categorical columns become their domain code in the domain's
// canonical level order.
type Encoding struct {
	Features     []string
	Domains      map[string]schema.Domain
	Target       string
	TargetDomain *schema.Domain
}

// BuildEncoding derives the encoding for a question from the training frame.
// The ordinal condition domain comes from the cleaning stage; overhead labels
// use their fixed post-recode domain; other categorical features get a
// domain of their observed levels in sorted order.
func BuildEncoding(df dataframe.DataFrame, q schema.Question, condition schema.Domain) (Encoding, error) {
	enc := Encoding{
		Features:     append([]string(nil), q.Features...),
		Domains:      map[string]schema.Domain{},
		Target:       q.Target,
		TargetDomain: q.TargetDomain,
	}

	names := map[string]bool{}
	for _, n := range df.Names() {
		names[n] = true
	}

	for _, f := range enc.Features {
		if !names[f] {
			return Encoding{}, eris.Errorf("train: feature %q absent from training table", f)
		}
		col := df.Col(f)
		if col.Type() == series.Float {
			continue
		}
		switch f {
		case schema.ColCondition:
			enc.Domains[f] = condition
		case schema.ColOverheadUtil:
			enc.Domains[f] = schema.OverheadDomain()
		default:
			enc.Domains[f] = observedDomain(f, col)
		}
	}

	if !names[enc.Target] {
		return Encoding{}, eris.Errorf("train: target %q absent from training table", enc.Target)
	}
	return enc, nil
}

func observedDomain(name string, col series.Series) schema.Domain {
	seen := map[string]bool{}
	for i := 0; i < col.Len(); i++ {
		e := col.Elem(i)
		if !e.IsNA() {
			seen[e.String()] = true
		}
	}
	levels := make([]string, 0, len(seen))
	for l := range seen {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	return schema.NewDomain(name, levels)
}

// Matrix encodes the manifest columns of df into feature rows. A categorical
// value outside its training-time domain is a level mismatch, surfaced
// rather than coerced.
func (e Encoding) Matrix(df dataframe.DataFrame) ([][]float64, error) {
	n := df.Nrow()
	cols := make([][]float64, len(e.Features))

	for j, f := range e.Features {
		col := df.Col(f)
		if col.Err != nil {
			return nil, eris.Errorf("train: feature %q absent at prediction time", f)
		}
		if d, categorical := e.Domains[f]; categorical {
			vals := make([]float64, n)
			for i := 0; i < n; i++ {
				elem := col.Elem(i)
				if elem.IsNA() {
					vals[i] = math.NaN()
					continue
				}
				code, err := d.Code(elem.String())
				if err != nil {
					return nil, eris.Wrapf(err, "train: encode %s row %d", f, i)
				}
				vals[i] = code
			}
			cols[j] = vals
			continue
		}
		cols[j] = col.Float()
	}

	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = cols[j][i]
		}
		rows[i] = row
	}
	return rows, nil
}

// TargetVector encodes the target column: raw floats for regression, domain
// codes for classification. Classification targets may be stored as labels
// or as numeric codes (the derived overhead indicator); both are validated
// against the target domain.
func (e Encoding) TargetVector(df dataframe.DataFrame) ([]float64, error) {
	col := df.Col(e.Target)
	if col.Err != nil {
		return nil, eris.Errorf("train: target %q absent", e.Target)
	}

	if e.TargetDomain == nil {
		return col.Float(), nil
	}

	d := *e.TargetDomain
	out := make([]float64, col.Len())
	if col.Type() == series.Float {
		for i, v := range col.Float() {
			if v != math.Trunc(v) || int(v) < 0 || int(v) >= len(d.Levels) {
				return nil, eris.Wrapf(schema.ErrLevelMismatch,
					"train: target value %v row %d outside domain %s", v, i, d.Name)
			}
			out[i] = v
		}
		return out, nil
	}

	for i := 0; i < col.Len(); i++ {
		code, err := d.Code(col.Elem(i).String())
		if err != nil {
			return nil, eris.Wrapf(err, "train: encode target row %d", i)
		}
		out[i] = code
	}
	return out, nil
}

// Labels maps predicted class codes back to target-domain labels.
func (e Encoding) Labels(codes []float64) ([]string, error) {
	if e.TargetDomain == nil {
		return nil, eris.New("train: labels requested for a regression encoding")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		l, err := e.TargetDomain.Level(int(c))
		if err != nil {
			return nil, eris.Wrapf(err, "train: decode prediction %d", i)
		}
		out[i] = l
	}
	return out, nil
}

// Restrict applies a question's row restriction: keep listed labels, then
// collapse them to their canonical class.
func Restrict(df dataframe.DataFrame, q schema.Question) (dataframe.DataFrame, error) {
	if q.Restrict == nil {
		return df, nil
	}
	r := q.Restrict

	df = df.Filter(dataframe.F{Colname: r.Column, Comparator: series.In, Comparando: r.Keep})
	if df.Err != nil {
		return dataframe.DataFrame{}, eris.Wrapf(df.Err, "train: restrict %s", r.Column)
	}

	if len(r.Collapse) > 0 {
		col := df.Col(r.Column).Map(func(e series.Element) series.Element {
			if e.IsNA() {
				return e
			}
			if to, ok := r.Collapse[e.String()]; ok {
				e.Set(to)
			}
			return e
		})
		col.Name = r.Column
		df = df.Mutate(col)
		if df.Err != nil {
			return dataframe.DataFrame{}, eris.Wrapf(df.Err, "train: collapse %s", r.Column)
		}
	}
	return df, nil
}
