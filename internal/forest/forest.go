// Package forest implements the random-forest capability the analysis
// pipeline invokes: bootstrap-aggregated CART trees for regression and
// classification, with out-of-bag prediction aggregates and impurity-based
// feature importances. Fitted forests are plain exported-field structs and
// serialize with encoding/gob.
package forest

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// Task selects the prediction kind.
type Task string

const (
	Regression     Task = "regression"
	Classification Task = "classification"
)

// Config holds the forest hyperparameters. Zero values take the
// task-appropriate defaults at fit time.
type Config struct {
	Task     Task
	Trees    int   // ensemble size; default 500
	MTry     int   // candidate features per split; default p/3 (regression), sqrt(p) (classification)
	MinLeaf  int   // minimum rows per leaf; default 5 (regression), 1 (classification)
	MaxDepth int   // 0 = unlimited
	Seed     int64 // tree bootstraps and feature sampling derive from this
}

// DefaultTrees is the ensemble size when none is configured.
const DefaultTrees = 500

// withDefaults resolves zero-valued hyperparameters for p features.
func (c Config) withDefaults(p int) Config {
	if c.Trees <= 0 {
		c.Trees = DefaultTrees
	}
	if c.MTry <= 0 {
		if c.Task == Regression {
			c.MTry = p / 3
		} else {
			c.MTry = int(math.Floor(math.Sqrt(float64(p))))
		}
	}
	if c.MTry < 1 {
		c.MTry = 1
	}
	if c.MTry > p {
		c.MTry = p
	}
	if c.MinLeaf <= 0 {
		if c.Task == Regression {
			c.MinLeaf = 5
		} else {
			c.MinLeaf = 1
		}
	}
	return c
}

// Forest is a fitted random forest. All fields are exported so the artifact
// layer can gob-encode it; treat a fitted forest as immutable.
type Forest struct {
	Cfg       Config
	Trees     []Tree
	NFeatures int
	NClasses  int // classification only

	// Out-of-bag aggregates, indexed by training row.
	OOBSum   []float64 // regression: sum of OOB predictions
	OOBCount []int     // trees for which the row was out of bag
	OOBVotes [][]int   // classification: OOB votes per class

	// RawImportance is the summed impurity reduction per feature across all
	// splits of all trees, before normalization.
	RawImportance []float64
}

// Fit grows a forest over x (rows of features) and y (regression targets or
// class codes 0..k-1). It is deterministic under Cfg.Seed.
func Fit(x [][]float64, y []float64, cfg Config) (*Forest, error) {
	if len(x) == 0 {
		return nil, eris.New("forest: empty training set")
	}
	if len(x) != len(y) {
		return nil, eris.Errorf("forest: %d feature rows but %d targets", len(x), len(y))
	}
	p := len(x[0])
	if p == 0 {
		return nil, eris.New("forest: no features")
	}
	cfg = cfg.withDefaults(p)

	nClasses := 0
	if cfg.Task == Classification {
		for _, v := range y {
			if v != math.Trunc(v) || v < 0 {
				return nil, eris.Errorf("forest: class code %v is not a non-negative integer", v)
			}
			if int(v) >= nClasses {
				nClasses = int(v) + 1
			}
		}
		if nClasses < 2 {
			return nil, eris.Errorf("forest: classification needs at least 2 classes, got %d", nClasses)
		}
	}

	n := len(x)
	f := &Forest{
		Cfg:           cfg,
		NFeatures:     p,
		NClasses:      nClasses,
		OOBSum:        make([]float64, n),
		OOBCount:      make([]int, n),
		RawImportance: make([]float64, p),
	}
	if cfg.Task == Classification {
		f.OOBVotes = make([][]int, n)
		for i := range f.OOBVotes {
			f.OOBVotes[i] = make([]int, nClasses)
		}
	}

	for t := 0; t < cfg.Trees; t++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))

		inBag := make([]bool, n)
		sample := make([]int, n)
		for i := range sample {
			j := rng.Intn(n)
			sample[i] = j
			inBag[j] = true
		}

		g := &grower{
			x:          x,
			y:          y,
			task:       cfg.Task,
			nClasses:   nClasses,
			mtry:       cfg.MTry,
			minLeaf:    cfg.MinLeaf,
			maxDepth:   cfg.MaxDepth,
			rng:        rng,
			importance: make([]float64, p),
		}
		tree := g.build(sample)
		f.Trees = append(f.Trees, tree)
		floats.Add(f.RawImportance, g.importance)

		for i := 0; i < n; i++ {
			if inBag[i] {
				continue
			}
			pred := tree.predict(x[i])
			if cfg.Task == Regression {
				f.OOBSum[i] += pred
			} else {
				f.OOBVotes[i][int(pred)]++
			}
			f.OOBCount[i]++
		}
	}

	return f, nil
}

// Predict returns per-row predictions: the tree-mean for regression, the
// majority class code for classification.
func (f *Forest) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != f.NFeatures {
			return nil, eris.Errorf("forest: row %d has %d features, model expects %d", i, len(row), f.NFeatures)
		}
		out[i] = f.predictRow(row)
	}
	return out, nil
}

func (f *Forest) predictRow(row []float64) float64 {
	if f.Cfg.Task == Regression {
		sum := 0.0
		for i := range f.Trees {
			sum += f.Trees[i].predict(row)
		}
		return sum / float64(len(f.Trees))
	}

	votes := make([]int, f.NClasses)
	for i := range f.Trees {
		votes[int(f.Trees[i].predict(row))]++
	}
	best, bestVotes := 0, -1
	for c, v := range votes {
		if v > bestVotes {
			best, bestVotes = c, v
		}
	}
	return float64(best)
}

// OOBPredictions returns the out-of-bag prediction per training row, NaN for
// rows that were in every bootstrap sample.
func (f *Forest) OOBPredictions() []float64 {
	out := make([]float64, len(f.OOBCount))
	for i, cnt := range f.OOBCount {
		if cnt == 0 {
			out[i] = math.NaN()
			continue
		}
		if f.Cfg.Task == Regression {
			out[i] = f.OOBSum[i] / float64(cnt)
			continue
		}
		best, bestVotes := 0, -1
		for c, v := range f.OOBVotes[i] {
			if v > bestVotes {
				best, bestVotes = c, v
			}
		}
		out[i] = float64(best)
	}
	return out
}

// Importances returns the impurity-reduction importances normalized to sum
// to 1 (all zeros if no split ever improved impurity).
func (f *Forest) Importances() []float64 {
	out := append([]float64(nil), f.RawImportance...)
	total := floats.Sum(out)
	if total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}
