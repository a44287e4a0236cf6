// Package split partitions the cleaned table into training and holdout
// subsets. The assignment is a seeded uniform permutation, so identical
// inputs and seed always reproduce the identical partition.
package split

import (
	"math"
	"math/rand"

	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrInsufficientData means the cleaned table is too small to partition
// meaningfully. It is fatal for the research question asking for the split,
// not for the whole run.
var ErrInsufficientData = eris.New("insufficient data")

// DefaultProportion is the training share of the cleaned table.
const DefaultProportion = 0.80

// DefaultMinRows is the smallest table the splitter accepts.
const DefaultMinRows = 2

// Config controls a split.
type Config struct {
	Proportion float64
	Seed       int64
	MinRows    int
}

// Partition is a train/holdout division of a table. Train and Holdout are
// disjoint and their union is the input; Indices record membership by input
// row position.
type Partition struct {
	Train          dataframe.DataFrame
	Holdout        dataframe.DataFrame
	TrainIndices   []int
	HoldoutIndices []int
}

// Split partitions df under cfg. |train| = round(p*N); the holdout is the
// complement. Repeated calls with the same seed and input produce identical
// partitions.
func Split(df dataframe.DataFrame, cfg Config) (Partition, error) {
	if cfg.Proportion <= 0 || cfg.Proportion >= 1 {
		return Partition{}, eris.Errorf("split: proportion %v outside (0,1)", cfg.Proportion)
	}
	minRows := cfg.MinRows
	if minRows < DefaultMinRows {
		minRows = DefaultMinRows
	}

	n := df.Nrow()
	if n < minRows {
		return Partition{}, eris.Wrapf(ErrInsufficientData, "split: %d rows, need at least %d", n, minRows)
	}

	nTrain := int(math.Round(cfg.Proportion * float64(n)))
	if nTrain == 0 {
		nTrain = 1
	}
	if nTrain == n {
		nTrain = n - 1
	}

	perm := rand.New(rand.NewSource(cfg.Seed)).Perm(n)
	trainIdx := append([]int(nil), perm[:nTrain]...)
	holdIdx := append([]int(nil), perm[nTrain:]...)

	train := df.Subset(trainIdx)
	if train.Err != nil {
		return Partition{}, eris.Wrapf(train.Err, "split: subset train")
	}
	holdout := df.Subset(holdIdx)
	if holdout.Err != nil {
		return Partition{}, eris.Wrapf(holdout.Err, "split: subset holdout")
	}

	zap.L().Info("split: partitioned table",
		zap.Int("rows", n),
		zap.Int("train", nTrain),
		zap.Int("holdout", n-nTrain),
		zap.Int64("seed", cfg.Seed),
	)

	return Partition{
		Train:          train,
		Holdout:        holdout,
		TrainIndices:   trainIdx,
		HoldoutIndices: holdIdx,
	}, nil
}
