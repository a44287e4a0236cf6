package evaluate

import (
	"sort"

	"github.com/rotisserie/eris"
)

// ConfusionMatrix counts actual-vs-predicted labels over the union of levels
// actually observed on either side. Restricting to observed levels means a
// predicted category that never occurs in the truth (or vice versa) widens
// the matrix instead of raising or misattributing counts.
type ConfusionMatrix struct {
	Levels []string
	Counts [][]int // Counts[actual][predicted]
}

// Rate is a classification rate that may be undefined (zero denominator).
// An undefined rate is reported explicitly, never as a bare NaN.
type Rate struct {
	Value   float64 `yaml:"value"`
	Defined bool    `yaml:"defined"`
}

// Confusion builds the matrix from parallel actual/predicted label slices.
func Confusion(actual, predicted []string) (ConfusionMatrix, error) {
	if len(actual) != len(predicted) {
		return ConfusionMatrix{}, eris.Errorf("evaluate: %d actual labels but %d predictions", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return ConfusionMatrix{}, eris.New("evaluate: no observations")
	}

	seen := map[string]bool{}
	for _, l := range actual {
		seen[l] = true
	}
	for _, l := range predicted {
		seen[l] = true
	}
	levels := make([]string, 0, len(seen))
	for l := range seen {
		levels = append(levels, l)
	}
	sort.Strings(levels)

	index := make(map[string]int, len(levels))
	for i, l := range levels {
		index[l] = i
	}

	counts := make([][]int, len(levels))
	for i := range counts {
		counts[i] = make([]int, len(levels))
	}
	for i := range actual {
		counts[index[actual[i]]][index[predicted[i]]]++
	}

	return ConfusionMatrix{Levels: levels, Counts: counts}, nil
}

// Total is the number of scored observations.
func (cm ConfusionMatrix) Total() int {
	n := 0
	for _, row := range cm.Counts {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// Accuracy is the fraction of observations on the diagonal.
func (cm ConfusionMatrix) Accuracy() float64 {
	total := cm.Total()
	if total == 0 {
		return 0
	}
	correct := 0
	for i := range cm.Counts {
		correct += cm.Counts[i][i]
	}
	return float64(correct) / float64(total)
}

// Sensitivity is the true-positive rate for the designated positive class:
// of the rows actually positive, the fraction predicted positive. Undefined
// when no actual positives exist.
func (cm ConfusionMatrix) Sensitivity(positive string) Rate {
	pi, ok := cm.level(positive)
	if !ok {
		return Rate{}
	}
	tp := cm.Counts[pi][pi]
	actualPos := 0
	for _, c := range cm.Counts[pi] {
		actualPos += c
	}
	if actualPos == 0 {
		return Rate{}
	}
	return Rate{Value: float64(tp) / float64(actualPos), Defined: true}
}

// Specificity is the true-negative rate: of the rows actually negative, the
// fraction predicted negative. Undefined when no actual negatives exist.
func (cm ConfusionMatrix) Specificity(positive string) Rate {
	pi, ok := cm.level(positive)
	if !ok {
		// No positive level observed at all: every row is a true negative.
		if cm.Total() == 0 {
			return Rate{}
		}
		return Rate{Value: 1, Defined: true}
	}
	tn, actualNeg := 0, 0
	for a := range cm.Counts {
		if a == pi {
			continue
		}
		for p, c := range cm.Counts[a] {
			actualNeg += c
			if p != pi {
				tn += c
			}
		}
	}
	if actualNeg == 0 {
		return Rate{}
	}
	return Rate{Value: float64(tn) / float64(actualNeg), Defined: true}
}

func (cm ConfusionMatrix) level(l string) (int, bool) {
	for i, name := range cm.Levels {
		if name == l {
			return i, true
		}
	}
	return 0, false
}
