package forest

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one decision node in a fitted tree. Leaves carry the prediction:
// the mean target for regression, the majority class code for classification.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Leaf      bool
	Value     float64
}

// Tree is a single CART tree stored as a flat node slice, gob-friendly.
type Tree struct {
	Nodes []Node
}

// predict walks the tree for one feature row.
func (t *Tree) predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// grower builds one tree over a bootstrap sample.
type grower struct {
	x          [][]float64
	y          []float64
	task       Task
	nClasses   int
	mtry       int
	minLeaf    int
	maxDepth   int
	rng        *rand.Rand
	nodes      []Node
	importance []float64
}

func (g *grower) build(idx []int) Tree {
	g.grow(idx, 0)
	return Tree{Nodes: g.nodes}
}

// grow recursively partitions idx and returns the index of the created node.
func (g *grower) grow(idx []int, depth int) int {
	self := len(g.nodes)
	g.nodes = append(g.nodes, Node{Leaf: true, Value: g.leafValue(idx)})

	if len(idx) < 2*g.minLeaf || (g.maxDepth > 0 && depth >= g.maxDepth) {
		return self
	}
	parentImp := g.impurity(idx)
	if parentImp <= 0 {
		return self
	}

	feature, threshold, gain, ok := g.bestSplit(idx, parentImp)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < g.minLeaf || len(right) < g.minLeaf {
		return self
	}

	g.importance[feature] += gain

	leftIdx := g.grow(left, depth+1)
	rightIdx := g.grow(right, depth+1)

	g.nodes[self] = Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      leftIdx,
		Right:     rightIdx,
	}
	return self
}

// bestSplit scans mtry randomly chosen features for the split with the
// largest impurity reduction. Returns ok=false when no split separates the
// node while honoring the minimum leaf size.
func (g *grower) bestSplit(idx []int, parentImp float64) (feature int, threshold, gain float64, ok bool) {
	nFeatures := len(g.x[0])
	candidates := g.rng.Perm(nFeatures)
	if g.mtry < len(candidates) {
		candidates = candidates[:g.mtry]
	}

	bestImp := math.Inf(1)
	for _, f := range candidates {
		thr, imp, found := g.bestSplitOnFeature(idx, f)
		if found && imp < bestImp {
			bestImp = imp
			feature = f
			threshold = thr
			ok = true
		}
	}
	if !ok || bestImp >= parentImp {
		return 0, 0, 0, false
	}
	return feature, threshold, parentImp - bestImp, true
}

// bestSplitOnFeature finds the threshold minimizing total child impurity for
// one feature by a single sorted sweep.
func (g *grower) bestSplitOnFeature(idx []int, f int) (threshold, impurity float64, ok bool) {
	order := append([]int(nil), idx...)
	sort.Slice(order, func(a, b int) bool { return g.x[order[a]][f] < g.x[order[b]][f] })

	if g.task == Regression {
		return g.sweepRegression(order, f)
	}
	return g.sweepClassification(order, f)
}

// sweepRegression minimizes the summed squared error of the two children.
func (g *grower) sweepRegression(order []int, f int) (threshold, impurity float64, ok bool) {
	n := len(order)
	var sumR, sumSqR float64
	for _, i := range order {
		sumR += g.y[i]
		sumSqR += g.y[i] * g.y[i]
	}

	var sumL, sumSqL float64
	best := math.Inf(1)
	for pos := 1; pos < n; pos++ {
		yi := g.y[order[pos-1]]
		sumL += yi
		sumSqL += yi * yi
		sumR -= yi
		sumSqR -= yi * yi

		prev, cur := g.x[order[pos-1]][f], g.x[order[pos]][f]
		if prev == cur || pos < g.minLeaf || n-pos < g.minLeaf {
			continue
		}

		nl, nr := float64(pos), float64(n-pos)
		sse := (sumSqL - sumL*sumL/nl) + (sumSqR - sumR*sumR/nr)
		if sse < best {
			best = sse
			threshold = (prev + cur) / 2
			ok = true
		}
	}
	return threshold, best, ok
}

// sweepClassification minimizes count-weighted Gini impurity of the children.
func (g *grower) sweepClassification(order []int, f int) (threshold, impurity float64, ok bool) {
	n := len(order)
	countR := make([]float64, g.nClasses)
	for _, i := range order {
		countR[int(g.y[i])]++
	}
	countL := make([]float64, g.nClasses)

	best := math.Inf(1)
	for pos := 1; pos < n; pos++ {
		c := int(g.y[order[pos-1]])
		countL[c]++
		countR[c]--

		prev, cur := g.x[order[pos-1]][f], g.x[order[pos]][f]
		if prev == cur || pos < g.minLeaf || n-pos < g.minLeaf {
			continue
		}

		nl, nr := float64(pos), float64(n-pos)
		imp := nl*gini(countL, nl) + nr*gini(countR, nr)
		if imp < best {
			best = imp
			threshold = (prev + cur) / 2
			ok = true
		}
	}
	return threshold, best, ok
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sumSq := 0.0
	for _, c := range counts {
		p := c / n
		sumSq += p * p
	}
	return 1 - sumSq
}

// impurity of a node: SSE for regression, count-weighted Gini for
// classification, on the same scale bestSplit minimizes.
func (g *grower) impurity(idx []int) float64 {
	if g.task == Regression {
		var sum, sumSq float64
		for _, i := range idx {
			sum += g.y[i]
			sumSq += g.y[i] * g.y[i]
		}
		n := float64(len(idx))
		return sumSq - sum*sum/n
	}

	counts := make([]float64, g.nClasses)
	for _, i := range idx {
		counts[int(g.y[i])]++
	}
	n := float64(len(idx))
	return n * gini(counts, n)
}

// leafValue is the node prediction.
func (g *grower) leafValue(idx []int) float64 {
	if g.task == Regression {
		sum := 0.0
		for _, i := range idx {
			sum += g.y[i]
		}
		return sum / float64(len(idx))
	}

	counts := make([]int, g.nClasses)
	for _, i := range idx {
		counts[int(g.y[i])]++
	}
	bestClass, bestCount := 0, -1
	for c, cnt := range counts {
		if cnt > bestCount {
			bestClass, bestCount = c, cnt
		}
	}
	return float64(bestClass)
}
