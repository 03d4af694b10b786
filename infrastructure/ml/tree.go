package ml

import (
	"math/rand/v2"
	"slices"
)

// Node is one node of a binary decision tree stored in a flat slice.
// Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// Tree is a fitted decision tree. Rows go left when their feature value is
// less than or equal to the node threshold.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict returns the leaf value reached by row.
func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the depth of the deepest leaf.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Left < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// splitCriterion scores candidate splits. Higher gain is better; a split
// with no positive gain is not taken.
type splitCriterion interface {
	// gain returns the improvement of splitting rows into left and right.
	gain(left, right, parent accum) float64
	// leaf returns the value stored in a leaf holding the rows in a.
	leaf(a accum) float64
}

// accum carries the running sums a criterion needs.
type accum struct {
	n    float64
	sum  float64 // positives, or residual sum
	sumH float64 // hessian sum, boosting only
}

func (a accum) add(target, hess float64) accum {
	return accum{n: a.n + 1, sum: a.sum + target, sumH: a.sumH + hess}
}

func (a accum) sub(b accum) accum {
	return accum{n: a.n - b.n, sum: a.sum - b.sum, sumH: a.sumH - b.sumH}
}

// giniCriterion grows classification trees whose leaves hold the positive
// rate.
type giniCriterion struct{}

func gini(a accum) float64 {
	if a.n == 0 {
		return 0
	}
	p := a.sum / a.n
	return 2 * p * (1 - p)
}

func (giniCriterion) gain(left, right, parent accum) float64 {
	return parent.n*gini(parent) - left.n*gini(left) - right.n*gini(right)
}

func (giniCriterion) leaf(a accum) float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / a.n
}

// newtonCriterion grows regression trees on boosting residuals. Splits
// minimise squared error; leaves take a Newton step sum(r)/sum(h).
type newtonCriterion struct{}

func sse(a accum) float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum * a.sum / a.n
}

func (newtonCriterion) gain(left, right, parent accum) float64 {
	return sse(left) + sse(right) - sse(parent)
}

func (newtonCriterion) leaf(a accum) float64 {
	const floor = 1e-12
	if a.sumH < floor {
		return 0
	}
	return a.sum / a.sumH
}

// treeBuilder grows one tree over a fixed sample of rows.
type treeBuilder struct {
	x              [][]float64
	target         []float64
	hess           []float64
	criterion      splitCriterion
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int
	rng            *rand.Rand
	nodes          []Node
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	return Tree{Nodes: slices.Clone(b.nodes)}
}

func (b *treeBuilder) total(rows []int) accum {
	var a accum
	for _, r := range rows {
		a = a.add(b.target[r], b.hessian(r))
	}
	return a
}

func (b *treeBuilder) hessian(r int) float64 {
	if b.hess == nil {
		return 0
	}
	return b.hess[r]
}

// grow appends the subtree for rows and returns its node index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	parent := b.total(rows)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Value: b.criterion.leaf(parent)})

	if depth >= b.maxDepth || len(rows) < 2*b.minSamplesLeaf {
		return idx
	}

	feature, threshold, ok := b.bestSplit(rows, parent)
	if !ok {
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if b.x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.grow(left, depth+1)
	rt := b.grow(right, depth+1)
	b.nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: rt}
	return idx
}

func (b *treeBuilder) candidateFeatures() []int {
	width := len(b.x[0])
	features := make([]int, width)
	for i := range features {
		features[i] = i
	}
	if b.maxFeatures <= 0 || b.maxFeatures >= width {
		return features
	}
	b.rng.Shuffle(width, func(i, j int) { features[i], features[j] = features[j], features[i] })
	return features[:b.maxFeatures]
}

func (b *treeBuilder) bestSplit(rows []int, parent accum) (feature int, threshold float64, ok bool) {
	bestGain := 1e-12
	sorted := slices.Clone(rows)

	for _, f := range b.candidateFeatures() {
		slices.SortFunc(sorted, func(i, j int) int {
			switch {
			case b.x[i][f] < b.x[j][f]:
				return -1
			case b.x[i][f] > b.x[j][f]:
				return 1
			default:
				return i - j
			}
		})

		var left accum
		for k := 0; k < len(sorted)-1; k++ {
			r := sorted[k]
			left = left.add(b.target[r], b.hessian(r))

			lo, hi := b.x[r][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nLeft := k + 1
			if nLeft < b.minSamplesLeaf || len(sorted)-nLeft < b.minSamplesLeaf {
				continue
			}

			g := b.criterion.gain(left, parent.sub(left), parent)
			if g > bestGain {
				bestGain = g
				feature = f
				threshold = lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
