package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// classIndices partitions row indices by label, each class shuffled with
// r.
func classIndices(labels []bool, r *rand.Rand) (pos, neg []int) {
	for i, l := range labels {
		if l {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	r.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	r.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })
	return pos, neg
}

// StratifiedSplit splits row indices into train and test sets holding
// testSize of the rows, preserving class proportions within rounding.
// Both index slices are returned sorted.
func StratifiedSplit(labels []bool, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %g must be in (0, 1)", testSize)
	}
	n := len(labels)
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test size %g", n, testSize)
	}

	r := rand.New(rand.NewPCG(seed, 0x5eed))
	pos, neg := classIndices(labels, r)

	posTest := int(math.Round(float64(nTest) * float64(len(pos)) / float64(n)))
	posTest = min(posTest, len(pos))
	negTest := min(nTest-posTest, len(neg))

	test = append(slices.Clone(pos[:posTest]), neg[:negTest]...)
	train = append(slices.Clone(pos[posTest:]), neg[negTest:]...)
	slices.Sort(train)
	slices.Sort(test)
	return train, test, nil
}

// Fold is one train/validation partition of a k-fold split.
type Fold struct {
	Train      []int
	Validation []int
}

// StratifiedKFold partitions row indices into k folds, dealing each class
// round-robin so that every fold keeps the class balance.
func StratifiedKFold(labels []bool, k int, seed uint64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 folds, got %d", k)
	}
	if len(labels) < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", len(labels), k)
	}

	r := rand.New(rand.NewPCG(seed, 0xf01d))
	pos, neg := classIndices(labels, r)

	assignment := make([][]int, k)
	for i, idx := range pos {
		assignment[i%k] = append(assignment[i%k], idx)
	}
	// Continue the rotation where the positives stopped so fold sizes stay
	// within one of each other.
	for i, idx := range neg {
		f := (len(pos) + i) % k
		assignment[f] = append(assignment[f], idx)
	}

	folds := make([]Fold, k)
	for f := range folds {
		validation := slices.Clone(assignment[f])
		slices.Sort(validation)
		var train []int
		for g := range assignment {
			if g != f {
				train = append(train, assignment[g]...)
			}
		}
		slices.Sort(train)
		folds[f] = Fold{Train: train, Validation: validation}
	}
	return folds, nil
}
