// Package forest implements a Random Forest classifier: bootstrap-sampled
// CART trees grown with random feature subsets and combined by averaging
// their class probabilities.
//
// Each tree draws from its own *rand.Rand seeded from RandomForest.Seed and
// trees are grown on a bounded worker pool, so a fixed seed gives identical
// predictions regardless of the number of workers.
package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/paveg/segmentation/internal/errors"
	"github.com/paveg/segmentation/internal/parallel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RandomForest is an ensemble of decision trees.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int // zero grows trees until leaves are pure
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // zero uses floor(sqrt(p))
	Bootstrap       bool
	Seed            int64
	Workers         int

	trees       []*tree
	classes     []int
	nFeatures   int
	importances []float64
}

// Option configures a RandomForest.
type Option func(*RandomForest)

func WithNEstimators(n int) Option     { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithMaxDepth(d int) Option        { return func(rf *RandomForest) { rf.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option { return func(rf *RandomForest) { rf.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) Option  { return func(rf *RandomForest) { rf.MinSamplesLeaf = n } }
func WithMaxFeatures(k int) Option     { return func(rf *RandomForest) { rf.MaxFeatures = k } }
func WithBootstrap(b bool) Option      { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithSeed(seed int64) Option       { return func(rf *RandomForest) { rf.Seed = seed } }
func WithWorkers(n int) Option         { return func(rf *RandomForest) { rf.Workers = n } }

// NewRandomForest returns a 100-tree forest seeded with 42, then applies opts.
func NewRandomForest(opts ...Option) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		Seed:            42,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit grows the forest on X with labels y.
func (rf *RandomForest) Fit(ctx context.Context, X mat.Matrix, y []int) error {
	const op = "RandomForest.Fit"

	n, p := X.Dims()
	switch {
	case n == 0 || p == 0:
		return errors.NewInvalidInputError(op, "empty training matrix")
	case len(y) != n:
		return errors.NewValidationError(op, "", fmt.Sprintf("%d rows but %d labels", n, len(y)))
	case rf.NEstimators <= 0:
		return errors.NewInvalidInputError(op, fmt.Sprintf("NEstimators must be positive, got %d", rf.NEstimators))
	}

	classes, encoded := indexClasses(y)
	data := make([][]float64, n)
	for i := range n {
		data[i] = mat.Row(nil, i, X)
	}

	params := treeParams{
		maxDepth:        rf.MaxDepth,
		minSamplesSplit: max(rf.MinSamplesSplit, 2),
		minSamplesLeaf:  max(rf.MinSamplesLeaf, 1),
		maxFeatures:     rf.maxFeatures(p),
	}

	seeder := rand.New(rand.NewSource(rf.Seed))
	seeds := make([]int64, rf.NEstimators)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	pool := parallel.NewWorkerPool(rf.Workers)
	trees, err := parallel.ProcessIndexed(ctx, pool, seeds, func(_ int, seed int64) (*tree, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewSource(seed))
		idx := make([]int, n)
		for i := range idx {
			if rf.Bootstrap {
				idx[i] = rng.Intn(n)
			} else {
				idx[i] = i
			}
		}
		return growTree(data, encoded, idx, len(classes), params, rng), nil
	})
	if err != nil {
		return err
	}

	importances := make([]float64, p)
	for _, t := range trees {
		floats.Add(importances, t.importances)
	}
	if total := floats.Sum(importances); total > 0 {
		floats.Scale(1/total, importances)
	}

	rf.trees = trees
	rf.classes = classes
	rf.nFeatures = p
	rf.importances = importances
	return nil
}

// PredictProba returns, per row, the class probabilities averaged over all
// trees. Columns follow Classes().
func (rf *RandomForest) PredictProba(X mat.Matrix) ([][]float64, error) {
	if rf.trees == nil {
		return nil, errors.NewInvalidInputError("RandomForest.PredictProba", "model is not fitted")
	}
	n, p := X.Dims()
	if p != rf.nFeatures {
		return nil, errors.NewValidationError("RandomForest.PredictProba", "",
			fmt.Sprintf("expected %d features, got %d", rf.nFeatures, p))
	}

	out := make([][]float64, n)
	row := make([]float64, p)
	for i := range n {
		mat.Row(row, i, X)
		acc := make([]float64, len(rf.classes))
		for _, t := range rf.trees {
			floats.Add(acc, t.predictProba(row))
		}
		floats.Scale(1/float64(len(rf.trees)), acc)
		out[i] = acc
	}
	return out, nil
}

// Predict returns the most probable class per row; ties pick the smallest class.
func (rf *RandomForest) Predict(X mat.Matrix) ([]int, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probas))
	for i, pr := range probas {
		best := 0
		for c := 1; c < len(pr); c++ {
			if pr[c] > pr[best] {
				best = c
			}
		}
		out[i] = rf.classes[best]
	}
	return out, nil
}

// Classes returns the sorted distinct labels seen during Fit.
func (rf *RandomForest) Classes() []int {
	return append([]int(nil), rf.classes...)
}

// FeatureImportances returns the mean decrease in impurity per feature,
// normalized to sum to one.
func (rf *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), rf.importances...)
}

// MaxTreeDepth reports the depth of the deepest tree.
func (rf *RandomForest) MaxTreeDepth() int {
	deepest := 0
	for _, t := range rf.trees {
		deepest = max(deepest, t.depth())
	}
	return deepest
}

func (rf *RandomForest) maxFeatures(p int) int {
	if rf.MaxFeatures > 0 {
		return min(rf.MaxFeatures, p)
	}
	return max(1, int(math.Sqrt(float64(p))))
}

// indexClasses maps labels onto dense indices in sorted label order.
func indexClasses(y []int) ([]int, []int) {
	seen := make(map[int]struct{})
	for _, v := range y {
		seen[v] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Ints(classes)

	pos := make(map[int]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	encoded := make([]int, len(y))
	for i, v := range y {
		encoded[i] = pos[v]
	}
	return classes, encoded
}
