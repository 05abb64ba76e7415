package forest

import (
	"math/rand"
	"sort"
)

// treeParams are the growth limits shared by every tree of a forest.
type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	proba     []float64 // set on leaves only
}

func (n *node) leaf() bool { return n.left == nil }

// tree is a CART classifier grown on gini impurity. Labels are class
// indices in [0, nClasses).
type tree struct {
	root        *node
	importances []float64
}

type grower struct {
	params   treeParams
	X        [][]float64
	y        []int
	nClasses int
	rng      *rand.Rand
	gains    []float64
}

// growTree fits a tree on the rows listed in idx. Repeated indices act as
// sample weights, which is how bootstrap samples are represented.
func growTree(X [][]float64, y []int, idx []int, nClasses int, params treeParams, rng *rand.Rand) *tree {
	g := &grower{
		params:   params,
		X:        X,
		y:        y,
		nClasses: nClasses,
		rng:      rng,
		gains:    make([]float64, len(X[0])),
	}
	root := g.build(append([]int(nil), idx...), 0)

	total := 0.0
	for _, v := range g.gains {
		total += v
	}
	if total > 0 {
		for i := range g.gains {
			g.gains[i] /= total
		}
	}
	return &tree{root: root, importances: g.gains}
}

func (g *grower) build(idx []int, depth int) *node {
	counts := g.classCounts(idx)
	n := len(idx)

	if n < g.params.minSamplesSplit ||
		n < 2*g.params.minSamplesLeaf ||
		(g.params.maxDepth > 0 && depth >= g.params.maxDepth) ||
		pure(counts) {
		return &node{proba: proba(counts, n)}
	}

	s, ok := g.bestSplit(idx, gini(counts, n))
	if !ok {
		return &node{proba: proba(counts, n)}
	}

	g.gains[s.feature] += float64(n)*gini(counts, n) - s.weighted
	return &node{
		feature:   s.feature,
		threshold: s.threshold,
		left:      g.build(idx[:s.pos], depth+1),
		right:     g.build(idx[s.pos:], depth+1),
	}
}

type split struct {
	feature   int
	threshold float64
	pos       int     // rows [0,pos) of the sorted idx go left
	weighted  float64 // n_left*gini_left + n_right*gini_right
}

// bestSplit visits features in a random order and evaluates at least
// maxFeatures of them, continuing past that only until some valid split is
// found. The lowest weighted impurity wins; ties keep the first found.
// On success idx is left sorted by the chosen feature.
func (g *grower) bestSplit(idx []int, parent float64) (split, bool) {
	p := len(g.X[0])
	order := g.rng.Perm(p)

	best := split{feature: -1}
	for visited, f := range order {
		if visited >= g.params.maxFeatures && best.feature >= 0 {
			break
		}
		if s, ok := g.splitOn(idx, f); ok && (best.feature < 0 || s.weighted < best.weighted) {
			best = s
		}
	}
	if best.feature < 0 {
		return best, false
	}

	sortBy(idx, g.X, best.feature)
	return best, true
}

// splitOn finds the best threshold for feature f.
func (g *grower) splitOn(idx []int, f int) (split, bool) {
	sortBy(idx, g.X, f)
	n := len(idx)
	minLeaf := max(g.params.minSamplesLeaf, 1)

	left := make([]int, g.nClasses)
	right := g.classCounts(idx)

	best := split{feature: -1}
	for pos := 1; pos < n; pos++ {
		c := g.y[idx[pos-1]]
		left[c]++
		right[c]--

		lo, hi := g.X[idx[pos-1]][f], g.X[idx[pos]][f]
		if lo == hi || pos < minLeaf || n-pos < minLeaf {
			continue
		}
		w := float64(pos)*gini(left, pos) + float64(n-pos)*gini(right, n-pos)
		if best.feature < 0 || w < best.weighted {
			best = split{feature: f, threshold: lo + (hi-lo)/2, pos: pos, weighted: w}
		}
	}
	return best, best.feature >= 0
}

func (g *grower) classCounts(idx []int) []int {
	counts := make([]int, g.nClasses)
	for _, i := range idx {
		counts[g.y[i]]++
	}
	return counts
}

func (t *tree) predictProba(x []float64) []float64 {
	n := t.root
	for !n.leaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.proba
}

func (t *tree) depth() int {
	var walk func(*node) int
	walk = func(n *node) int {
		if n.leaf() {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(t.root)
}

func sortBy(idx []int, X [][]float64, f int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return X[idx[a]][f] < X[idx[b]][f]
	})
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

func pure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func proba(counts []int, n int) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
	return out
}
