// Package cluster implements K-Means clustering with k-means++ seeding and
// multiple seeded restarts.
//
// Every restart draws from its own *rand.Rand whose seed is derived from
// KMeans.Seed, and restarts run on a bounded worker pool. The chosen model
// is the restart with the lowest inertia (earliest restart on ties), so a
// fixed seed yields identical centroids and labels on every run.
package cluster

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/paveg/segmentation/internal/errors"
	"github.com/paveg/segmentation/internal/parallel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Default hyperparameters.
const (
	DefaultK       = 4
	DefaultNInit   = 10
	DefaultMaxIter = 300
	DefaultTol     = 1e-4
	DefaultSeed    = 42
)

// KMeans partitions rows into K clusters.
type KMeans struct {
	K       int
	NInit   int
	MaxIter int
	// Tol is relative to the mean per-feature variance of the training data.
	Tol  float64
	Seed int64
	// Workers bounds concurrent restarts; zero uses runtime.NumCPU().
	Workers int

	centroids  [][]float64
	labels     []int
	inertia    float64
	iterations int
}

// NewKMeans returns a model for k clusters with the default settings.
func NewKMeans(k int) *KMeans {
	return &KMeans{
		K:       k,
		NInit:   DefaultNInit,
		MaxIter: DefaultMaxIter,
		Tol:     DefaultTol,
		Seed:    DefaultSeed,
	}
}

type run struct {
	centroids  [][]float64
	labels     []int
	inertia    float64
	iterations int
}

// Fit runs NInit seeded restarts and keeps the one with the lowest inertia.
func (km *KMeans) Fit(ctx context.Context, X mat.Matrix) error {
	const op = "KMeans.Fit"

	n, p := X.Dims()
	switch {
	case km.K <= 0:
		return errors.NewInvalidInputError(op, fmt.Sprintf("K must be positive, got %d", km.K))
	case n < km.K:
		return errors.NewInvalidInputError(op, fmt.Sprintf("%d rows cannot form %d clusters", n, km.K))
	case km.NInit <= 0:
		return errors.NewInvalidInputError(op, fmt.Sprintf("NInit must be positive, got %d", km.NInit))
	case km.MaxIter <= 0:
		return errors.NewInvalidInputError(op, fmt.Sprintf("MaxIter must be positive, got %d", km.MaxIter))
	}

	data := rows(X)
	tol := km.Tol * meanVariance(data, p)

	seeder := rand.New(rand.NewSource(km.Seed))
	seeds := make([]int64, km.NInit)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	pool := parallel.NewWorkerPool(km.Workers)
	runs, err := parallel.ProcessIndexed(ctx, pool, seeds, func(_ int, seed int64) (run, error) {
		return km.lloyd(ctx, data, tol, rand.New(rand.NewSource(seed)))
	})
	if err != nil {
		return err
	}

	best := 0
	for i := 1; i < len(runs); i++ {
		if runs[i].inertia < runs[best].inertia {
			best = i
		}
	}

	km.centroids = runs[best].centroids
	km.labels = runs[best].labels
	km.inertia = runs[best].inertia
	km.iterations = runs[best].iterations
	return nil
}

// Predict assigns each row of X to its nearest centroid.
func (km *KMeans) Predict(X mat.Matrix) ([]int, error) {
	if km.centroids == nil {
		return nil, errors.NewInvalidInputError("KMeans.Predict", "model is not fitted")
	}
	_, p := X.Dims()
	if p != len(km.centroids[0]) {
		return nil, errors.NewValidationError("KMeans.Predict", "",
			fmt.Sprintf("expected %d features, got %d", len(km.centroids[0]), p))
	}
	labels, _ := assign(rows(X), km.centroids)
	return labels, nil
}

// FitPredict fits the model and returns the training assignments.
func (km *KMeans) FitPredict(ctx context.Context, X mat.Matrix) ([]int, error) {
	if err := km.Fit(ctx, X); err != nil {
		return nil, err
	}
	return km.Labels(), nil
}

// Centroids returns a K × p matrix of cluster centers.
func (km *KMeans) Centroids() *mat.Dense {
	if km.centroids == nil {
		return nil
	}
	c := mat.NewDense(len(km.centroids), len(km.centroids[0]), nil)
	for i, row := range km.centroids {
		c.SetRow(i, row)
	}
	return c
}

// Labels returns the cluster of each training row.
func (km *KMeans) Labels() []int {
	return append([]int(nil), km.labels...)
}

// Inertia is the sum of squared distances from rows to their centroid.
func (km *KMeans) Inertia() float64 { return km.inertia }

// Iterations is the number of Lloyd iterations the chosen restart ran.
func (km *KMeans) Iterations() int { return km.iterations }

func (km *KMeans) lloyd(ctx context.Context, data [][]float64, tol float64, rng *rand.Rand) (run, error) {
	centroids := initPlusPlus(data, km.K, rng)
	p := len(data[0])

	var labels []int
	iterations := 0
	for iterations < km.MaxIter {
		if err := ctx.Err(); err != nil {
			return run{}, err
		}
		iterations++

		next, dist := assign(data, centroids)
		updated := recompute(data, next, dist, km.K, p)

		shift := 0.0
		for k := range centroids {
			shift += sqDist(centroids[k], updated[k])
		}
		stable := labels != nil && equalLabels(labels, next)
		centroids, labels = updated, next
		if stable || shift <= tol {
			break
		}
	}

	labels, dist := assign(data, centroids)
	return run{
		centroids:  centroids,
		labels:     labels,
		inertia:    floats.Sum(dist),
		iterations: iterations,
	}, nil
}

// initPlusPlus picks k initial centers with greedy k-means++: each step
// draws 2+ln(k) candidates proportional to squared distance and keeps the
// one that lowers the total potential most.
func initPlusPlus(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(data)
	trials := 2 + int(math.Log(float64(k)))

	centers := make([][]float64, 0, k)
	first := rng.Intn(n)
	centers = append(centers, clone(data[first]))

	closest := make([]float64, n)
	for i, x := range data {
		closest[i] = sqDist(x, centers[0])
	}
	potential := floats.Sum(closest)

	cumulative := make([]float64, n)
	candidate := make([]float64, n)
	bestDist := make([]float64, n)
	for len(centers) < k {
		floats.CumSum(cumulative, closest)

		bestIdx, bestPot := -1, math.Inf(1)
		for range trials {
			idx := sample(cumulative, potential, rng)
			for i, x := range data {
				candidate[i] = math.Min(closest[i], sqDist(x, data[idx]))
			}
			if pot := floats.Sum(candidate); pot < bestPot {
				bestIdx, bestPot = idx, pot
				copy(bestDist, candidate)
			}
		}

		centers = append(centers, clone(data[bestIdx]))
		copy(closest, bestDist)
		potential = bestPot
	}
	return centers
}

// sample draws an index with probability proportional to its weight,
// given the cumulative weights. A zero total falls back to a uniform draw.
func sample(cumulative []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.Intn(len(cumulative))
	}
	r := rng.Float64() * total
	lo, hi := 0, len(cumulative)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cumulative[mid] > r {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// assign returns the nearest centroid (lowest index on ties) and the squared
// distance to it for every row.
func assign(data, centroids [][]float64) ([]int, []float64) {
	labels := make([]int, len(data))
	dist := make([]float64, len(data))
	for i, x := range data {
		best, bestD := 0, math.Inf(1)
		for k, c := range centroids {
			if d := sqDist(x, c); d < bestD {
				best, bestD = k, d
			}
		}
		labels[i], dist[i] = best, bestD
	}
	return labels, dist
}

// recompute averages the rows of each cluster. An empty cluster takes the
// row farthest from its current centroid, which is then removed from its
// previous cluster.
func recompute(data [][]float64, labels []int, dist []float64, k, p int) [][]float64 {
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}

	labels = append([]int(nil), labels...)
	dist = append([]float64(nil), dist...)
	for c := range k {
		if counts[c] > 0 {
			continue
		}
		far := -1
		for i := range data {
			if counts[labels[i]] > 1 && (far < 0 || dist[i] > dist[far]) {
				far = i
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c]++
		dist[far] = 0
	}

	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, p)
	}
	for i, x := range data {
		floats.Add(sums[labels[i]], x)
	}
	for c := range sums {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), sums[c])
		}
	}
	return sums
}

func rows(X mat.Matrix) [][]float64 {
	n, _ := X.Dims()
	out := make([][]float64, n)
	for i := range n {
		out[i] = mat.Row(nil, i, X)
	}
	return out
}

func meanVariance(data [][]float64, p int) float64 {
	if p == 0 {
		return 0
	}
	col := make([]float64, len(data))
	total := 0.0
	for j := range p {
		for i, x := range data {
			col[i] = x[j]
		}
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return total / float64(p)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func equalLabels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}
