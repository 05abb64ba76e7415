package cluster_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/paveg/segmentation/internal/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blobs returns perClass points around each center with small uniform noise.
func blobs(centers [][]float64, perClass int, seed int64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	p := len(centers[0])
	X := mat.NewDense(len(centers)*perClass, p, nil)
	truth := make([]int, 0, len(centers)*perClass)
	row := 0
	for c, center := range centers {
		for range perClass {
			for j := range p {
				X.Set(row, j, center[j]+rng.Float64()-0.5)
			}
			truth = append(truth, c)
			row++
		}
	}
	return X, truth
}

var fourCenters = [][]float64{{0, 0}, {20, 0}, {0, 20}, {20, 20}}

func TestKMeansRecoversSeparatedClusters(t *testing.T) {
	X, truth := blobs(fourCenters, 25, 1)

	km := cluster.NewKMeans(4)
	labels, err := km.FitPredict(context.Background(), X)
	require.NoError(t, err)
	require.Len(t, labels, 100)

	// every true group maps onto exactly one cluster id
	mapping := make(map[int]int)
	for i, l := range labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, 4)
		if id, ok := mapping[truth[i]]; ok {
			assert.Equal(t, id, l, "row %d", i)
		} else {
			mapping[truth[i]] = l
		}
	}
	assert.Len(t, mapping, 4)

	r, c := km.Centroids().Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Greater(t, km.Inertia(), 0.0)
	assert.Less(t, km.Inertia(), 100.0)
	assert.GreaterOrEqual(t, km.Iterations(), 1)
}

func TestKMeansDeterministic(t *testing.T) {
	X, _ := blobs(fourCenters, 30, 7)

	fit := func(workers int) ([]int, float64) {
		km := cluster.NewKMeans(4)
		km.Workers = workers
		labels, err := km.FitPredict(context.Background(), X)
		require.NoError(t, err)
		return labels, km.Inertia()
	}

	a, ia := fit(1)
	b, ib := fit(8)
	assert.Equal(t, a, b)
	assert.Equal(t, ia, ib)
}

func TestKMeansPredict(t *testing.T) {
	X, _ := blobs(fourCenters, 10, 3)
	km := cluster.NewKMeans(4)
	require.NoError(t, km.Fit(context.Background(), X))

	labels, err := km.Predict(km.Centroids())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, labels)

	assert.Equal(t, km.Labels(), mustPredict(t, km, X))

	_, err = km.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)

	_, err = cluster.NewKMeans(2).Predict(X)
	assert.Error(t, err)
}

func mustPredict(t *testing.T, km *cluster.KMeans, X mat.Matrix) []int {
	t.Helper()
	labels, err := km.Predict(X)
	require.NoError(t, err)
	return labels
}

func TestKMeansIdenticalRows(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	km := cluster.NewKMeans(3)
	labels, err := km.FitPredict(context.Background(), X)
	require.NoError(t, err)
	assert.Len(t, labels, 6)
	assert.Equal(t, 0.0, km.Inertia())
}

func TestKMeansErrors(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 2})

	tests := []struct {
		name   string
		mutate func(*cluster.KMeans)
	}{
		{"fewer rows than clusters", func(km *cluster.KMeans) { km.K = 4 }},
		{"zero clusters", func(km *cluster.KMeans) { km.K = 0 }},
		{"zero restarts", func(km *cluster.KMeans) { km.NInit = 0 }},
		{"zero iterations", func(km *cluster.KMeans) { km.MaxIter = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km := cluster.NewKMeans(2)
			tt.mutate(km)
			assert.Error(t, km.Fit(context.Background(), X))
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, cluster.NewKMeans(2).Fit(ctx, X), context.Canceled)
	})
}
