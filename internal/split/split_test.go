package split_test

import (
	"testing"

	"github.com/paveg/segmentation/internal/split"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(counts ...int) []int {
	var y []int
	for class, n := range counts {
		for range n {
			y = append(y, class)
		}
	}
	// interleave so class blocks are not contiguous
	out := make([]int, 0, len(y))
	for i := 0; i < len(y); i += 2 {
		out = append(out, y[i])
	}
	for i := 1; i < len(y); i += 2 {
		out = append(out, y[i])
	}
	return out
}

func countClasses(y []int, idx []int) map[int]int {
	counts := make(map[int]int)
	for _, i := range idx {
		counts[y[i]]++
	}
	return counts
}

func TestStratifiedTrainTest(t *testing.T) {
	t.Run("balanced classes", func(t *testing.T) {
		y := labels(25, 25, 25, 25)
		train, test, err := split.StratifiedTrainTest(y, 0.2, 42)
		require.NoError(t, err)

		assert.Len(t, test, 20)
		assert.Len(t, train, 80)
		assert.Equal(t, map[int]int{0: 5, 1: 5, 2: 5, 3: 5}, countClasses(y, test))
		assert.Equal(t, map[int]int{0: 20, 1: 20, 2: 20, 3: 20}, countClasses(y, train))
	})

	t.Run("proportional classes", func(t *testing.T) {
		y := labels(50, 30, 20)
		_, test, err := split.StratifiedTrainTest(y, 0.2, 7)
		require.NoError(t, err)
		assert.Equal(t, map[int]int{0: 10, 1: 6, 2: 4}, countClasses(y, test))
	})

	t.Run("largest remainder allocation", func(t *testing.T) {
		y := labels(7, 7, 6)
		train, test, err := split.StratifiedTrainTest(y, 0.2, 42)
		require.NoError(t, err)

		assert.Len(t, test, 4)
		assert.Equal(t, map[int]int{0: 2, 1: 1, 2: 1}, countClasses(y, test))
		assert.Equal(t, map[int]int{0: 5, 1: 6, 2: 5}, countClasses(y, train))
	})

	t.Run("partition is disjoint and sorted", func(t *testing.T) {
		y := labels(13, 11, 9, 17)
		train, test, err := split.StratifiedTrainTest(y, 0.2, 42)
		require.NoError(t, err)

		seen := make(map[int]bool)
		for _, i := range append(append([]int{}, train...), test...) {
			assert.False(t, seen[i], "row %d appears twice", i)
			seen[i] = true
		}
		assert.Len(t, seen, len(y))
		assert.IsIncreasing(t, train)
		assert.IsIncreasing(t, test)
		assert.Len(t, test, 10)
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		y := labels(25, 25, 25, 25)
		_, a, err := split.StratifiedTrainTest(y, 0.2, 42)
		require.NoError(t, err)
		_, b, err := split.StratifiedTrainTest(y, 0.2, 42)
		require.NoError(t, err)
		_, c, err := split.StratifiedTrainTest(y, 0.2, 43)
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})
}

func TestStratifiedTrainTestErrors(t *testing.T) {
	tests := []struct {
		name     string
		y        []int
		testSize float64
		contains string
	}{
		{"zero test size", labels(5, 5), 0, "test size"},
		{"full test size", labels(5, 5), 1, "test size"},
		{"singleton class", labels(5, 1), 0.2, "class 1"},
		{"too few test rows", labels(10, 10, 10), 0.05, "cannot hold"},
		{"too few train rows", labels(2, 2), 0.9, "cannot hold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := split.StratifiedTrainTest(tt.y, tt.testSize, 42)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
