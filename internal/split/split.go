// Package split partitions labelled rows into train and test index sets.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/paveg/segmentation/internal/errors"
)

// StratifiedTrainTest returns train and test row indices such that every
// class keeps roughly its share of rows in both sets. The test set holds
// ceil(testSize*n) rows. Both index lists are in ascending row order.
func StratifiedTrainTest(y []int, testSize float64, seed int64) (train, test []int, err error) {
	const op = "StratifiedTrainTest"

	n := len(y)
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewInvalidInputError(op,
			fmt.Sprintf("test size must be in (0, 1), got %g", testSize))
	}

	classes, members := groupByClass(y)
	for i, c := range classes {
		if len(members[i]) < 2 {
			return nil, nil, errors.NewInvalidInputError(op,
				fmt.Sprintf("class %d has %d member(s); at least 2 are required", c, len(members[i])))
		}
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, nil, errors.NewInvalidInputError(op,
			fmt.Sprintf("%d train and %d test rows cannot hold %d classes", nTrain, nTest, len(classes)))
	}

	counts := make([]int, len(classes))
	for i := range members {
		counts[i] = len(members[i])
	}
	testCounts := allocate(counts, nTest)
	rest := make([]int, len(counts))
	for i := range counts {
		rest[i] = counts[i] - testCounts[i]
	}
	trainCounts := allocate(rest, nTrain)

	rng := rand.New(rand.NewSource(seed))
	train = make([]int, 0, nTrain)
	test = make([]int, 0, nTest)
	for i, rows := range members {
		shuffled := make([]int, len(rows))
		for j, p := range rng.Perm(len(rows)) {
			shuffled[j] = rows[p]
		}
		test = append(test, shuffled[:testCounts[i]]...)
		train = append(train, shuffled[testCounts[i]:testCounts[i]+trainCounts[i]]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// groupByClass returns the sorted distinct classes and the row indices of each.
func groupByClass(y []int) ([]int, [][]int) {
	byClass := make(map[int][]int)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}

	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	members := make([][]int, len(classes))
	for i, c := range classes {
		members[i] = byClass[c]
	}
	return classes, members
}

// allocate distributes total draws across classes in proportion to counts
// using largest remainders. Remainder ties go to the lower class index.
// No class receives more than its count.
func allocate(counts []int, total int) []int {
	sum := 0
	for _, c := range counts {
		sum += c
	}

	out := make([]int, len(counts))
	if sum == 0 || total == 0 {
		return out
	}

	type remainder struct {
		class int
		frac  float64
	}
	rems := make([]remainder, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(total) * float64(c) / float64(sum)
		out[i] = int(math.Floor(exact))
		assigned += out[i]
		rems[i] = remainder{class: i, frac: exact - float64(out[i])}
	}

	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].frac > rems[b].frac
	})
	for left := total - assigned; left > 0; {
		progressed := false
		for _, r := range rems {
			if left == 0 {
				break
			}
			if out[r.class] < counts[r.class] {
				out[r.class]++
				left--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}
