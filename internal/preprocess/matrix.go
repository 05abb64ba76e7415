package preprocess

import (
	"math"

	"github.com/paveg/segmentation/internal/dataframe"
	"github.com/paveg/segmentation/internal/errors"
	"gonum.org/v1/gonum/mat"
)

// FeatureMatrix copies the named numeric columns into a rows × len(columns)
// matrix. Nulls become NaN.
func FeatureMatrix(df *dataframe.DataFrame, columns ...string) (*mat.Dense, error) {
	if df.Len() == 0 || len(columns) == 0 {
		return nil, errors.NewInvalidInputError("FeatureMatrix", "feature matrix would be empty")
	}

	m := mat.NewDense(df.Len(), len(columns), nil)
	for j, col := range columns {
		values, err := df.Float64Column(col)
		if err != nil {
			return nil, err
		}
		m.SetCol(j, values)
	}
	return m, nil
}

// ReplaceInf turns ±Inf entries of m into NaN and returns how many were replaced.
func ReplaceInf(m *mat.Dense) int {
	replaced := 0
	m.Apply(func(_, _ int, v float64) float64 {
		if math.IsInf(v, 0) {
			replaced++
			return math.NaN()
		}
		return v
	}, m)
	return replaced
}

// IsFinite reports whether every entry of m is a finite number.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := range r {
		for j := range c {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
