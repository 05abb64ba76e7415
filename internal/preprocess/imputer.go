package preprocess

import (
	"fmt"
	"math"
	"sort"

	"github.com/paveg/segmentation/internal/errors"
	"gonum.org/v1/gonum/mat"
)

// MedianImputer fills NaN entries with the median of their column.
type MedianImputer struct {
	// Names optionally labels columns in error messages.
	Names   []string
	Medians []float64
}

// NewMedianImputer returns an unfitted imputer.
func NewMedianImputer() *MedianImputer {
	return &MedianImputer{}
}

// Fit computes per-column medians over the non-NaN entries of m.
// A column without any value is an error.
func (imp *MedianImputer) Fit(m mat.Matrix) error {
	r, c := m.Dims()
	medians := make([]float64, c)
	buf := make([]float64, 0, r)

	for j := range c {
		buf = buf[:0]
		for i := range r {
			if v := m.At(i, j); !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			if j < len(imp.Names) {
				return errors.NewValidationError("MedianImputer.Fit", imp.Names[j],
					"no values to compute a median from")
			}
			return errors.NewValidationError("MedianImputer.Fit", "",
				fmt.Sprintf("column %d has no values to compute a median from", j))
		}
		medians[j] = median(buf)
	}

	imp.Medians = medians
	return nil
}

// Transform returns a copy of m with NaN entries replaced by the fitted medians.
func (imp *MedianImputer) Transform(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if c != len(imp.Medians) {
		return nil, errors.NewValidationError("MedianImputer.Transform", "",
			fmt.Sprintf("expected %d columns, got %d", len(imp.Medians), c))
	}

	out := mat.DenseCopyOf(m)
	for i := range r {
		for j := range c {
			if math.IsNaN(out.At(i, j)) {
				out.Set(i, j, imp.Medians[j])
			}
		}
	}
	return out, nil
}

// FitTransform fits on m and returns the imputed copy.
func (imp *MedianImputer) FitTransform(m mat.Matrix) (*mat.Dense, error) {
	if err := imp.Fit(m); err != nil {
		return nil, err
	}
	return imp.Transform(m)
}

// median sorts values in place; even counts average the two middle values.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
