package preprocess

import (
	"fmt"

	"github.com/paveg/segmentation/internal/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers columns to zero mean and scales them to unit
// population variance. Constant columns keep a scale of 1.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// NewStandardScaler returns an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit computes per-column mean and population standard deviation.
func (s *StandardScaler) Fit(m mat.Matrix) error {
	r, c := m.Dims()
	if r == 0 {
		return errors.NewInvalidInputError("StandardScaler.Fit", "no rows")
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := range c {
		mat.Col(col, j, m)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Transform returns a standardized copy of m.
func (s *StandardScaler) Transform(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if c != len(s.Mean) {
		return nil, errors.NewValidationError("StandardScaler.Transform", "",
			fmt.Sprintf("expected %d columns, got %d", len(s.Mean), c))
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, m)
	return out, nil
}

// FitTransform fits on m and returns the standardized copy.
func (s *StandardScaler) FitTransform(m mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(m); err != nil {
		return nil, err
	}
	return s.Transform(m)
}
