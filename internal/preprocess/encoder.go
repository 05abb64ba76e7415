// Package preprocess turns the loaded retail table into a numeric feature
// matrix: label encoding of categorical columns, median imputation and
// standard scaling. Every transformer follows a Fit / Transform contract and
// is fit from scratch on each run.
package preprocess

import (
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/segmentation/internal/dataframe"
	"github.com/paveg/segmentation/internal/errors"
	"github.com/paveg/segmentation/internal/series"
)

// EncodedSuffix is appended to a categorical column name to form its code column.
const EncodedSuffix = "_enc"

// LabelEncoder maps each distinct value to its rank among the sorted distinct values.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder returns an unfitted encoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the sorted set of distinct values.
func (e *LabelEncoder) Fit(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)

	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
	return e
}

// Transform maps values to codes. Values not seen during Fit are an error.
func (e *LabelEncoder) Transform(values []string) ([]int, error) {
	if e.index == nil {
		return nil, errors.NewInvalidInputError("LabelEncoder.Transform", "encoder is not fitted")
	}
	codes := make([]int, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, errors.NewInvalidInputError("LabelEncoder.Transform",
				fmt.Sprintf("unseen label %q at row %d", v, i))
		}
		codes[i] = code
	}
	return codes, nil
}

// FitTransform fits on values and encodes them.
func (e *LabelEncoder) FitTransform(values []string) []int {
	codes, _ := e.Fit(values).Transform(values)
	return codes
}

// InverseTransform maps codes back to their original values.
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.classes) {
			return nil, errors.NewInvalidInputError("LabelEncoder.InverseTransform",
				fmt.Sprintf("code %d out of range [0, %d)", c, len(e.classes)))
		}
		out[i] = e.classes[c]
	}
	return out, nil
}

// Classes returns the fitted values in code order.
func (e *LabelEncoder) Classes() []string {
	return append([]string{}, e.classes...)
}

// EncodeColumns fits an independent encoder per column and stores the codes
// as int64 columns named <col>_enc. Missing cells are encoded as the empty string.
func EncodeColumns(
	df *dataframe.DataFrame, mem memory.Allocator, columns ...string,
) (map[string]*LabelEncoder, error) {
	encoders := make(map[string]*LabelEncoder, len(columns))
	for _, col := range columns {
		values, err := df.StringColumn(col)
		if err != nil {
			return nil, err
		}

		enc := NewLabelEncoder()
		codes := enc.FitTransform(values)

		encoded := make([]int64, len(codes))
		for i, c := range codes {
			encoded[i] = int64(c)
		}
		if err := df.SetColumn(series.New(col+EncodedSuffix, encoded, mem)); err != nil {
			return nil, err
		}
		encoders[col] = enc
	}
	return encoders, nil
}
