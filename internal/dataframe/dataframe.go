// Package dataframe provides the Arrow-backed table the segmentation run mutates.
package dataframe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paveg/segmentation/internal/errors"
	"github.com/paveg/segmentation/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries.
// The DataFrame takes ownership of the series.
func New(series ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(series))

	for _, s := range series {
		name := s.Name()
		if _, exists := columns[name]; !exists {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	return append([]string{}, df.order...)
}

// Len returns the number of rows (assumes all columns have same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	return df.columns[df.order[0]].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// SetColumn adds s to the frame in place, replacing (and releasing) any
// column with the same name. The row count must match unless the frame is empty.
func (df *DataFrame) SetColumn(s ISeries) error {
	if s == nil {
		return errors.NewInvalidInputError("SetColumn", "nil series")
	}
	if df.Width() > 0 && s.Len() != df.Len() {
		return errors.NewValidationError("SetColumn", s.Name(),
			fmt.Sprintf("expected length %d, got %d", df.Len(), s.Len()))
	}

	name := s.Name()
	if old, exists := df.columns[name]; exists {
		old.Release()
	} else {
		df.order = append(df.order, name)
	}
	df.columns[name] = s
	return nil
}

// Float64Column returns a numeric column as float64 values, with NaN for nulls.
func (df *DataFrame) Float64Column(name string) ([]float64, error) {
	s, exists := df.columns[name]
	if !exists {
		return nil, errors.NewColumnNotFoundError("Float64Column", name)
	}
	arr := s.Array()
	defer arr.Release()

	values, ok := series.Float64s(arr)
	if !ok {
		return nil, errors.NewUnsupportedTypeError("Float64Column", name, arr.DataType().Name())
	}
	return values, nil
}

// StringColumn returns any column rendered as strings; nulls become "".
func (df *DataFrame) StringColumn(name string) ([]string, error) {
	s, exists := df.columns[name]
	if !exists {
		return nil, errors.NewColumnNotFoundError("StringColumn", name)
	}
	arr := s.Array()
	defer arr.Release()
	return series.Strings(arr), nil
}

// ValueCount is one distinct value and the number of rows holding it.
type ValueCount struct {
	Value string
	Count int
}

// ValueCounts counts distinct values of a column, most frequent first.
// Ties keep the order of first appearance. Nulls are not counted.
func (df *DataFrame) ValueCounts(name string) ([]ValueCount, error) {
	s, exists := df.columns[name]
	if !exists {
		return nil, errors.NewColumnNotFoundError("ValueCounts", name)
	}

	index := make(map[string]int)
	var counts []ValueCount
	for i := range s.Len() {
		if s.IsNull(i) {
			continue
		}
		v := s.GetAsString(i)
		if pos, seen := index[v]; seen {
			counts[pos].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts, nil
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, df.columns[name].DataType().String()))
	}
	return strings.Join(parts, "\n")
}

// Release releases every column held by the frame.
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}
