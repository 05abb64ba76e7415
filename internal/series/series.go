// Package series provides data structures for column operations
package series

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"
)

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	return NewWithValidity(name, values, nil, mem)
}

// NewWithValidity creates a Series where valid[i] == false marks row i as null.
// A nil validity slice means every row is valid.
func NewWithValidity[T any](name string, values []T, valid []bool, mem memory.Allocator) *Series[T] {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if valid != nil && len(valid) != len(values) {
		panic(fmt.Sprintf("validity length %d does not match values length %d", len(valid), len(values)))
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr = builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}

	return &Series[T]{
		name:  name,
		array: arr,
	}
}

// FromArray wraps an existing Arrow array. The series takes its own reference.
func FromArray[T any](name string, arr arrow.Array) *Series[T] {
	arr.Retain()
	return &Series[T]{name: name, array: arr}
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Rename returns a series sharing the same Arrow data under a new name.
func (s *Series[T]) Rename(name string) *Series[T] {
	return FromArray[T](name, s.array)
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// Values returns the data as a Go slice. Null slots hold the zero value.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())
	for i := range result {
		result[i] = s.Value(i)
	}
	return result
}

// Value returns the value at the given index
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	}

	return result
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// NullN returns the number of null slots.
func (s *Series[T]) NullN() int {
	return s.array.NullN()
}

// GetAsString renders the value at index; nulls render as an empty string.
func (s *Series[T]) GetAsString(index int) string {
	return ValueAsString(s.array, index)
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}

// ValueAsString formats a single Arrow slot.
func ValueAsString(arr arrow.Array, index int) string {
	if index < 0 || index >= arr.Len() || arr.IsNull(index) {
		return ""
	}
	switch typed := arr.(type) {
	case *array.String:
		return typed.Value(index)
	case *array.Int64:
		return strconv.FormatInt(typed.Value(index), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(typed.Value(index)), 10)
	case *array.Float64:
		return strconv.FormatFloat(typed.Value(index), 'g', -1, 64)
	case *array.Float32:
		return strconv.FormatFloat(float64(typed.Value(index)), 'g', -1, 32)
	case *array.Boolean:
		return strconv.FormatBool(typed.Value(index))
	default:
		return ""
	}
}

// Float64s converts a numeric Arrow array to float64 values with NaN for nulls.
// The second result is false when the array is not numeric.
func Float64s(arr arrow.Array) ([]float64, bool) {
	switch typed := arr.(type) {
	case *array.Float64:
		return numericToFloat64(typed.Len(), typed.IsNull, typed.Value), true
	case *array.Float32:
		return numericToFloat64(typed.Len(), typed.IsNull, typed.Value), true
	case *array.Int64:
		return numericToFloat64(typed.Len(), typed.IsNull, typed.Value), true
	case *array.Int32:
		return numericToFloat64(typed.Len(), typed.IsNull, typed.Value), true
	default:
		return nil, false
	}
}

func numericToFloat64[N constraints.Integer | constraints.Float](
	n int, isNull func(int) bool, value func(int) N,
) []float64 {
	out := make([]float64, n)
	for i := range n {
		if isNull(i) {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(value(i))
	}
	return out
}

// Strings renders every slot of arr as a string; nulls become "".
func Strings(arr arrow.Array) []string {
	out := make([]string, arr.Len())
	for i := range out {
		out[i] = ValueAsString(arr, i)
	}
	return out
}
