// Package errors provides the typed errors used across the segmentation run.
//
// DataFrameError describes a failed table operation (missing column, length
// mismatch, unsupported type). PipelineError attaches the failing pipeline
// stage to any underlying cause so the CLI can report where a run stopped.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Stage names used in PipelineError.
const (
	StageLoad     = "load"
	StageFeatures = "features"
	StageEncode   = "encode"
	StagePrepare  = "impute_scale"
	StageCluster  = "cluster"
	StageClassify = "classify"
	StageReport   = "report"
)

// DataFrameError represents a failed operation on a table or column
type DataFrameError struct {
	Op      string // Operation name (e.g., "Float64Column", "SetColumn")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DataFrameError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DataFrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *DataFrameError) Is(target error) bool {
	if df, ok := target.(*DataFrameError); ok {
		return e.Op == df.Op && e.Column == df.Column && e.Message == df.Message
	}
	return false
}

// NewColumnNotFoundError creates an error for operations on non-existent columns
func NewColumnNotFoundError(op, column string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: "column does not exist",
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for a column of the wrong type
func NewUnsupportedTypeError(op, column, typeName string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewValidationError creates an error for input validation failures
func NewValidationError(op, column, message string) *DataFrameError {
	return &DataFrameError{
		Op:      op,
		Column:  column,
		Message: message,
	}
}

// ErrMismatchedLength indicates length mismatches in operations
var ErrMismatchedLength = &DataFrameError{
	Op:      "validation",
	Message: "arrays must have the same length",
}

// PipelineError reports the stage at which a segmentation run failed.
type PipelineError struct {
	Stage   string
	Column  string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	var parts []string
	switch {
	case e.Message != "" && e.Column != "":
		parts = append(parts, fmt.Sprintf("column '%s': %s", e.Column, e.Message))
	case e.Message != "":
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return fmt.Sprintf("%s stage failed: %s", e.Stage, strings.Join(parts, ": "))
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Wrap attaches a stage to cause. A nil cause yields nil. When cause carries
// a DataFrameError its column is copied onto the PipelineError.
func Wrap(stage string, cause error) error {
	if cause == nil {
		return nil
	}
	pe := &PipelineError{Stage: stage, Cause: cause}
	var dfe *DataFrameError
	if stderrors.As(cause, &dfe) {
		pe.Column = dfe.Column
	}
	return pe
}

// NewStageError creates a PipelineError without an underlying cause.
func NewStageError(stage, column, message string) *PipelineError {
	return &PipelineError{Stage: stage, Column: column, Message: message}
}
