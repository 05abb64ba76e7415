package io

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/segmentation/internal/dataframe"
	"github.com/paveg/segmentation/internal/series"
)

// Read reads Parquet data and returns a DataFrame.
func (r *ParquetReader) Read() (*dataframe.DataFrame, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.arrowTableToDataFrame(table)
}

// arrowTableToDataFrame converts an Arrow table to a DataFrame.
func (r *ParquetReader) arrowTableToDataFrame(table arrow.Table) (*dataframe.DataFrame, error) {
	schema := table.Schema()
	seriesList := make([]dataframe.ISeries, 0, table.NumCols())
	seen := make(map[string]bool)

	for i := range int(table.NumCols()) {
		name := strings.TrimSpace(schema.Field(i).Name)
		if seen[name] {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = true

		s, err := r.columnToSeries(name, table.Column(i))
		if err != nil {
			for _, prev := range seriesList {
				prev.Release()
			}
			return nil, fmt.Errorf("converting column %s: %w", name, err)
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// columnToSeries flattens a chunked column into a single-array series.
func (r *ParquetReader) columnToSeries(name string, column *arrow.Column) (dataframe.ISeries, error) {
	chunks := column.Data().Chunks()

	var arr arrow.Array
	switch len(chunks) {
	case 0:
		arr = array.MakeArrayOfNull(r.mem, column.DataType(), 0)
	case 1:
		arr = chunks[0]
		arr.Retain()
	default:
		merged, err := array.Concatenate(chunks, r.mem)
		if err != nil {
			return nil, err
		}
		arr = merged
	}
	defer arr.Release()

	//nolint:exhaustive // the segmentation dataset only carries these types
	switch arr.DataType().ID() {
	case arrow.INT64:
		return series.FromArray[int64](name, arr), nil
	case arrow.INT32:
		return series.FromArray[int32](name, arr), nil
	case arrow.FLOAT64:
		return series.FromArray[float64](name, arr), nil
	case arrow.FLOAT32:
		return series.FromArray[float32](name, arr), nil
	case arrow.STRING:
		return series.FromArray[string](name, arr), nil
	case arrow.BOOL:
		return series.FromArray[bool](name, arr), nil
	default:
		return nil, fmt.Errorf("unsupported Arrow type: %s", arr.DataType())
	}
}
