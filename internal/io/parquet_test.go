package io_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/segmentation/internal/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeParquetFixture(t *testing.T, mem memory.Allocator) []byte {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: " Age", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "Total_Amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "Payment_Method", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	builder.Field(0).(*array.Int64Builder).AppendValues([]int64{22, 35, 0}, []bool{true, true, false})
	builder.Field(1).(*array.Float64Builder).AppendValues([]float64{10.5, 99, 42}, nil)
	builder.Field(2).(*array.StringBuilder).AppendValues([]string{"Cash", "PayPal", "Cash"}, nil)

	record := builder.NewRecord()
	defer record.Release()

	table := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer table.Release()

	var buf bytes.Buffer
	err := pqarrow.WriteTable(table, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParquetReader(t *testing.T) {
	mem := memory.NewGoAllocator()
	data := writeParquetFixture(t, mem)

	t.Run("reads columns and trims names", func(t *testing.T) {
		df, err := io.NewParquetReader(bytes.NewReader(data), mem).Read()
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 3, df.Len())
		assert.Equal(t, []string{"Age", "Total_Amount", "Payment_Method"}, df.Columns())

		ages, err := df.Float64Column("Age")
		require.NoError(t, err)
		assert.Equal(t, 22.0, ages[0])
		assert.NotEqual(t, ages[2], ages[2]) // NaN

		methods, err := df.StringColumn("Payment_Method")
		require.NoError(t, err)
		assert.Equal(t, []string{"Cash", "PayPal", "Cash"}, methods)
	})

	t.Run("ReadFile dispatches on extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "retail.parquet")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		df, err := io.ReadFile(path, mem)
		require.NoError(t, err)
		defer df.Release()

		assert.Equal(t, 3, df.Len())
	})

	t.Run("rejects non-parquet bytes", func(t *testing.T) {
		_, err := io.NewParquetReader(bytes.NewReader([]byte("Age,Gender\n")), mem).Read()
		assert.Error(t, err)
	})
}
