package io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"
	"github.com/paveg/segmentation/internal/dataframe"
)

// ReadFile loads path into a DataFrame, choosing the reader by file extension.
// ".parquet" and ".pq" use the Parquet reader; anything else is read as CSV.
func ReadFile(path string, mem memory.Allocator) (*dataframe.DataFrame, error) {
	df, _, err := ReadFileWithFingerprint(path, mem)
	return df, err
}

// ReadFileWithFingerprint is ReadFile that also returns the xxhash64 digest
// of the raw file bytes, so runs over the same input can be correlated.
func ReadFileWithFingerprint(path string, mem memory.Allocator) (*dataframe.DataFrame, uint64, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	digest := xxhash.New()
	src := io.TeeReader(f, digest)

	var reader DataReader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		reader = NewParquetReader(src, mem)
	default:
		reader = NewCSVReader(src, DefaultCSVOptions(), mem)
	}

	df, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	// drain anything the reader left unread so the digest covers the whole file
	if _, err := io.Copy(digest, f); err != nil {
		df.Release()
		return nil, 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return df, digest.Sum64(), nil
}
