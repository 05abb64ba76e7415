// Package testutil provides shared fixtures for segmentation tests: an Arrow
// allocator with cleanup, a synthetic retail dataset, and DataFrame assertions.
package testutil

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/segmentation/internal/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RetailColumns is the header of the synthetic retail dataset.
var RetailColumns = []string{
	"Customer_ID", "Age", "Gender", "Income", "Country", "Total_Purchases",
	"Total_Amount", "Product_Category", "Ratings", "Payment_Method", "Customer_Segment",
}

// Segments are the Customer_Segment labels, assigned round-robin.
var Segments = []string{"Inactive", "New", "Premium", "Regular"}

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator for tests.
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{Allocator: memory.NewGoAllocator()}
}

// RetailOption configures the synthetic retail dataset.
type RetailOption func(*retailConfig)

type retailConfig struct {
	rows          int
	seed          int64
	missing       bool
	zeroPurchases bool
	paddedHeader  bool
}

// WithRows sets the number of rows (default 100).
func WithRows(n int) RetailOption {
	return func(cfg *retailConfig) { cfg.rows = n }
}

// WithSeed changes the generator seed.
func WithSeed(seed int64) RetailOption {
	return func(cfg *retailConfig) { cfg.seed = seed }
}

// WithMissing blanks every 10th Ratings cell and every 17th Income cell.
func WithMissing() RetailOption {
	return func(cfg *retailConfig) { cfg.missing = true }
}

// WithZeroPurchases sets Total_Purchases to 0 on every 9th row.
func WithZeroPurchases() RetailOption {
	return func(cfg *retailConfig) { cfg.zeroPurchases = true }
}

// WithPaddedHeader surrounds header names with spaces.
func WithPaddedHeader() RetailOption {
	return func(cfg *retailConfig) { cfg.paddedHeader = true }
}

// RetailRecords generates the header and rows of a retail dataset. Segments
// are balanced and each one shifts spend and age so models can separate them.
func RetailRecords(opts ...RetailOption) [][]string {
	cfg := &retailConfig{rows: 100, seed: 1}
	for _, opt := range opts {
		opt(cfg)
	}

	genders := []string{"Female", "Male"}
	incomes := []string{"High", "Low", "Medium"}
	countries := []string{"Australia", "Canada", "Germany", "UK", "USA"}
	categories := []string{"Books", "Clothing", "Electronics", "Grocery", "Home Decor"}
	payments := []string{"Cash", "Credit Card", "Debit Card", "PayPal"}

	rng := rand.New(rand.NewSource(cfg.seed))
	header := append([]string(nil), RetailColumns...)
	if cfg.paddedHeader {
		for i, h := range header {
			header[i] = " " + h + " "
		}
	}

	records := [][]string{header}
	for i := range cfg.rows {
		segment := i % len(Segments)
		age := 20 + segment*12 + rng.Intn(8)
		purchases := 1 + segment*3 + rng.Intn(4)
		if cfg.zeroPurchases && i%9 == 0 {
			purchases = 0
		}
		amount := float64(200+segment*1500) + rng.Float64()*300
		ratings := strconv.Itoa(1 + (segment+rng.Intn(2))%5)
		income := incomes[(segment+rng.Intn(2))%len(incomes)]
		if cfg.missing && i%10 == 3 {
			ratings = ""
		}
		if cfg.missing && i%17 == 5 {
			income = ""
		}

		records = append(records, []string{
			strconv.Itoa(1000 + i),
			strconv.Itoa(age),
			genders[rng.Intn(len(genders))],
			income,
			countries[rng.Intn(len(countries))],
			strconv.Itoa(purchases),
			strconv.FormatFloat(amount, 'f', 2, 64),
			categories[rng.Intn(len(categories))],
			ratings,
			payments[(segment+rng.Intn(3))%len(payments)],
			Segments[segment],
		})
	}
	return records
}

// WriteRetailCSV writes a synthetic retail dataset into dir and returns its path.
func WriteRetailCSV(tb testing.TB, dir string, opts ...RetailOption) string {
	tb.Helper()

	path := filepath.Join(dir, "retail_data_sample.csv")
	f, err := os.Create(path)
	require.NoError(tb, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(tb, w.WriteAll(RetailRecords(opts...)))
	return path
}

// AssertDataFrameHasColumns verifies that a DataFrame has the expected columns.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()
	require.NotNil(t, df, "DataFrame should not be nil")
	for _, col := range expectedColumns {
		assert.True(t, df.HasColumn(col), "DataFrame should have column %s", col)
	}
}

// AssertDataFrameNotEmpty verifies that a DataFrame is not empty.
func AssertDataFrameNotEmpty(t *testing.T, df *dataframe.DataFrame) {
	t.Helper()
	require.NotNil(t, df, "DataFrame should not be nil")
	assert.Positive(t, df.Len(), "DataFrame should not be empty")
	assert.Positive(t, df.Width(), "DataFrame should have columns")
}

// SegmentCounts tallies Customer_Segment labels in records (header excluded).
func SegmentCounts(records [][]string) map[string]int {
	idx := len(RetailColumns) - 1
	counts := make(map[string]int)
	for _, r := range records[1:] {
		counts[r[idx]]++
	}
	return counts
}

