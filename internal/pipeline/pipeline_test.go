package pipeline_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paveg/segmentation/internal/config"
	"github.com/paveg/segmentation/internal/errors"
	"github.com/paveg/segmentation/internal/pipeline"
	"github.com/paveg/segmentation/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, input string) config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.InputPath = input
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Trees = 20
	return cfg
}

func runPipeline(t *testing.T, cfg config.Config) (*pipeline.Result, string) {
	t.Helper()
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	var out bytes.Buffer
	p := pipeline.New(cfg,
		pipeline.WithOutput(&out),
		pipeline.WithLogger(zerolog.Nop()),
		pipeline.WithAllocator(mem.Allocator),
	)
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	return result, out.String()
}

func writeRecords(t *testing.T, records [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retail.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, csv.NewWriter(f).WriteAll(records))
	require.NoError(t, f.Close())
	return path
}

func columnIndex(t *testing.T, records [][]string, name string) int {
	t.Helper()
	for i, h := range records[0] {
		if h == name {
			return i
		}
	}
	require.FailNow(t, "column not in header", name)
	return -1
}

func TestRun(t *testing.T) {
	input := testutil.WriteRetailCSV(t, t.TempDir())
	cfg := testConfig(t, input)

	result, out := runPipeline(t, cfg)

	t.Run("result", func(t *testing.T) {
		assert.NotEmpty(t, result.RunID)
		assert.NotZero(t, result.Fingerprint)
		assert.Equal(t, 100, result.Rows)
		assert.Len(t, result.Clusters, 100)
		for _, c := range result.Clusters {
			assert.True(t, c >= 0 && c < 4, "cluster %d out of range", c)
		}
		assert.Equal(t, testutil.Segments, result.Classes)
		assert.Len(t, result.TestIndices, 20)
		assert.Len(t, result.YPred, 20)
		assert.Len(t, result.FeatureImportances, len(pipeline.FeatureColumns))
		assert.Positive(t, result.Inertia)
	})

	t.Run("stage metrics", func(t *testing.T) {
		require.Len(t, result.Stages, 7)
		names := make([]string, len(result.Stages))
		for i, s := range result.Stages {
			names[i] = s.Stage
			assert.Equal(t, 100, s.Rows)
			assert.False(t, s.Failed)
		}
		assert.Equal(t, []string{
			errors.StageLoad, errors.StageFeatures, errors.StageEncode, errors.StagePrepare,
			errors.StageCluster, errors.StageClassify, errors.StageReport,
		}, names)
	})

	t.Run("cluster counts", func(t *testing.T) {
		require.Len(t, result.ClusterCounts, 4)
		total := 0
		for i, cc := range result.ClusterCounts {
			total += cc.Count
			if i > 0 {
				assert.LessOrEqual(t, cc.Count, result.ClusterCounts[i-1].Count)
			}
		}
		assert.Equal(t, 100, total)
	})

	t.Run("report", func(t *testing.T) {
		require.NotNil(t, result.Report)
		require.Len(t, result.Report.Classes, 4)
		for i, row := range result.Report.Classes {
			assert.Equal(t, string(rune('0'+i)), row.Label)
			assert.Equal(t, 5, row.Support)
		}
		assert.Equal(t, 20, result.Report.Total)
		assert.Greater(t, result.Report.Accuracy, 0.5)
	})

	t.Run("console output", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(out, "\nRandom Forest Classification Report:\n"))
		reportAt := strings.Index(out, "precision")
		countsAt := strings.Index(out, "\nCustomer Segments (K-Means):\n")
		require.Positive(t, reportAt)
		require.Greater(t, countsAt, reportAt)
		assert.Contains(t, out, "Cluster\n")
		assert.True(t, strings.HasSuffix(out, "Name: count, dtype: int64\n"))
	})

	t.Run("charts", func(t *testing.T) {
		assert.Equal(t, filepath.Join(cfg.OutputDir, config.DefaultClusterPlot), result.ClusterPlotPath)
		assert.Equal(t, filepath.Join(cfg.OutputDir, config.DefaultPaymentPlot), result.PaymentPlotPath)
		for _, path := range []string{result.ClusterPlotPath, result.PaymentPlotPath} {
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		}

		total := 0
		for _, pc := range result.PaymentCounts {
			total += pc.Count
		}
		assert.Equal(t, 100, total)
	})
}

func TestRunDeterministic(t *testing.T) {
	input := testutil.WriteRetailCSV(t, t.TempDir())

	first, firstOut := runPipeline(t, testConfig(t, input))

	cfg := testConfig(t, input)
	cfg.Workers = 1
	second, secondOut := runPipeline(t, cfg)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Clusters, second.Clusters)
	assert.Equal(t, first.TestIndices, second.TestIndices)
	assert.Equal(t, first.YPred, second.YPred)
	assert.Equal(t, firstOut, secondOut)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunMissingValues(t *testing.T) {
	input := testutil.WriteRetailCSV(t, t.TempDir(),
		testutil.WithMissing(),
		testutil.WithZeroPurchases(),
		testutil.WithPaddedHeader(),
	)

	result, _ := runPipeline(t, testConfig(t, input))
	assert.Equal(t, 100, result.Rows)
	assert.Len(t, result.Clusters, 100)
	assert.Len(t, result.Report.Classes, 4)
}

func TestRunErrors(t *testing.T) {
	t.Run("missing input file", func(t *testing.T) {
		cfg := testConfig(t, filepath.Join(t.TempDir(), "absent.csv"))
		_, err := pipeline.New(cfg, pipeline.WithOutput(&bytes.Buffer{})).Run(context.Background())
		require.Error(t, err)

		var pe *errors.PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, errors.StageLoad, pe.Stage)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing column", func(t *testing.T) {
		records := testutil.RetailRecords(testutil.WithRows(20))
		for i := range records {
			records[i] = records[i][:len(records[i])-1] // drop Customer_Segment
		}
		path := writeRecords(t, records)

		_, err := pipeline.New(testConfig(t, path), pipeline.WithOutput(&bytes.Buffer{})).Run(context.Background())
		require.Error(t, err)

		var pe *errors.PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, errors.StageLoad, pe.Stage)
		assert.Equal(t, pipeline.TargetColumn, pe.Column)
	})

	t.Run("too few rows for the split", func(t *testing.T) {
		input := testutil.WriteRetailCSV(t, t.TempDir(), testutil.WithRows(6))
		cfg := testConfig(t, input)
		cfg.Clusters = 2

		_, err := pipeline.New(cfg, pipeline.WithOutput(&bytes.Buffer{})).Run(context.Background())
		require.Error(t, err)

		var pe *errors.PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, errors.StageClassify, pe.Stage)
	})

	t.Run("empty dataset", func(t *testing.T) {
		records := testutil.RetailRecords(testutil.WithRows(0))
		path := writeRecords(t, records)

		_, err := pipeline.New(testConfig(t, path), pipeline.WithOutput(&bytes.Buffer{})).Run(context.Background())
		require.Error(t, err)

		var pe *errors.PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, errors.StageLoad, pe.Stage)
	})

	t.Run("scaled features overflow", func(t *testing.T) {
		records := testutil.RetailRecords(testutil.WithRows(20))
		amount := columnIndex(t, records, "Total_Amount")
		for _, r := range records[1:] {
			r[amount] = "1e308"
		}
		path := writeRecords(t, records)

		_, err := pipeline.New(testConfig(t, path), pipeline.WithOutput(&bytes.Buffer{})).Run(context.Background())
		require.Error(t, err)

		var pe *errors.PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, errors.StagePrepare, pe.Stage)
		assert.Contains(t, err.Error(), "non-finite")
	})

	t.Run("numeric feature with no values", func(t *testing.T) {
		records := testutil.RetailRecords(testutil.WithRows(40))
		ratings := columnIndex(t, records, pipeline.RatingsColumn)
		for _, r := range records[1:] {
			r[ratings] = ""
		}
		path := writeRecords(t, records)

		_, err := pipeline.New(testConfig(t, path), pipeline.WithOutput(&bytes.Buffer{})).Run(context.Background())
		require.Error(t, err)

		var pe *errors.PipelineError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, errors.StagePrepare, pe.Stage)
		assert.Equal(t, pipeline.RatingsColumn, pe.Column)
		assert.Contains(t, err.Error(), "no values to compute a median from")
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := testConfig(t, "data.csv")
		cfg.TestSize = 1.5
		_, err := pipeline.New(cfg).Run(context.Background())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		input := testutil.WriteRetailCSV(t, t.TempDir(), testutil.WithRows(20))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := pipeline.New(testConfig(t, input), pipeline.WithOutput(&bytes.Buffer{})).Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
