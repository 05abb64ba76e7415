package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paveg/segmentation/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultValues(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "/output/retail_data_sample.csv", cfg.InputPath)
	assert.Equal(t, "/output/customer_clusters.png", cfg.ClusterPlotPath())
	assert.Equal(t, "/output/payment_method_distribution.png", cfg.PaymentPlotPath())
	assert.Equal(t, 4, cfg.Clusters)
	assert.Equal(t, 10, cfg.NInit)
	assert.Equal(t, 300, cfg.MaxIter)
	assert.InDelta(t, 1e-4, cfg.Tol, 1e-12)
	assert.Equal(t, 100, cfg.Trees)
	assert.Equal(t, 0, cfg.MaxDepth) // unlimited
	assert.InDelta(t, 0.2, cfg.TestSize, 1e-12)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0, cfg.Workers) // auto-detect
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*config.Config)
		expectedError string
	}{
		{"valid config", func(*config.Config) {}, ""},
		{"empty input", func(c *config.Config) { c.InputPath = " " }, "InputPath must not be empty"},
		{"empty output dir", func(c *config.Config) { c.OutputDir = "" }, "OutputDir must not be empty"},
		{"empty chart name", func(c *config.Config) { c.PaymentPlot = "" }, "chart file names"},
		{"zero clusters", func(c *config.Config) { c.Clusters = 0 }, "Clusters must be positive, got 0"},
		{"negative restarts", func(c *config.Config) { c.NInit = -1 }, "NInit must be positive, got -1"},
		{"zero iterations", func(c *config.Config) { c.MaxIter = 0 }, "MaxIter must be positive"},
		{"negative tolerance", func(c *config.Config) { c.Tol = -1 }, "Tol must be non-negative"},
		{"zero trees", func(c *config.Config) { c.Trees = 0 }, "Trees must be positive, got 0"},
		{"negative depth", func(c *config.Config) { c.MaxDepth = -2 }, "MaxDepth must be non-negative"},
		{"test size one", func(c *config.Config) { c.TestSize = 1 }, "TestSize must be between 0 and 1"},
		{"negative workers", func(c *config.Config) { c.Workers = -1 }, "Workers must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := config.Config{Clusters: 6, Seed: 0}.WithDefaults()

	assert.Equal(t, 6, cfg.Clusters)
	assert.Equal(t, config.DefaultInputPath, cfg.InputPath)
	assert.Equal(t, config.DefaultTrees, cfg.Trees)
	assert.InDelta(t, config.DefaultTestSize, cfg.TestSize, 1e-12)
	assert.Equal(t, int64(0), cfg.Seed, "zero seed is kept")
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "run.yaml")
		require.NoError(t, os.WriteFile(path, []byte("input: data.csv\nclusters: 5\ntest_size: 0.25\nseed: 7\n"), 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "data.csv", cfg.InputPath)
		assert.Equal(t, 5, cfg.Clusters)
		assert.InDelta(t, 0.25, cfg.TestSize, 1e-12)
		assert.Equal(t, int64(7), cfg.Seed)
		assert.Equal(t, config.DefaultTrees, cfg.Trees, "absent keys keep defaults")
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "run.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"output_dir": "/tmp/out", "trees": 50, "n_init": 3}`), 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/out", cfg.OutputDir)
		assert.Equal(t, 50, cfg.Trees)
		assert.Equal(t, 3, cfg.NInit)
		assert.Equal(t, int64(42), cfg.Seed)
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(dir, "run.toml")
		require.NoError(t, os.WriteFile(path, []byte("clusters = 3"), 0o600))
		_, err := config.LoadFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config file format")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("clusters: [1, 2"), 0o600))
		_, err := config.LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadFromFile(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConfig_ApplyViper(t *testing.T) {
	v := viper.New()
	v.Set(config.KeyClusters, 3)
	v.Set(config.KeyTestSize, 0.3)
	v.Set(config.KeySeed, "11")

	cfg := config.NewConfig().ApplyViper(v)
	assert.Equal(t, 3, cfg.Clusters)
	assert.InDelta(t, 0.3, cfg.TestSize, 1e-12)
	assert.Equal(t, int64(11), cfg.Seed)
	assert.Equal(t, config.DefaultTrees, cfg.Trees, "unset keys are untouched")
	assert.Equal(t, config.DefaultInputPath, cfg.InputPath)
}

func TestConfig_ApplyViperEnvironment(t *testing.T) {
	t.Setenv("SEGMENTATION_INPUT", "/data/retail.parquet")
	t.Setenv("SEGMENTATION_N_INIT", "2")

	v := viper.New()
	v.SetEnvPrefix("SEGMENTATION")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := config.NewConfig().ApplyViper(v)
	assert.Equal(t, "/data/retail.parquet", cfg.InputPath)
	assert.Equal(t, 2, cfg.NInit)
}
