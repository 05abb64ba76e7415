// Package config holds the settings of a segmentation run: input and output
// locations plus the clustering and classification hyperparameters.
//
// Settings are layered: NewConfig defaults, then an optional JSON or YAML
// file (LoadFromFile), then flag and environment overrides read through
// viper (ApplyViper).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the settings of one segmentation run
type Config struct {
	// Input and output
	InputPath   string `json:"input" yaml:"input" mapstructure:"input"`                      // CSV or Parquet dataset
	OutputDir   string `json:"output_dir" yaml:"output_dir" mapstructure:"output-dir"`       // Directory receiving the charts
	ClusterPlot string `json:"cluster_plot" yaml:"cluster_plot" mapstructure:"cluster-plot"` // File name of the cluster scatter
	PaymentPlot string `json:"payment_plot" yaml:"payment_plot" mapstructure:"payment-plot"` // File name of the payment bar chart

	// Clustering
	Clusters int     `json:"clusters" yaml:"clusters" mapstructure:"clusters"`
	NInit    int     `json:"n_init" yaml:"n_init" mapstructure:"n-init"` // K-Means restarts
	MaxIter  int     `json:"max_iter" yaml:"max_iter" mapstructure:"max-iter"`
	Tol      float64 `json:"tol" yaml:"tol" mapstructure:"tol"`

	// Classification
	Trees    int     `json:"trees" yaml:"trees" mapstructure:"trees"`
	MaxDepth int     `json:"max_depth" yaml:"max_depth" mapstructure:"max-depth"` // 0 = unlimited
	TestSize float64 `json:"test_size" yaml:"test_size" mapstructure:"test-size"`

	// Shared
	Seed    int64 `json:"seed" yaml:"seed" mapstructure:"seed"`
	Workers int   `json:"workers" yaml:"workers" mapstructure:"workers"` // 0 = runtime.NumCPU()
}

// Default configuration values
const (
	DefaultInputPath   = "/output/retail_data_sample.csv"
	DefaultOutputDir   = "/output"
	DefaultClusterPlot = "customer_clusters.png"
	DefaultPaymentPlot = "payment_method_distribution.png"
	DefaultClusters    = 4
	DefaultNInit       = 10
	DefaultMaxIter     = 300
	DefaultTol         = 1e-4
	DefaultTrees       = 100
	DefaultTestSize    = 0.2
	DefaultSeed        = 42
)

// Keys shared by CLI flags, viper and SEGMENTATION_* environment variables.
const (
	KeyInput     = "input"
	KeyOutputDir = "output-dir"
	KeyClusters  = "clusters"
	KeyNInit     = "n-init"
	KeyMaxIter   = "max-iter"
	KeyTrees     = "trees"
	KeyMaxDepth  = "max-depth"
	KeyTestSize  = "test-size"
	KeySeed      = "seed"
	KeyWorkers   = "workers"
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		InputPath:   DefaultInputPath,
		OutputDir:   DefaultOutputDir,
		ClusterPlot: DefaultClusterPlot,
		PaymentPlot: DefaultPaymentPlot,
		Clusters:    DefaultClusters,
		NInit:       DefaultNInit,
		MaxIter:     DefaultMaxIter,
		Tol:         DefaultTol,
		Trees:       DefaultTrees,
		TestSize:    DefaultTestSize,
		Seed:        DefaultSeed,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return fmt.Errorf("InputPath must not be empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("OutputDir must not be empty")
	}
	if c.ClusterPlot == "" || c.PaymentPlot == "" {
		return fmt.Errorf("chart file names must not be empty")
	}
	if c.Clusters <= 0 {
		return fmt.Errorf("Clusters must be positive, got %d", c.Clusters)
	}
	if c.NInit <= 0 {
		return fmt.Errorf("NInit must be positive, got %d", c.NInit)
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("MaxIter must be positive, got %d", c.MaxIter)
	}
	if c.Tol < 0 {
		return fmt.Errorf("Tol must be non-negative, got %g", c.Tol)
	}
	if c.Trees <= 0 {
		return fmt.Errorf("Trees must be positive, got %d", c.Trees)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("MaxDepth must be non-negative, got %d", c.MaxDepth)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("TestSize must be between 0 and 1 exclusive, got %g", c.TestSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// WithDefaults returns a copy with default values filled in for zero values.
// Seed, MaxDepth and Workers are left alone since zero is meaningful for them.
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.InputPath == "" {
		c.InputPath = defaults.InputPath
	}
	if c.OutputDir == "" {
		c.OutputDir = defaults.OutputDir
	}
	if c.ClusterPlot == "" {
		c.ClusterPlot = defaults.ClusterPlot
	}
	if c.PaymentPlot == "" {
		c.PaymentPlot = defaults.PaymentPlot
	}
	if c.Clusters == 0 {
		c.Clusters = defaults.Clusters
	}
	if c.NInit == 0 {
		c.NInit = defaults.NInit
	}
	if c.MaxIter == 0 {
		c.MaxIter = defaults.MaxIter
	}
	if c.Tol == 0 {
		c.Tol = defaults.Tol
	}
	if c.Trees == 0 {
		c.Trees = defaults.Trees
	}
	if c.TestSize == 0 {
		c.TestSize = defaults.TestSize
	}
	return c
}

// ClusterPlotPath is where the cluster scatter is written.
func (c Config) ClusterPlotPath() string {
	return filepath.Join(c.OutputDir, c.ClusterPlot)
}

// PaymentPlotPath is where the payment-method bar chart is written.
func (c Config) PaymentPlotPath() string {
	return filepath.Join(c.OutputDir, c.PaymentPlot)
}

// LoadFromFile loads configuration from a JSON or YAML file. Keys absent
// from the file keep their default values.
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	config := NewConfig()
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config, nil
}

// ApplyViper overrides fields for every key set in v, whether by a changed
// flag, an environment variable or a config source read by viper.
func (c Config) ApplyViper(v *viper.Viper) Config {
	if v.IsSet(KeyInput) {
		c.InputPath = v.GetString(KeyInput)
	}
	if v.IsSet(KeyOutputDir) {
		c.OutputDir = v.GetString(KeyOutputDir)
	}
	if v.IsSet(KeyClusters) {
		c.Clusters = v.GetInt(KeyClusters)
	}
	if v.IsSet(KeyNInit) {
		c.NInit = v.GetInt(KeyNInit)
	}
	if v.IsSet(KeyMaxIter) {
		c.MaxIter = v.GetInt(KeyMaxIter)
	}
	if v.IsSet(KeyTrees) {
		c.Trees = v.GetInt(KeyTrees)
	}
	if v.IsSet(KeyMaxDepth) {
		c.MaxDepth = v.GetInt(KeyMaxDepth)
	}
	if v.IsSet(KeyTestSize) {
		c.TestSize = v.GetFloat64(KeyTestSize)
	}
	if v.IsSet(KeySeed) {
		c.Seed = v.GetInt64(KeySeed)
	}
	if v.IsSet(KeyWorkers) {
		c.Workers = v.GetInt(KeyWorkers)
	}
	return c
}
