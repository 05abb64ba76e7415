// Package segmentation is the public API for the retail customer
// segmentation run.
//
// A run loads a retail dataset, derives and encodes features, groups
// customers with K-Means, trains a Random Forest to predict the labelled
// Customer_Segment, prints a classification report with cluster sizes and
// writes two PNG charts:
//
//	cfg := segmentation.DefaultConfig()
//	cfg.InputPath = "retail.csv"
//	cfg.OutputDir = "out"
//	result, err := segmentation.Run(ctx, cfg)
//	if err != nil {
//		var pe *segmentation.PipelineError
//		if errors.As(err, &pe) {
//			log.Printf("failed at %s", pe.Stage)
//		}
//	}
//
// Identical input and seeds give identical clusters and predictions.
package segmentation

import (
	"context"

	"github.com/paveg/segmentation/internal/config"
	"github.com/paveg/segmentation/internal/errors"
	"github.com/paveg/segmentation/internal/pipeline"
)

// Config holds the input and output locations and the model settings.
type Config = config.Config

// Result is everything a run produced.
type Result = pipeline.Result

// Option customises a run's logger, console output or allocator.
type Option = pipeline.Option

// PipelineError names the stage, and column when known, at which a run failed.
type PipelineError = errors.PipelineError

// Run options.
var (
	WithLogger    = pipeline.WithLogger
	WithOutput    = pipeline.WithOutput
	WithAllocator = pipeline.WithAllocator
)

// DefaultConfig returns the defaults: /output/retail_data_sample.csv in,
// charts to /output, 4 clusters, 100 trees, 20% test split, seed 42.
func DefaultConfig() Config {
	return config.NewConfig()
}

// LoadConfig reads a JSON or YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	return config.LoadFromFile(path)
}

// Run executes one segmentation pass with cfg.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Result, error) {
	return pipeline.New(cfg, opts...).Run(ctx)
}
