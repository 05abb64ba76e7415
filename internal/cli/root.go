// Package cli implements the segmentation command line.
package cli

import (
	"context"
	"os"
	"strings"

	"github.com/paveg/segmentation/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SEGMENTATION_INPUT.
const EnvPrefix = "SEGMENTATION"

const (
	keyConfig   = "config"
	keyLogLevel = "log-level"
)

// NewRootCmd builds the command tree around its own viper instance.
// Running the root command without a subcommand performs a run.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "segmentation",
		Short: "Segment retail customers with K-Means and a Random Forest",
		Long: `segmentation loads a retail dataset, clusters customers with K-Means,
trains a Random Forest to predict the labelled customer segment, prints a
classification report with cluster sizes and writes two PNG charts.

Every flag can also be set through a SEGMENTATION_<FLAG> environment
variable, for example SEGMENTATION_INPUT or SEGMENTATION_TEST_SIZE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegmentation(cmd, v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "config file (YAML or JSON)")
	flags.String(keyLogLevel, "disabled", "log level (debug, info, warn, error)")
	flags.String(config.KeyInput, config.DefaultInputPath, "input dataset (.csv or .parquet)")
	flags.String(config.KeyOutputDir, config.DefaultOutputDir, "directory receiving the charts")
	flags.Int(config.KeyClusters, config.DefaultClusters, "number of K-Means clusters")
	flags.Int(config.KeyNInit, config.DefaultNInit, "K-Means restarts")
	flags.Int(config.KeyMaxIter, config.DefaultMaxIter, "K-Means iterations per restart")
	flags.Int(config.KeyTrees, config.DefaultTrees, "Random Forest trees")
	flags.Int(config.KeyMaxDepth, 0, "maximum tree depth (0 = unlimited)")
	flags.Float64(config.KeyTestSize, config.DefaultTestSize, "held-out fraction for evaluation")
	flags.Int64(config.KeySeed, config.DefaultSeed, "random seed for clustering, split and forest")
	flags.Int(config.KeyWorkers, 0, "worker goroutines (0 = number of CPUs)")

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(newRunCmd(v), newVersionCmd())
	return rootCmd
}

// Execute runs the command line with args and the process environment.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// initLogging configures the global logger
func initLogging(v *viper.Viper) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	switch v.GetString(keyLogLevel) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.Disabled)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
