package cli

import (
	"fmt"

	"github.com/paveg/segmentation"
	"github.com/paveg/segmentation/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the segmentation analysis",
		Long: `Run loads the dataset, clusters and classifies customers, prints the
classification report and cluster sizes, and writes the cluster scatter and
payment method charts into the output directory.`,
		Example: `
  segmentation run                                  # /output/retail_data_sample.csv into /output
  segmentation run --input data.csv --output-dir out
  segmentation run --config segmentation.yaml --log-level info`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegmentation(cmd, v)
		},
	}
}

func runSegmentation(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	_, err = segmentation.Run(cmd.Context(), cfg,
		segmentation.WithOutput(cmd.OutOrStdout()),
		segmentation.WithLogger(log.Logger),
	)
	return err
}

// loadConfig layers the config file, if any, and then flag and environment
// overrides on top of the defaults.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg := config.NewConfig()
	if path := v.GetString(keyConfig); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	return cfg.ApplyViper(v), nil
}
