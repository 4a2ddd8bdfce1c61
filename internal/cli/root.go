// Package cli implements the thnorm command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-normalize/common/logging"
	"github.com/telhawk-systems/telhawk-normalize/internal/config"
)

var cfgFile string

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "thnorm.yaml"

var rootCmd = &cobra.Command{
	Use:   "thnorm",
	Short: "TelHawk event normalization pipeline",
	Long: `thnorm ingests raw vendor telemetry, demultiplexes it per source
type, translates parsed records through JSON rule documents, and enriches
the result against the schema catalog.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: thnorm.yaml if present)")
}

// loadConfig loads the configured (or default) settings and builds the
// logger they describe.
func loadConfig() (*config.Config, *logging.Logger, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)
	return cfg, logger, nil
}
