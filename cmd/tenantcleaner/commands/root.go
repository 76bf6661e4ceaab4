// Package commands wires the tenantcleaner CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catherinevee/tenantcleaner/internal/config"
	"github.com/catherinevee/tenantcleaner/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tenantcleaner",
	Short: "Clean up unused resources on an OpenStack tenant",
	Long: `tenantcleaner enumerates the images, keypairs and instances of an
OpenStack tenant, tracks when each item was first observed, and deletes the
items that no configured detector vetoes. Age thresholds, exclude patterns
and in-use protection are configured per item type.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tenantcleaner.yaml",
		"Path to the configuration file")

	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(trackerCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig loads the config file and initializes logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Initialize(cfg.Logging)
	return cfg, nil
}
