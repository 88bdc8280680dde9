package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/mmreality-scraper/pkg/config"
	"github.com/Sternrassler/mmreality-scraper/pkg/logging"
	"github.com/spf13/cobra"
)

// getenv is swapped in tests.
var getenv = os.Getenv

// NewRootCmd creates the root command for mmreality-scraper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mmreality-scraper",
		Short: "Scrape MM Reality listings into a spreadsheet and a database table",
		Long: `mmreality-scraper pages through the MM Reality offer API until an empty
page comes back, flattens every offer into a listing record and exports the
records to <output-dir>/mmreality_dataset_<date>.xlsx and to a table of the
same name.

Configuration is read from defaults, then .mmreality.yaml (or --config),
then the environment, then command-line flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("pretty", false, "Human-readable console logs instead of JSON")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewLastCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration for cmd, applies the persistent
// flags and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Resolve(path, getenv)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Log.Level = f.Value.String()
	}
	if f := cmd.Flags().Lookup("pretty"); f != nil && f.Changed {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("pretty")
	}

	logCfg := logging.DefaultConfig()
	if cfg.Log.Level != "" {
		logCfg.Level = logging.LogLevel(cfg.Log.Level)
	}
	logCfg.Pretty = cfg.Log.Pretty
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	return cfg, nil
}
