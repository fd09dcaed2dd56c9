// Package commands implements the pricecheck command line tool.
package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tilbudsradar/backend/config"
	"github.com/tilbudsradar/backend/internal/observability"
)

var (
	verbose bool
	noColor bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pricecheck",
	Short: "Look up market prices for retail phone offers",
	Long: `pricecheck reads the product names published by the retail offer scrapers,
searches the price comparison site for each of them and records the lowest
market price of the matching product variant.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		if err := config.LoadEnvFile(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      "console",
			Output:      os.Stderr,
			ServiceName: "pricecheck",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(runCmd, matchCmd, sourcesCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
