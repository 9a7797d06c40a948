package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DrNicoArt/scaleviewer/cmd/scaleviewer/commands"
	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

var (
	configPath string
	jsonLogs   bool
)

var rootCmd = &cobra.Command{
	Use:   "scaleviewer",
	Short: "Multi-scale object catalog analysis",
	Long: `scaleviewer - analysis of a catalog of objects spanning nine scales,
from quantum systems to cosmic structures.

Available commands:
  serve       - Start the HTTP analysis API
  similar     - Rank entities similar to one entity
  compare     - Compare two entities property by property
  candidates  - Evaluate time-crystal candidacy
  normalize   - Show how raw values are parsed into quantities
  properties  - Profile property coverage and correlation

Examples:
  scaleviewer serve --port 8001
  scaleviewer similar sun --metric euclidean --top 3
  scaleviewer compare sun vega mass radius
  scaleviewer candidates --only --csv candidates.csv
  scaleviewer normalize "5.97 × 10^24 kg" "~4.6 Gyr"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.Setup(configPath, jsonLogs)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./scaleviewer.toml when present)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit JSON structured logs")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.SimilarCmd)
	rootCmd.AddCommand(commands.CompareCmd)
	rootCmd.AddCommand(commands.CandidatesCmd)
	rootCmd.AddCommand(commands.NormalizeCmd)
	rootCmd.AddCommand(commands.PropertiesCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}
