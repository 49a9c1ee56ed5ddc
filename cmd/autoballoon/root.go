package main

import (
	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/api"
	"github.com/heavyclick/autoballoon-sub001/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "autoballoon",
	Short: "Engineering drawing ingestion with automatic dimension ballooning",
	Long: `Autoballoon extracts dimension callouts from engineering drawings
(PDF or raster) and turns them into numbered, structured inspection records.

The pipeline includes:
  - Vector text harvesting with OCR fallback for scanned pages
  - Tolerance parsing (bilateral, limit, fit class, MAX/MIN, basic)
  - ISO 286 fit resolution and ANSI Z1.4 sampling plans
  - Click-to-select hit testing and crop previews per balloon`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.autoballoon/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "autoballoon home directory (default: ~/.autoballoon)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
