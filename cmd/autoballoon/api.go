package main

import (
	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running autoballoon server via HTTP.

These commands require a running server (autoballoon serve).
Use --server to specify a custom server URL.

Examples:
  autoballoon api health                        # Check server health
  autoballoon api drawings upload part.pdf      # Upload a drawing
  autoballoon api dimensions list <drawing-id>  # List extracted dimensions`,
}

var drawingsCmd = &cobra.Command{
	Use:   "drawings",
	Short: "Drawing management commands",
}

var dimensionsCmd = &cobra.Command{
	Use:   "dimensions",
	Short: "Dimension inspection and editing commands",
}

var samplingCmd = &cobra.Command{
	Use:   "sampling",
	Short: "Acceptance sampling plan commands",
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Background job commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Drawings as subcommand group
	drawingsCmd.AddCommand((&endpoints.UploadDrawingEndpoint{}).Command(getServerURL))
	drawingsCmd.AddCommand((&endpoints.ListDrawingsEndpoint{}).Command(getServerURL))
	drawingsCmd.AddCommand((&endpoints.GetDrawingEndpoint{}).Command(getServerURL))
	drawingsCmd.AddCommand((&endpoints.DeleteDrawingEndpoint{}).Command(getServerURL))
	drawingsCmd.AddCommand((&endpoints.ListPagesEndpoint{}).Command(getServerURL))

	// Dimensions as subcommand group
	dimensionsCmd.AddCommand((&endpoints.ListDimensionsEndpoint{}).Command(getServerURL))
	dimensionsCmd.AddCommand((&endpoints.EditDimensionEndpoint{}).Command(getServerURL))
	dimensionsCmd.AddCommand((&endpoints.DeleteDimensionEndpoint{}).Command(getServerURL))
	dimensionsCmd.AddCommand((&endpoints.HitTestEndpoint{}).Command(getServerURL))

	// Sampling as subcommand group
	samplingCmd.AddCommand((&endpoints.SamplingPlanEndpoint{}).Command(getServerURL))

	// Jobs as subcommand group
	jobsCmd.AddCommand((&endpoints.ListJobsEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.GetJobEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(drawingsCmd)
	apiCmd.AddCommand(dimensionsCmd)
	apiCmd.AddCommand(samplingCmd)
	apiCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(apiCmd)
}
