package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/heavyclick/autoballoon-sub001/internal/config"
	"github.com/heavyclick/autoballoon-sub001/internal/home"
	"github.com/heavyclick/autoballoon-sub001/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the autoballoon server",
	Long: `Start the autoballoon HTTP server.

Drawing uploads run through the extraction pipeline as background jobs;
results are served from memory with page rasters on disk under the home
directory.

Examples:
  autoballoon serve                    # Start on default port 8080
  autoballoon serve --port 3000        # Start on custom port
  autoballoon serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Seed a default config on first run so the file is there to edit
		resolvedCfg := cfgFile
		if resolvedCfg == "" && !h.ConfigExists() {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return err
			}
			logger.Info("wrote default config", "path", h.ConfigPath())
		}

		cfgMgr, err := config.NewManager(resolvedCfg)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		port := servePort
		if port == "" {
			port = cfgMgr.Get().Server.Port
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          port,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
