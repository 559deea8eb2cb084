package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/notice-summarizer/internal/config"
	"github.com/JakeFAU/notice-summarizer/internal/server"
)

// runApp is a variable so tests can stop short of binding a port.
var runApp = func(cmd *cobra.Command, app *server.App) error {
	return app.Run(cmd.Context())
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the skill webhook server",
		Long: `Serves the skill endpoint, health probes and Prometheus metrics until
SIGINT or SIGTERM, then drains in-flight summary jobs.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := server.Build(&cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	return runApp(cmd, app)
}
