package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

var (
	serveAddr      string
	serveLogFormat string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start a JSON HTTP API over the estimate pipeline.

Endpoints:
  GET  /healthz
  POST /v1/estimates          {"name": "...", "text": "..."}
  POST /v1/reconcile          {"responses": ["...", "..."]}
  POST /v1/parse              {"raw": "...", "truncated": false}
  GET  /v1/rules
  GET  /v1/runs?limit=20&document=...
  GET  /v1/runs/:id
  GET  /v1/runs/:id/document`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "console", "request log format: console or json")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if apiService == nil {
		return errNoEstimateService
	}
	ports := &httpapi.Ports{Estimate: apiService}
	if runService != nil {
		ports.Runs = runService
	}
	log, err := serveLogger(serveLogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	server, err := httpapi.NewServer(ports, httpapi.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "HTTP API listening on %s\n", serveAddr)
	return server.Run(ctx, serveAddr)
}

// serveLogger returns the shared console logger, or a JSON production
// logger for deployments that ship logs.
func serveLogger(format string) (*logger.Logger, error) {
	switch format {
	case "", "console":
		return logger.L(), nil
	case "json":
		return logger.New("production")
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
