package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/guestmail/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled syncs and the status API",
	Long: `Runs the mailbox and daily report syncs on their configured intervals and
serves the status API until interrupted:

  GET  /healthz       liveness
  GET  /metrics       Prometheus metrics
  GET  /api/status    sync state and staleness
  GET  /api/runs      recent runs
  GET  /api/stats     messages per category
  POST /api/sync      run a mailbox sync now
  POST /api/sync/digests  process daily reports now`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: http.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return notConfigured("sync")
	}
	if schedulerService == nil {
		return notConfigured("scheduler")
	}

	addr := serveAddr
	if addr == "" {
		addr = httpAddr
	}

	api, err := httpapi.NewServer(syncService, inboxService)
	if err != nil {
		return err
	}
	api.SetScheduler(schedulerService)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedErr := make(chan error, 1)
	go func() {
		schedErr <- schedulerService.Start(ctx)
	}()

	cmd.Printf("Serving on http://%s (Ctrl+C to stop)\n", addr)
	apiErr := api.Run(ctx, addr)
	stop()

	if err := schedulerService.Stop(); err != nil {
		logger.Warn("serve: stopping scheduler: %v", err)
	}
	if err := <-schedErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return apiErr
}
