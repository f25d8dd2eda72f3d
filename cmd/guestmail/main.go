// Command guestmail ingests and mines a hotel's Gmail mailbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/guestmail/internal/adapters/driving/cli"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := wire(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "guestmail:", err)
		return err
	}
	defer app.close()

	cli.SetVersion(version)
	cli.SetServices(app.services)
	return cli.Execute(ctx)
}
