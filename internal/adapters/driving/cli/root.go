// Package cli implements the guestmail command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// version is set by SetVersion from build metadata.
var version = "dev"

// Services injected by the entrypoint. Commands check for nil and report
// the service as not configured.
var (
	inboxService     driving.InboxService
	syncService      driving.SyncService
	schedulerService driving.Scheduler
	configStore      driven.ConfigStore
	secretStore      driven.SecretStore
	mailboxAuth      MailboxAuth

	// pipelineErr explains why the sync pipeline could not be built.
	pipelineErr error

	httpAddr = "127.0.0.1:8787"
)

// MailboxAuth manages the mailbox account authorisation.
type MailboxAuth interface {
	// Login runs the browser consent flow and stores the resulting token.
	// It returns the authorised account address.
	Login(ctx context.Context, out io.Writer) (string, error)

	// Logout removes the stored token.
	Logout() error

	// Account returns the address of the authorised account, or an error
	// wrapping domain.ErrAuthRequired when there is none.
	Account(ctx context.Context) (string, error)
}

// Services is the set of collaborators the CLI drives.
type Services struct {
	Inbox     driving.InboxService
	Sync      driving.SyncService
	Scheduler driving.Scheduler
	Config    driven.ConfigStore
	Secrets   driven.SecretStore
	Auth      MailboxAuth

	// PipelineErr is reported by commands that need Sync or Scheduler
	// when those could not be built.
	PipelineErr error

	// HTTPAddr is the default listen address for serve.
	HTTPAddr string
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "guestmail",
	Short: "Categorise and mine a hotel mailbox",
	Long: `guestmail ingests a hotel's Gmail mailbox, classifies each message,
summarises long mail, extracts reservations and daily revenue reports, and
suggests senders to unsubscribe from.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetServices injects the collaborators used by commands.
func SetServices(s Services) {
	inboxService = s.Inbox
	syncService = s.Sync
	schedulerService = s.Scheduler
	configStore = s.Config
	secretStore = s.Secrets
	mailboxAuth = s.Auth
	pipelineErr = s.PipelineErr
	if s.HTTPAddr != "" {
		httpAddr = s.HTTPAddr
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// notConfigured reports a missing service, with the pipeline error when known.
func notConfigured(name string) error {
	if pipelineErr != nil {
		return fmt.Errorf("%s service not configured: %w", name, pipelineErr)
	}
	return fmt.Errorf("%s service not configured", name)
}
