package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch and process new mail",
	Long: `Fetches messages matching the query from the mailbox and runs them through
classification, summarisation, unsubscribe detection and extraction.

Messages that were already processed are skipped. With --digests, unread daily
property management reports are processed and marked read instead.`,
	RunE: runSync,
}

var (
	syncQuery    string
	syncMax      int
	syncMarkRead bool
	syncDigests  bool
)

// progressInterval is how often sync progress is polled.
var progressInterval = 500 * time.Millisecond

func init() {
	syncCmd.Flags().StringVarP(&syncQuery, "query", "q", "", "Gmail search query (default: configured sync query)")
	syncCmd.Flags().IntVarP(&syncMax, "max", "n", 0, "Maximum messages to fetch, 1-500 (default: configured)")
	syncCmd.Flags().BoolVar(&syncMarkRead, "mark-read", false, "Mark processed messages as read")
	syncCmd.Flags().BoolVar(&syncDigests, "digests", false, "Process unread daily reports instead")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return notConfigured("sync")
	}

	ctx := cmd.Context()
	var run func(context.Context) (*domain.SyncRun, error)
	if syncDigests {
		cmd.Println("Synchronising daily reports...")
		run = syncService.SyncDigests
	} else {
		cmd.Println("Synchronising mailbox...")
		req := domain.SyncRequest{Query: syncQuery, MaxResults: syncMax, MarkRead: syncMarkRead}
		run = func(ctx context.Context) (*domain.SyncRun, error) {
			return syncService.Run(ctx, req)
		}
	}

	result, err := syncWithProgress(ctx, cmd, syncService, run)
	if errors.Is(err, domain.ErrSyncInProgress) {
		return errors.New("a sync is already running")
	}
	if result != nil {
		printRunSummary(cmd, result)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// syncWithProgress runs a sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	svc driving.SyncService,
	run func(context.Context) (*domain.SyncRun, error),
) (*domain.SyncRun, error) {
	type outcome struct {
		run *domain.SyncRun
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := run(ctx)
		done <- outcome{r, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := -1
	for {
		select {
		case o := <-done:
			if lastCount >= 0 {
				cmd.Println()
			}
			return o.run, o.err
		case <-ticker.C:
			// Best effort; a failing status read does not stop the sync.
			status, err := svc.Status(ctx)
			if err != nil || status == nil || status.Current == nil {
				continue
			}
			c := status.Current.Counts
			if n := c.Categorized + c.Skipped + c.Errored; n != lastCount {
				cmd.Printf("\r%s... %d/%d messages", status.State, n, c.Fetched)
				lastCount = n
			}
		}
	}
}

func printRunSummary(cmd *cobra.Command, run *domain.SyncRun) {
	c := run.Counts
	cmd.Printf("Run %s: %s in %s\n", run.ID, run.Status, run.Duration().Round(time.Millisecond))
	cmd.Printf("  Fetched:     %d\n", c.Fetched)
	cmd.Printf("  Categorized: %d\n", c.Categorized)
	cmd.Printf("  Summarized:  %d\n", c.Summarized)
	cmd.Printf("  Skipped:     %d\n", c.Skipped)
	cmd.Printf("  Errored:     %d\n", c.Errored)
	cmd.Printf("  Bookings:    %d\n", c.BookingsExtracted)
	cmd.Printf("  Digests:     %d\n", c.DigestsExtracted)
	if c.ExtractionFailures > 0 {
		cmd.Printf("  Extraction failures: %d\n", c.ExtractionFailures)
	}
	cmd.Printf("  Unsubscribe suggestions: %d\n", c.UnsubscribeFlagged)
	if run.Error != "" {
		cmd.Printf("  Error: %s\n", run.Error)
	}
}
