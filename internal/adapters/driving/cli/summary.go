package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/connectors/google/gmail"
	"github.com/custodia-labs/guestmail/internal/core/domain"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <message-id>",
	Short: "Show the summary of a message",
	Long: `Shows the stored summary of a processed message. When none is stored, or
with --refresh, the message is fetched and summarised now.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

var summaryRefresh bool

func init() {
	summaryCmd.Flags().BoolVar(&summaryRefresh, "refresh", false, "Regenerate the summary")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	ctx := cmd.Context()
	id := args[0]

	var (
		record *domain.SummaryRecord
		err    error
	)
	if !summaryRefresh {
		record, err = inboxService.Summary(ctx, id)
	}
	if summaryRefresh || errors.Is(err, domain.ErrNotFound) {
		record, err = inboxService.Summarize(ctx, id)
	}
	if err != nil {
		return err
	}

	printTitle(cmd, record.ShortSummary)
	if len(record.KeyPoints) > 0 {
		cmd.Println("\nKey points:")
		for _, p := range record.KeyPoints {
			cmd.Printf("  - %s\n", p)
		}
	}
	if len(record.ActionItems) > 0 {
		cmd.Println("\nAction items:")
		for _, a := range record.ActionItems {
			cmd.Printf("  - %s\n", a)
		}
	}
	cmd.Printf("\nSentiment: %s  Words: %d\n", record.Sentiment, record.WordCount)
	cmd.Printf("Open: %s\n", gmail.WebURL(id))
	return nil
}
