package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search processed mail in plain language",
	Long: `Turns a free-text question into a structured filter and lists the matching
messages. Without an inference service, a keyword heuristic builds the filter.

Examples:
  guestmail search booking.com reservations last week
  guestmail search invoices with attachments`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	query := strings.Join(args, " ")
	result, err := inboxService.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	printFilter(cmd, result.Filter)
	printRecords(cmd, result.Records, "No results found.")
	return nil
}

func printFilter(cmd *cobra.Command, f domain.SearchFilter) {
	var parts []string
	parts = append(parts, "intent="+string(f.Intent))
	if len(f.Terms) > 0 {
		parts = append(parts, "terms="+strings.Join(f.Terms, ","))
	}
	if f.Category != "" {
		parts = append(parts, "category="+string(f.Category))
	}
	if f.Sender != "" {
		parts = append(parts, "sender="+f.Sender)
	}
	if !f.DateRange.IsZero() {
		parts = append(parts, "dates="+formatDay(f.DateRange.Start)+".."+formatDay(f.DateRange.End))
	}
	if f.HasAttachment != nil && *f.HasAttachment {
		parts = append(parts, "attachments")
	}
	if f.Fallback {
		parts = append(parts, "(keyword fallback)")
	}
	cmd.Printf("Filter: %s\n", strings.Join(parts, " "))
}
