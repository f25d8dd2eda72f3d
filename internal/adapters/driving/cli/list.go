package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List categorised messages",
	Long: `Lists processed messages newest first. A category set by override is shown
in place of the system category and marked with an asterisk.`,
	RunE: runList,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show message counts per category",
	RunE:  runStats,
}

var overrideCmd = &cobra.Command{
	Use:   "override <message-id> <category>",
	Short: "Correct the category of a message",
	Args:  cobra.ExactArgs(2),
	RunE:  runOverride,
}

var (
	listCategory string
	listLimit    int
	listOffset   int
)

func init() {
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "Only show this category")
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", domain.DefaultListLimit, "Number of messages (max 100)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Number of messages to skip")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(overrideCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	opts := domain.ListOptions{Limit: listLimit, Offset: listOffset}
	if listCategory != "" {
		category, err := domain.ParseCategory(listCategory)
		if err != nil {
			return err
		}
		opts.Category = category
	}

	records, err := inboxService.ListCategorized(cmd.Context(), opts)
	if err != nil {
		return err
	}
	printRecords(cmd, records, "No messages found.")
	return nil
}

func printRecords(cmd *cobra.Command, records []domain.CategorizationRecord, empty string) {
	rows := make([][]string, len(records))
	for i := range records {
		r := &records[i]
		category := string(r.EffectiveCategory())
		if r.Overridden {
			category += "*"
		}
		rows[i] = []string{
			r.MessageID,
			formatDate(r.ReceivedAt),
			category,
			strconv.Itoa(r.Confidence),
			domain.Truncate(r.Sender, 30),
			domain.Truncate(r.Subject, 50),
		}
	}
	printTable(cmd, empty, []string{"ID", "Received", "Category", "Conf", "From", "Subject"}, rows)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	stats, err := inboxService.CategoryStats(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, len(stats.Categories))
	for i, s := range stats.Categories {
		rows[i] = []string{
			string(s.Category),
			strconv.Itoa(s.Count),
			fmt.Sprintf("%.1f", s.AverageConfidence),
		}
	}
	printTable(cmd, "No messages processed yet.", []string{"Category", "Messages", "Avg confidence"}, rows)
	if stats.Total > 0 {
		cmd.Printf("Total: %d\n", stats.Total)
	}
	return nil
}

func runOverride(cmd *cobra.Command, args []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	category, err := domain.ParseCategory(args[1])
	if err != nil {
		return err
	}
	if err := inboxService.OverrideCategory(cmd.Context(), args[0], category); err != nil {
		return fmt.Errorf("override failed: %w", err)
	}
	cmd.Printf("Message %s is now %s.\n", args[0], category)
	return nil
}
