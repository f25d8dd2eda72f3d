package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Review unsubscribe suggestions",
	Long: `Lists senders detected as bulk mail. Record a decision with
'guestmail unsubscribe set <id> <status>'; statuses are suggested, dismissed,
unsubscribed and kept.`,
	RunE: runUnsubscribeList,
}

var unsubscribeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unsubscribe suggestions",
	RunE:  runUnsubscribeList,
}

var unsubscribeSetCmd = &cobra.Command{
	Use:   "set <id> <status>",
	Short: "Record a decision on a suggestion",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnsubscribeSet,
}

var (
	unsubscribeStatus string
	unsubscribeLimit  int
)

func init() {
	for _, c := range []*cobra.Command{unsubscribeCmd, unsubscribeListCmd} {
		c.Flags().StringVarP(&unsubscribeStatus, "status", "s", "", "Filter by status (default: suggested)")
		c.Flags().IntVarP(&unsubscribeLimit, "limit", "l", domain.DefaultUnsubscribeLimit, "Number of suggestions")
	}
	unsubscribeCmd.AddCommand(unsubscribeListCmd)
	unsubscribeCmd.AddCommand(unsubscribeSetCmd)
	rootCmd.AddCommand(unsubscribeCmd)
}

func runUnsubscribeList(cmd *cobra.Command, _ []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	var status domain.UnsubscribeStatus
	if unsubscribeStatus != "" {
		parsed, err := domain.ParseUnsubscribeStatus(unsubscribeStatus)
		if err != nil {
			return err
		}
		status = parsed
	}

	candidates, err := inboxService.UnsubscribeSuggestions(cmd.Context(), status, unsubscribeLimit)
	if err != nil {
		return err
	}

	rows := make([][]string, len(candidates))
	for i, c := range candidates {
		link := c.URL
		if link == "" {
			link = "-"
		}
		rows[i] = []string{c.ID, domain.Truncate(c.Sender, 40), string(c.Method), string(c.Status), link}
	}
	printTable(cmd, "No unsubscribe suggestions.", []string{"ID", "Sender", "Method", "Status", "Link"}, rows)
	return nil
}

func runUnsubscribeSet(cmd *cobra.Command, args []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	status, err := domain.ParseUnsubscribeStatus(args[1])
	if err != nil {
		return err
	}
	if err := inboxService.UpdateUnsubscribeStatus(cmd.Context(), args[0], status); err != nil {
		return err
	}
	cmd.Printf("Suggestion %s marked %s.\n", args[0], status)
	return nil
}
