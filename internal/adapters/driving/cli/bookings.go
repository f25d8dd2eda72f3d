package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List reservations extracted from confirmations",
	RunE:  runBookings,
}

var digestsCmd = &cobra.Command{
	Use:   "digests",
	Short: "List revenue from daily property management reports",
	RunE:  runDigests,
}

var (
	bookingsLimit int
	digestsLimit  int
)

func init() {
	bookingsCmd.Flags().IntVarP(&bookingsLimit, "limit", "l", domain.DefaultListLimit, "Number of bookings")
	digestsCmd.Flags().IntVarP(&digestsLimit, "limit", "l", domain.DefaultListLimit, "Number of reports")
	rootCmd.AddCommand(bookingsCmd)
	rootCmd.AddCommand(digestsCmd)
}

func runBookings(cmd *cobra.Command, _ []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	bookings, err := inboxService.Bookings(cmd.Context(), bookingsLimit)
	if err != nil {
		return err
	}

	rows := make([][]string, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		price := "-"
		if b.Price > 0 {
			price = fmt.Sprintf("%.2f %s", b.Price, b.Currency)
		}
		rows[i] = []string{
			b.ExternalID,
			domain.Truncate(b.GuestName, 30),
			formatDay(b.CheckIn),
			formatDay(b.CheckOut),
			strconv.Itoa(b.Nights()),
			string(b.Channel),
			string(b.Status),
			price,
		}
	}
	printTable(cmd, "No bookings extracted yet.",
		[]string{"Booking", "Guest", "Check-in", "Check-out", "Nights", "Channel", "Status", "Price"}, rows)
	return nil
}

func runDigests(cmd *cobra.Command, _ []string) error {
	if inboxService == nil {
		return notConfigured("inbox")
	}

	digests, err := inboxService.Digests(cmd.Context(), digestsLimit)
	if err != nil {
		return err
	}

	rows := make([][]string, len(digests))
	for i := range digests {
		d := &digests[i]
		count := "-"
		if d.BookingCount > 0 {
			count = strconv.Itoa(d.BookingCount)
		}
		rows[i] = []string{
			formatDay(d.ReportDate),
			fmt.Sprintf("%.2f %s", d.TotalRevenue, d.Currency),
			count,
			d.Channel,
		}
	}
	printTable(cmd, "No daily reports processed yet.", []string{"Date", "Revenue", "Bookings", "Channel"}, rows)
	return nil
}
