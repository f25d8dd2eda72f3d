package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status and data staleness",
	RunE:  runStatus,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent sync runs",
	RunE:  runRuns,
}

var runsLimit int

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "Number of runs to show")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runsCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return notConfigured("sync")
	}

	status, err := syncService.Status(cmd.Context())
	if err != nil {
		return err
	}

	printTitle(cmd, "Sync Status")
	if status.Running {
		cmd.Printf("  Running:  yes (%s)\n", status.State)
		if status.Current != nil {
			c := status.Current.Counts
			cmd.Printf("  Progress: %d fetched, %d categorized, %d skipped, %d errored\n",
				c.Fetched, c.Categorized, c.Skipped, c.Errored)
		}
	} else {
		cmd.Println("  Running:  no")
	}
	printRunLine(cmd, "Last run", status.LastRun)
	printRunLine(cmd, "Last success", status.LastSuccessful)
	if status.LastSuccessful != nil {
		cmd.Printf("  Staleness: %s\n", status.Staleness.Round(time.Second))
	}

	if schedulerService != nil {
		tasks, err := schedulerService.Tasks(cmd.Context())
		if err != nil {
			logger.Warn("status: reading schedule: %v", err)
			return nil
		}
		printSchedule(cmd, tasks)
	}
	return nil
}

func printSchedule(cmd *cobra.Command, tasks []domain.TaskStatus) {
	if len(tasks) == 0 {
		return
	}
	cmd.Println()
	printTitle(cmd, "Schedule")
	for _, ts := range tasks {
		t := ts.Task
		if !t.Enabled {
			cmd.Printf("  %s: disabled\n", t.Name)
			continue
		}
		cmd.Printf("  %s: every %s, next %s\n", t.Name, t.Interval, formatDate(t.NextRun))
		if r := ts.LastResult; r != nil {
			outcome := "ok"
			if !r.Success {
				outcome = "failed: " + r.Error
			}
			cmd.Printf("    last: %s %s\n", formatDate(r.StartedAt), outcome)
		}
	}
}

func printRunLine(cmd *cobra.Command, label string, run *domain.SyncRun) {
	if run == nil {
		cmd.Printf("  %s: never\n", label)
		return
	}
	cmd.Printf("  %s: %s (%s, %d categorized)\n", label, formatDate(run.StartedAt), run.Status, run.Counts.Categorized)
	if run.Error != "" {
		cmd.Printf("    error: %s\n", run.Error)
	}
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return notConfigured("sync")
	}

	runs, err := syncService.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}

	rows := make([][]string, len(runs))
	for i := range runs {
		r := &runs[i]
		rows[i] = []string{
			formatDate(r.StartedAt),
			string(r.Status),
			r.Duration().Round(time.Second).String(),
			strconv.Itoa(r.Counts.Fetched),
			strconv.Itoa(r.Counts.Categorized),
			strconv.Itoa(r.Counts.Skipped),
			strconv.Itoa(r.Counts.Errored),
			domain.Truncate(r.Query, 40),
		}
	}
	printTable(cmd, "No sync runs yet.",
		[]string{"Started", "Status", "Took", "Fetched", "Categorized", "Skipped", "Errored", "Query"}, rows)
	return nil
}
