package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"liyu1981.xyz/printwatch-service/pkg/monitor"
)

var (
	pollDepartment string
	pollJSON       bool
	pollTimeout    time.Duration
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the fleet once and exit",
	Long: `Poll every printer (or one department's printers) once, run the alert
gate for the results and print a summary.

Examples:
  # Poll the whole fleet, e.g. from cron
  printwatch poll

  # Poll one department and print the full report
  printwatch poll --department 3f1c9a9e-... --json`,
	Args: cobra.NoArgs,
	RunE: runPoll,
}

func init() {
	pollCmd.Flags().StringVar(&pollDepartment, "department", "", "only poll printers of this department id")
	pollCmd.Flags().BoolVar(&pollJSON, "json", false, "print the full poll report as JSON")
	pollCmd.Flags().DurationVar(&pollTimeout, "timeout", 5*time.Minute, "give up on the batch after this long")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	report, err := a.monitor.Poller.PollAll(ctx, pollDepartment)
	if err != nil {
		return err
	}

	if pollJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printSummary(os.Stdout, report)
	return nil
}

func printSummary(w io.Writer, report *monitor.PollReport) {
	fmt.Fprintf(w, "Polled %d printers in %s: %d online, %d offline, %d failed, %d alerts dispatched (%d delivered)\n",
		report.Total,
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		report.Online, report.Offline, report.Failed, report.Dispatched, report.Delivered)

	for _, res := range report.Results {
		switch {
		case res.Error != "":
			fmt.Fprintf(w, "  %-15s  FAILED   %s\n", res.IPAddress, res.Error)
		case !res.Online:
			fmt.Fprintf(w, "  %-15s  offline\n", res.IPAddress)
		case res.Alert != nil && !res.Alert.Dispatch:
			fmt.Fprintf(w, "  %-15s  %-8s alert suppressed (%s)\n", res.IPAddress, res.Severity, res.Alert.Reason)
		case res.Alert != nil:
			fmt.Fprintf(w, "  %-15s  %-8s alert delivered=%t\n", res.IPAddress, res.Severity, res.Alert.Delivered)
		default:
			fmt.Fprintf(w, "  %-15s  %s\n", res.IPAddress, res.Severity)
		}
	}
}
