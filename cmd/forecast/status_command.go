package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lazerdave/shipping-forecast-recorder/internal/run"
	"github.com/lazerdave/shipping-forecast-recorder/internal/scan"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var plain bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent broadcast runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := run.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if snap, snapErr := scan.NewStore(cfg.Paths.ScanDir).LoadLatest(); snapErr == nil {
				fmt.Fprintf(out, "Latest scan: %s (%s ago, %d eligible of %d ranked)\n",
					snap.Generation,
					snap.Age(time.Now()).Round(time.Minute),
					len(snap.Eligible()), len(snap.Entries))
			} else {
				fmt.Fprintln(out, "Latest scan: none")
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			if plain || !stdoutIsTerminal() {
				for _, r := range runs {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n",
						r.Occurrence, r.Status, r.Receiver, runOutcome(r))
				}
				return nil
			}

			rows := make([]tableRow, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, tableRow{
					Cells: []string{
						r.Occurrence,
						string(r.Status),
						r.Receiver,
						levelText(r),
						runOutcome(r),
						r.UpdatedAt.Local().Format(time.DateTime),
					},
					Muted: r.Status == run.StatusFailed,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{Title: "Occurrence"},
					{Title: "Status"},
					{Title: "Receiver"},
					{Title: "Level", Numeric: true},
					{Title: "Outcome"},
					{Title: "Updated"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")
	cmd.Flags().BoolVar(&plain, "plain", false, "Force tab-separated output")
	return cmd
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func levelText(r *run.Run) string {
	if r.Receiver == "" {
		return ""
	}
	return fmt.Sprintf("%.1f dB", r.LevelDB)
}

func runOutcome(r *run.Run) string {
	switch r.Status {
	case run.StatusDone:
		if !r.Trimmed {
			return "published untrimmed: " + r.ReviewReason
		}
		return "published " + r.OutputPath
	case run.StatusFailed:
		return strings.SplitN(r.Error, "\n", 2)[0]
	default:
		return "in progress"
	}
}
