package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Probe candidate receivers and rank them by signal quality",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := ctx.buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := orch.Scan(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([]tableRow, 0, len(snap.Entries))
			for i, entry := range snap.Entries {
				flag := ""
				if entry.Weak {
					flag = "weak"
				}
				rows = append(rows, tableRow{
					Cells: []string{
						fmt.Sprintf("%d", i+1),
						entry.Candidate.Key(),
						fmt.Sprintf("%.1f", entry.MeanDB),
						fmt.Sprintf("%.2f", entry.StdDevDB),
						fmt.Sprintf("%d", entry.Failures),
						flag,
					},
					Muted: entry.Weak,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scan %s: screened %d, ranked %d, eligible %d\n",
				snap.Generation, snap.Screened, len(snap.Entries), len(snap.Eligible()))
			if snap.Incomplete {
				fmt.Fprintln(out, "Warning: scan hit its time ceiling before probing every candidate")
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{Title: "#", Numeric: true},
					{Title: "Receiver"},
					{Title: "Mean dB", Numeric: true},
					{Title: "Spread", Numeric: true},
					{Title: "Fails", Numeric: true},
					{Title: ""},
				},
				rows,
			))
			return nil
		},
	}
}
