package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazerdave/shipping-forecast-recorder/internal/run"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var occurrenceFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record, trim, and publish tonight's broadcast",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := ctx.buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			occurrence := occurrenceFlag
			if occurrence == "" {
				occurrence = run.DefaultOccurrence(time.Now())
			}

			summary, err := orch.Execute(cmd.Context(), occurrence)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.AlreadyPublished {
				fmt.Fprintf(out, "Occurrence %s already published: %s\n", summary.Occurrence, summary.OutputPath)
				return nil
			}
			fmt.Fprintf(out, "Published %s (receiver %s)\n", summary.OutputPath, summary.Receiver)
			if !summary.Trimmed {
				fmt.Fprintf(out, "Review needed, published untrimmed: %s\n", summary.ReviewReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&occurrenceFlag, "occurrence", "", "Occurrence to record (default: tonight, e.g. 20260110_0048)")
	return cmd
}
