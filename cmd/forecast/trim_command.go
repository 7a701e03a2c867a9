package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazerdave/shipping-forecast-recorder/internal/cutpoint"
	"github.com/lazerdave/shipping-forecast-recorder/internal/trim"
	"github.com/lazerdave/shipping-forecast-recorder/internal/wavio"
)

// The trim command reprocesses a recording on disk, typically one that was
// published untrimmed and has been flagged for review.
func newTrimCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "trim <recording.wav>",
		Short: "Detect the closedown anthem in a recording and trim it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			recording, err := wavio.DecodeFile(args[0])
			if err != nil {
				return fmt.Errorf("read recording: %w", err)
			}
			template, err := wavio.DecodeFile(cfg.Paths.TemplateWAV)
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}

			det, err := cutpoint.NewDetector(cfg.Detection, logger).Detect(recording, template)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Detection: %s (peak %.2f, ratio %.2f)\n", det.Confidence, det.Peak, det.Ratio)

			outcome, err := trim.NewTrimmer(cfg.Trim, logger).Apply(recording, det)
			if err != nil {
				return err
			}
			if !outcome.Trimmed {
				fmt.Fprintf(out, "Not trimmed: %s\n", outcome.Reason)
				return nil
			}

			target := outputPath
			if target == "" {
				target = strings.TrimSuffix(args[0], ".wav") + "_trimmed.wav"
			}
			if err := wavio.EncodeFile(target, outcome.Audio); err != nil {
				return fmt.Errorf("write trimmed audio: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s (%s)\n", target, outcome.Audio.Duration().Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the trimmed audio")
	return cmd
}
