// Package trim applies the post-anthem fade so published recordings end
// cleanly instead of running into overnight static.
package trim

import (
	"log/slog"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/cutpoint"
	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
	"github.com/lazerdave/shipping-forecast-recorder/internal/wavio"
)

// Outcome reports what the trimmer did with one recording.
type Outcome struct {
	Audio   wavio.Data
	Trimmed bool
	// Reason explains a pass-through; empty when Trimmed.
	Reason string
}

// Trimmer fades and truncates recordings at a detected cutpoint.
type Trimmer struct {
	cfg    config.Trim
	logger *slog.Logger
}

// NewTrimmer builds a Trimmer.
func NewTrimmer(cfg config.Trim, logger *slog.Logger) *Trimmer {
	return &Trimmer{cfg: cfg, logger: logging.WithComponent(logger, "trim")}
}

// Apply fades the recording out over the configured fade window starting at
// the detected cutpoint and truncates immediately after the fade. Anything
// short of a high-confidence detection passes the audio through untouched;
// losing programme tail to a wrong cut is worse than publishing it long.
func (t *Trimmer) Apply(recording wavio.Data, det cutpoint.Result) (Outcome, error) {
	if det.Confidence != cutpoint.ConfidenceHigh {
		reason := det.Reason
		if reason == "" {
			reason = "detection confidence " + string(det.Confidence)
		}
		t.logger.Info("passing recording through untrimmed", logging.String("reason", reason))
		return Outcome{Audio: recording, Trimmed: false, Reason: reason}, nil
	}
	if det.Index < 0 || det.Index > len(recording.Samples) {
		return Outcome{}, services.Wrap(services.ErrValidation, "trim", "apply",
			"cutpoint outside recording", nil)
	}

	fadeSamples := int(t.cfg.FadeSeconds * float64(recording.SampleRate))
	end := det.Index + fadeSamples
	if end > len(recording.Samples) {
		end = len(recording.Samples)
		fadeSamples = end - det.Index
	}

	out := wavio.Data{
		SampleRate: recording.SampleRate,
		Samples:    make([]int16, end),
	}
	copy(out.Samples, recording.Samples[:end])
	for i := 0; i < fadeSamples; i++ {
		gain := 1 - float64(i+1)/float64(fadeSamples)
		out.Samples[det.Index+i] = int16(float64(out.Samples[det.Index+i]) * gain)
	}

	t.logger.Info("trim applied",
		logging.Int("cut_index", det.Index),
		logging.Int("fade_samples", fadeSamples),
		logging.Float64("output_seconds", out.Duration().Seconds()))
	return Outcome{Audio: out, Trimmed: true}, nil
}
