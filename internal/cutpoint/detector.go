// Package cutpoint locates the closedown anthem inside a recording by
// cross-correlating it against a known template, yielding the sample index
// where the trim should land.
package cutpoint

import (
	"log/slog"
	"math"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
	"github.com/lazerdave/shipping-forecast-recorder/internal/logging"
	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
	"github.com/lazerdave/shipping-forecast-recorder/internal/wavio"
)

// Confidence classifies a detection outcome. Low confidence is data for the
// caller, not an error: the recording is still publishable untrimmed.
type Confidence string

const (
	// ConfidenceHigh means a single dominant correlation peak was found.
	ConfidenceHigh Confidence = "high"
	// ConfidenceAmbiguous means the best peak was not clearly above its
	// runner-up; a human should review before trusting the cut.
	ConfidenceAmbiguous Confidence = "ambiguous"
	// ConfidenceNone means no plausible match exists in the search window.
	ConfidenceNone Confidence = "none"
)

// Result is the outcome of one detection pass.
type Result struct {
	Confidence Confidence
	// Index is the recommended cut position in recording samples, already
	// shifted by the configured lead offset. Meaningful for High and
	// Ambiguous only.
	Index       int
	Peak        float64
	Ratio       float64
	WindowStart int
	Reason      string
}

// Detector holds detection thresholds.
type Detector struct {
	cfg    config.Detection
	logger *slog.Logger
}

// NewDetector builds a Detector.
func NewDetector(cfg config.Detection, logger *slog.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logging.WithComponent(logger, "cutpoint")}
}

// Detect scans the tail of recording for the template. The search starts at
// whichever bound is later: the absolute offset or the fractional position,
// so short recordings never search their programme body and long ones never
// waste time on the lead-in.
func (d *Detector) Detect(recording, template wavio.Data) (Result, error) {
	if len(template.Samples) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "cutpoint", "detect", "empty template", nil)
	}
	if recording.SampleRate <= 0 || template.SampleRate <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "cutpoint", "detect", "invalid sample rate", nil)
	}

	rec := recording.Floats()
	tmpl := template.Floats()
	if template.SampleRate != recording.SampleRate {
		tmpl = resampleLinear(tmpl, template.SampleRate, recording.SampleRate)
	}

	rate := recording.SampleRate
	windowStart := d.cfg.SearchOffsetSeconds * rate
	if fracStart := int(d.cfg.SearchFraction * float64(len(rec))); fracStart > windowStart {
		windowStart = fracStart
	}
	if windowStart < 0 {
		windowStart = 0
	}

	if len(rec)-windowStart < len(tmpl) {
		return Result{
			Confidence:  ConfidenceNone,
			WindowStart: windowStart,
			Reason:      "recording too short for search window",
		}, nil
	}

	scores := correlate(rec[windowStart:], tmpl)
	bestIdx, best, second := peaks(scores, len(tmpl))

	ratio := math.Inf(1)
	if second > 0 {
		ratio = best / second
	}
	result := Result{
		Index:       windowStart + bestIdx,
		Peak:        best,
		Ratio:       ratio,
		WindowStart: windowStart,
	}

	switch {
	case best < d.cfg.MinPeakValue:
		result.Confidence = ConfidenceNone
		result.Reason = "no correlation peak above floor"
	case ratio < d.cfg.MinPeakRatio:
		result.Confidence = ConfidenceAmbiguous
		result.Reason = "secondary peak too close to primary"
	default:
		result.Confidence = ConfidenceHigh
	}

	if result.Confidence != ConfidenceNone {
		lead := int(d.cfg.LeadOffsetSeconds * float64(rate))
		result.Index += lead
		// A reported index never leaves the search window, whatever the
		// configured lead.
		if result.Index < windowStart {
			result.Index = windowStart
		}
		if result.Index > len(rec) {
			result.Index = len(rec)
		}
	}

	d.logger.Info("detection complete",
		logging.String("confidence", string(result.Confidence)),
		logging.Float64("peak", result.Peak),
		logging.Float64("ratio", result.Ratio),
		logging.Int("index", result.Index))
	return result, nil
}

// correlate computes the normalized cross-correlation of tmpl at every offset
// of rec. Scores are in [-1, 1]; silence in either operand scores zero.
func correlate(rec, tmpl []float64) []float64 {
	n := len(rec) - len(tmpl) + 1
	if n <= 0 {
		return nil
	}

	var tmplNorm float64
	for _, v := range tmpl {
		tmplNorm += v * v
	}
	tmplNorm = math.Sqrt(tmplNorm)
	if tmplNorm == 0 {
		return make([]float64, n)
	}

	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		var dot, segNorm float64
		for j, t := range tmpl {
			v := rec[i+j]
			dot += v * t
			segNorm += v * v
		}
		if segNorm == 0 {
			continue
		}
		scores[i] = dot / (math.Sqrt(segNorm) * tmplNorm)
	}
	return scores
}

// peaks finds the global maximum and the best score at least exclusion
// samples away from it. The exclusion radius keeps the runner-up from being a
// shoulder of the primary peak itself.
func peaks(scores []float64, exclusion int) (bestIdx int, best, second float64) {
	best = math.Inf(-1)
	for i, v := range scores {
		if v > best {
			best = v
			bestIdx = i
		}
	}
	second = 0
	for i, v := range scores {
		if i >= bestIdx-exclusion && i <= bestIdx+exclusion {
			continue
		}
		if v > second {
			second = v
		}
	}
	return bestIdx, best, second
}
