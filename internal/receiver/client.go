package receiver

import (
	"context"
	"regexp"
	"strconv"
	"time"
)

// Reading holds the S-meter values collected by one probe.
type Reading struct {
	Levels []float64
	At     time.Time
}

// Mean returns the average measured level in dBFS.
func (r Reading) Mean() float64 {
	if len(r.Levels) == 0 {
		return 0
	}
	var sum float64
	for _, v := range r.Levels {
		sum += v
	}
	return sum / float64(len(r.Levels))
}

// CaptureRequest describes one recording to be written to SinkPath.
type CaptureRequest struct {
	FrequencyKHz float64
	Mode         string
	Duration     time.Duration
	SinkPath     string
}

// Client is the capability contract for talking to a remote receiver.
// Implementations must honor context cancellation and deadlines.
type Client interface {
	// Probe measures signal level for the given duration.
	Probe(ctx context.Context, cand Candidate, duration time.Duration) (Reading, error)
	// Capture records audio for the requested duration into req.SinkPath.
	Capture(ctx context.Context, cand Candidate, req CaptureRequest) error
}

var (
	levelDBPattern   = regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*dB(?:FS)?`)
	levelRSSIPattern = regexp.MustCompile(`(?i)RSSI[=:]\s*(-?\d+(?:\.\d+)?)`)
)

// ParseLevels extracts S-meter readings from recorder output. It accepts both
// "-63.4 dBFS" and "RSSI: -63.4" formats.
func ParseLevels(output string) []float64 {
	matches := levelDBPattern.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		matches = levelRSSIPattern.FindAllStringSubmatch(output, -1)
	}
	if len(matches) == 0 {
		return nil
	}
	levels := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		levels = append(levels, v)
	}
	if len(levels) == 0 {
		return nil
	}
	return levels
}
