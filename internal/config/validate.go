package config

import (
	"fmt"
	"strings"

	"github.com/lazerdave/shipping-forecast-recorder/internal/services"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.StagingDir == "" {
		problems = append(problems, "paths.staging_dir is required")
	}
	if c.Paths.OutputDir == "" {
		problems = append(problems, "paths.output_dir is required")
	}
	if c.Paths.ScanDir == "" {
		problems = append(problems, "paths.scan_dir is required")
	}
	if c.Receiver.FrequencyKHz <= 0 {
		problems = append(problems, "receiver.frequency_khz must be positive")
	}
	if len(c.Receiver.SeedHosts) == 0 && len(c.Receiver.DiscoveryFeeds) == 0 {
		problems = append(problems, "receiver needs seed_hosts or discovery_feeds")
	}
	if c.Scan.ScreenSeconds <= 0 || c.Scan.DeepSeconds <= 0 {
		problems = append(problems, "scan probe durations must be positive")
	}
	if c.Scan.Workers <= 0 {
		problems = append(problems, "scan.workers must be positive")
	}
	if c.Scan.DeepTopK <= 0 {
		problems = append(problems, "scan.deep_top_k must be positive")
	}
	if c.Scan.DeepRepetitions <= 0 {
		problems = append(problems, "scan.deep_repetitions must be positive")
	}
	if c.Recording.DurationSeconds <= 0 {
		problems = append(problems, "recording.duration_seconds must be positive")
	}
	if c.Recording.MarginSeconds < 0 {
		problems = append(problems, "recording.margin_seconds must not be negative")
	}
	if c.Recording.MaxAttempts <= 0 {
		problems = append(problems, "recording.max_attempts must be positive")
	}
	if c.Detection.SearchFraction < 0 || c.Detection.SearchFraction >= 1 {
		problems = append(problems, "detection.search_fraction must be in [0, 1)")
	}
	if c.Detection.MinPeakRatio <= 1 {
		problems = append(problems, "detection.min_peak_ratio must exceed 1")
	}
	if c.Detection.MinPeakValue <= 0 || c.Detection.MinPeakValue > 1 {
		problems = append(problems, "detection.min_peak_value must be in (0, 1]")
	}
	if c.Detection.LeadOffsetSeconds < 0 {
		problems = append(problems, "detection.lead_offset_seconds must not be negative")
	}
	if c.Trim.FadeSeconds <= 0 {
		problems = append(problems, "trim.fade_seconds must be positive")
	}
	if c.Trim.TailSeconds < 0 {
		problems = append(problems, "trim.tail_seconds must not be negative")
	}
	if c.Trim.TailSeconds > c.Trim.FadeSeconds {
		problems = append(problems, "trim.tail_seconds must not exceed trim.fade_seconds")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	if len(problems) > 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}
