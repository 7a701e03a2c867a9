// Package testsupport provides shared fixtures for package tests: temp-dir
// configs, run stores, and synthetic audio.
package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/lazerdave/shipping-forecast-recorder/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.ScanDir = filepath.Join(base, "scans")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TemplateWAV = filepath.Join(base, "template.wav")
	cfg.Publish.ArchiveDir = filepath.Join(base, "archive")
	cfg.Notifications.NtfyTopic = ""

	// Keep timing-sensitive knobs tiny so tests never sleep for real.
	cfg.Scan.ScreenSeconds = 0
	cfg.Scan.DeepSeconds = 0
	cfg.Scan.PhaseSlackSeconds = 2
	cfg.Recording.DurationSeconds = 1
	cfg.Recording.MarginSeconds = 1
	cfg.Recording.FreshCheckSeconds = 1
	cfg.Publish.TimeoutSeconds = 2

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return &cfg
}

// WithDetection overrides the detector thresholds on the test config.
func WithDetection(det config.Detection) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Detection = det
	}
}
