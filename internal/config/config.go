package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir  string `toml:"staging_dir"`
	OutputDir   string `toml:"output_dir"`
	ScanDir     string `toml:"scan_dir"`
	LogDir      string `toml:"log_dir"`
	TemplateWAV string `toml:"template_wav"`
}

// Receiver contains the candidate pool and the capture collaborator settings.
type Receiver struct {
	FrequencyKHz     float64  `toml:"frequency_khz"`
	Mode             string   `toml:"mode"`
	SeedHosts        []string `toml:"seed_hosts"`
	DiscoveryFeeds   []string `toml:"discovery_feeds"`
	LocationKeywords []string `toml:"location_keywords"`
	HostHints        []string `toml:"host_hints"`
	AllowedPorts     []int    `toml:"allowed_ports"`
	RecorderBinary   string   `toml:"recorder_binary"`
	ConnectTimeout   int      `toml:"connect_timeout_seconds"`
}

// Scan contains probe and ranking parameters.
type Scan struct {
	ScreenSeconds        int     `toml:"screen_seconds"`
	DeepSeconds          int     `toml:"deep_seconds"`
	DeepTopK             int     `toml:"deep_top_k"`
	DeepRepetitions      int     `toml:"deep_repetitions"`
	Workers              int     `toml:"workers"`
	TargetCount          int     `toml:"target_count"`
	QualityFloorDB       float64 `toml:"quality_floor_db"`
	PhaseSlackSeconds    int     `toml:"phase_slack_seconds"`
	MaxSnapshotAgeMins   int     `toml:"max_snapshot_age_minutes"`
	MinExpectedReceivers int     `toml:"min_expected_receivers"`
}

// Recording contains capture session parameters.
type Recording struct {
	DurationSeconds   int `toml:"duration_seconds"`
	MarginSeconds     int `toml:"margin_seconds"`
	FreshCheckSeconds int `toml:"fresh_check_seconds"`
	MaxAttempts       int `toml:"max_attempts"`
}

// Detection contains cutpoint detector parameters.
type Detection struct {
	SearchOffsetSeconds int     `toml:"search_offset_seconds"`
	SearchFraction      float64 `toml:"search_fraction"`
	LeadOffsetSeconds   float64 `toml:"lead_offset_seconds"`
	MinPeakRatio        float64 `toml:"min_peak_ratio"`
	MinPeakValue        float64 `toml:"min_peak_value"`
}

// Trim contains fade-out parameters.
type Trim struct {
	FadeSeconds float64 `toml:"fade_seconds"`
	TailSeconds float64 `toml:"tail_seconds"`
}

// Publish contains downstream handoff settings.
type Publish struct {
	ArchiveDir     string `toml:"archive_dir"`
	WriteSidecar   bool   `toml:"write_sidecar"`
	MaxRetries     int    `toml:"max_retries"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Scan           bool   `toml:"scan"`
	Recording      bool   `toml:"recording"`
	Review         bool   `toml:"review"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Receiver      Receiver      `toml:"receiver"`
	Scan          Scan          `toml:"scan"`
	Recording     Recording     `toml:"recording"`
	Detection     Detection     `toml:"detection"`
	Trim          Trim          `toml:"trim"`
	Publish       Publish       `toml:"publish"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the expected config file location.
func DefaultConfigPath() string {
	return expandHome("~/.config/forecast/config.toml")
}

// Load reads the config file at path (or the default location when path is
// empty), merges it over defaults, normalizes, and validates. A missing file
// yields validated defaults.
func Load(path string) (*Config, error) {
	resolved := path
	if resolved == "" {
		resolved = DefaultConfigPath()
	}
	resolved = expandHome(resolved)

	cfg := Default()

	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == "":
		// No config file: run on defaults.
	default:
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	resolved := expandHome(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(resolved); err == nil {
		return fmt.Errorf("config file already exists at %s", resolved)
	}
	return os.WriteFile(resolved, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the working directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.ScanDir, c.Paths.LogDir}
	if c.Publish.ArchiveDir != "" {
		dirs = append(dirs, c.Publish.ArchiveDir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the file used to refuse overlapping runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StagingDir, "forecast.lock")
}

// RunDBPath returns the SQLite database holding run state.
func (c *Config) RunDBPath() string {
	return filepath.Join(c.Paths.LogDir, "runs.db")
}
