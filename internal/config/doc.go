// Package config loads, validates, and defaults the recorder's TOML
// configuration. Every empirically tuned constant (probe durations, quality
// floor, correlation thresholds, fade lengths) lives here rather than in code.
package config
