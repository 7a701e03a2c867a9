// Package scan probes candidate receivers in parallel, ranks them by signal
// quality, and persists the ranked snapshot used later to pick a recording
// source.
package scan
