package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify pipeline failures. Wrap tags an error with
// one of these so callers can branch with errors.Is without string matching.
var (
	// ErrTransient marks per-candidate network failures that become data
	// inside the probe phase and never propagate past it.
	ErrTransient = errors.New("transient network error")
	// ErrTimeout marks an operation that exceeded its explicit deadline.
	ErrTimeout = errors.New("timeout")
	// ErrNoReceivers marks a run with no viable receiver; fatal for the run.
	ErrNoReceivers = errors.New("no receivers available")
	// ErrCaptureTimeout marks a capture that overran duration plus margin.
	ErrCaptureTimeout = errors.New("capture timeout")
	// ErrStorage marks durable-state failures; nothing partially written is exposed.
	ErrStorage = errors.New("storage error")
	// ErrOverlap marks a refused duplicate concurrent run.
	ErrOverlap = errors.New("overlapping run detected")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks inputs that failed a correctness check.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
