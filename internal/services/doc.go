// Package services defines the shared error taxonomy used across pipeline
// components. Failures are tagged with sentinel markers so the orchestrator
// can classify them without inspecting message text.
package services
