// Package logging constructs the application's slog loggers and provides
// shared attribute helpers and field name conventions.
package logging
