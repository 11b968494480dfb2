// Package logging configures slog-based structured logging with console and
// JSON output formats, standardized field keys, and log file retention.
package logging
