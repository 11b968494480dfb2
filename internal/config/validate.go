package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration invariants and returns an aggregate error
// listing every problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.InfoDir == "" {
		problems = append(problems, "paths.info_dir is required (or set ZURGINFODIR)")
	}
	if c.Paths.MountDir == "" {
		problems = append(problems, "paths.mount_dir is required (or set RCLONE_REMOTE_PATH)")
	}
	if c.Paths.DBFile == "" {
		problems = append(problems, "paths.db_file must not be empty")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}

	if c.Reconcile.Interval <= 0 {
		problems = append(problems, "reconcile.interval must be positive")
	}
	if c.Reconcile.ScanTimeout <= 0 {
		problems = append(problems, "reconcile.scan_timeout must be positive")
	}
	if c.Reconcile.MissingThreshold < 1 {
		problems = append(problems, "reconcile.missing_threshold must be at least 1")
	}
	if c.Reconcile.OutageThreshold < 1 {
		problems = append(problems, "reconcile.outage_threshold must be at least 1")
	}
	if c.Reconcile.ErrorRetryInterval <= 0 {
		problems = append(problems, "reconcile.error_retry_interval must be positive")
	}
	if c.Reconcile.MatchThreshold <= 0 || c.Reconcile.MatchThreshold > 1 {
		problems = append(problems, "reconcile.match_threshold must be in (0, 1]")
	}
	if c.Reconcile.RetentionDays < 0 {
		problems = append(problems, "reconcile.retention_days must not be negative")
	}

	if c.Notifications.RequestTimeout <= 0 {
		problems = append(problems, "notifications.request_timeout must be positive")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not supported (debug, info, warn, error)", c.Logging.Level))
	}
	if c.Logging.RetentionDays < 0 {
		problems = append(problems, "logging.retention_days must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
