// Package config loads, validates, and normalizes tether configuration from
// TOML files with environment variable fallbacks for external paths.
package config
