package config

import (
	"fmt"
	"os"
	"strings"
)

// normalize expands paths and applies environment fallbacks. Environment
// variables fill a field only when the config file left it empty, so a file
// value always wins.
func (c *Config) normalize() error {
	if c.Paths.InfoDir == "" {
		c.Paths.InfoDir = os.Getenv("ZURGINFODIR")
	}
	if c.Paths.MountDir == "" {
		c.Paths.MountDir = os.Getenv("RCLONE_REMOTE_PATH")
	}
	if c.Paths.DBFile == "" {
		c.Paths.DBFile = os.Getenv("DB_FILE")
	}

	paths := []struct {
		name  string
		value *string
	}{
		{"paths.info_dir", &c.Paths.InfoDir},
		{"paths.mount_dir", &c.Paths.MountDir},
		{"paths.db_file", &c.Paths.DBFile},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, p := range paths {
		if *p.value == "" {
			continue
		}
		expanded, err := expandPath(*p.value)
		if err != nil {
			return fmt.Errorf("expand %s: %w", p.name, err)
		}
		*p.value = expanded
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)

	return nil
}
