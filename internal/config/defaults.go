package config

// Default returns a Config populated with default values. External paths
// (info_dir, mount_dir) have no sensible default and stay empty until the
// config file or environment supplies them.
func Default() Config {
	return Config{
		Paths: Paths{
			DBFile: "~/.local/share/tether/torrents.db",
			LogDir: "~/.local/share/tether/logs",
		},
		Reconcile: Reconcile{
			Interval:           300,
			ScanTimeout:        120,
			MissingThreshold:   3,
			OutageThreshold:    3,
			ErrorRetryInterval: 30,
			MatchThreshold:     0.85,
			RetentionDays:      30,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			MountOutage:    true,
			Missing:        true,
			Removed:        true,
			Review:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        "console",
			Level:         "info",
			RetentionDays: 14,
		},
	}
}
