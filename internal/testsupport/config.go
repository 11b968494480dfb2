package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tether/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The info and mount directories are created so scans start from an existing
// but empty state.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InfoDir = filepath.Join(base, "infos")
	cfgVal.Paths.MountDir = filepath.Join(base, "mount")
	cfgVal.Paths.DBFile = filepath.Join(base, "state", "torrents.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	for _, dir := range []string{cfgVal.Paths.InfoDir, cfgVal.Paths.MountDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMissingThreshold overrides the missing scan debounce on the test config.
func WithMissingThreshold(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reconcile.MissingThreshold = n
	}
}

// WithMatchThreshold overrides the fallback match threshold on the test config.
func WithMatchThreshold(v float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reconcile.MatchThreshold = v
	}
}
