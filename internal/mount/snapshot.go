package mount

import (
	"strings"
	"time"
)

// Outcome classifies a mount scan. A scan is either a trustworthy listing
// or Unknown; an Unknown scan must never be read as "the content is gone".
type Outcome string

const (
	// OutcomeHealthy means the walk completed and Files is authoritative.
	OutcomeHealthy Outcome = "healthy"
	// OutcomeUnknown means the walk timed out or failed; Files is not to
	// be trusted for absence decisions.
	OutcomeUnknown Outcome = "unknown"
)

// Snapshot is the result of one walk over the mount root.
type Snapshot struct {
	Outcome   Outcome
	Files     map[string]int64
	Dirs      map[string]struct{}
	Err       error
	ScannedAt time.Time
	Duration  time.Duration
}

// Healthy reports whether the snapshot can be used for absence decisions.
func (s *Snapshot) Healthy() bool {
	return s != nil && s.Outcome == OutcomeHealthy
}

// Size returns the observed size of a relative path and whether it was
// visible at all.
func (s *Snapshot) Size(rel string) (int64, bool) {
	if s == nil || s.Files == nil {
		return 0, false
	}
	size, ok := s.Files[normalizeRel(rel)]
	return size, ok
}

// HasDir reports whether a relative directory was visible.
func (s *Snapshot) HasDir(rel string) bool {
	if s == nil || s.Dirs == nil {
		return false
	}
	_, ok := s.Dirs[normalizeRel(rel)]
	return ok
}

// TopLevelDirs returns the visible first-level directory names.
func (s *Snapshot) TopLevelDirs() []string {
	if s == nil {
		return nil
	}
	var tops []string
	for dir := range s.Dirs {
		if dir != "" && !strings.Contains(dir, "/") {
			tops = append(tops, dir)
		}
	}
	return tops
}

func normalizeRel(rel string) string {
	rel = strings.TrimSpace(rel)
	rel = strings.ReplaceAll(rel, "\\", "/")
	return strings.Trim(rel, "/")
}
