package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status represents the reconciled lifecycle of a tracked torrent.
type Status string

const (
	// StatusPending means the item was registered from a descriptor but has
	// not yet been confirmed on the mount.
	StatusPending Status = "pending"
	// StatusAvailable means every declared file was visible on the last
	// healthy scan.
	StatusAvailable Status = "available"
	// StatusPartial means some declared files were visible and some were not.
	StatusPartial Status = "partial"
	// StatusMissing means a previously available item has been absent for
	// enough consecutive healthy scans to count as gone.
	StatusMissing Status = "missing"
	// StatusRemoved means the descriptor disappeared and the content was
	// confirmed absent from the mount.
	StatusRemoved Status = "removed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAvailable,
	StatusPartial,
	StatusMissing,
	StatusRemoved,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsActive reports whether a status describes content still expected on the
// mount.
func IsActiveStatus(status Status) bool {
	switch status {
	case StatusPending, StatusAvailable, StatusPartial, StatusMissing:
		return true
	default:
		return false
	}
}

// FileEntry describes one file a torrent declares.
type FileEntry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Item represents a tracked torrent persisted in SQLite. Hash is the
// uppercase hex infohash and acts as the primary key.
type Item struct {
	Hash               string
	Name               string
	Status             Status
	Files              []FileEntry
	SourceMetadataHash string
	MissingScans       int
	NeedsReview        bool
	ReviewReason       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastSeenAt         *time.Time
	LastCheckedAt      *time.Time
	RemovedAt          *time.Time
}

// TotalSize sums the declared file sizes.
func (i Item) TotalSize() int64 {
	var total int64
	for _, f := range i.Files {
		total += f.Size
	}
	return total
}

func encodeFiles(files []FileEntry) (string, error) {
	if len(files) == 0 {
		return "[]", nil
	}
	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Path < sorted[b].Path })
	data, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("encode file list: %w", err)
	}
	return string(data), nil
}

func decodeFiles(raw string) ([]FileEntry, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var files []FileEntry
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	return files, nil
}

// HealthSummary describes aggregated item counts per lifecycle state.
type HealthSummary struct {
	Total       int
	Pending     int
	Available   int
	Partial     int
	Missing     int
	Removed     int
	NeedsReview int
}

// DatabaseHealth captures diagnostic information about the state database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
