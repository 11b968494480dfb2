package ipc

import (
	"time"

	"tether/internal/store"
)

const timeLayout = time.RFC3339

// StartRequest triggers scheduler startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the scheduler.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// FileEntry is the wire form of one declared file.
type FileEntry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Item is the wire form of a tracked torrent.
type Item struct {
	Hash          string      `json:"hash"`
	Name          string      `json:"name"`
	Status        string      `json:"status"`
	Files         []FileEntry `json:"files,omitempty"`
	TotalSize     int64       `json:"total_size"`
	MissingScans  int         `json:"missing_scans"`
	NeedsReview   bool        `json:"needs_review"`
	ReviewReason  string      `json:"review_reason,omitempty"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
	LastSeenAt    string      `json:"last_seen_at,omitempty"`
	LastCheckedAt string      `json:"last_checked_at,omitempty"`
	RemovedAt     string      `json:"removed_at,omitempty"`
}

// FromItem converts a stored item into its wire representation.
func FromItem(item *store.Item) Item {
	if item == nil {
		return Item{}
	}
	wire := Item{
		Hash:         item.Hash,
		Name:         item.Name,
		Status:       string(item.Status),
		TotalSize:    item.TotalSize(),
		MissingScans: item.MissingScans,
		NeedsReview:  item.NeedsReview,
		ReviewReason: item.ReviewReason,
		CreatedAt:    item.CreatedAt.Format(timeLayout),
		UpdatedAt:    item.UpdatedAt.Format(timeLayout),
	}
	for _, f := range item.Files {
		wire.Files = append(wire.Files, FileEntry{Path: f.Path, Size: f.Size})
	}
	if item.LastSeenAt != nil {
		wire.LastSeenAt = item.LastSeenAt.Format(timeLayout)
	}
	if item.LastCheckedAt != nil {
		wire.LastCheckedAt = item.LastCheckedAt.Format(timeLayout)
	}
	if item.RemovedAt != nil {
		wire.RemovedAt = item.RemovedAt.Format(timeLayout)
	}
	return wire
}

// PassSummary is the wire form of the last reconciliation pass outcome.
type PassSummary struct {
	PassID        string `json:"pass_id"`
	Skipped       bool   `json:"skipped"`
	Registered    int    `json:"registered"`
	Refreshed     int    `json:"refreshed"`
	Revived       int    `json:"revived"`
	ToAvailable   int    `json:"to_available"`
	ToPartial     int    `json:"to_partial"`
	ToMissing     int    `json:"to_missing"`
	ToRemoved     int    `json:"to_removed"`
	ReviewFlagged int    `json:"review_flagged"`
	ItemErrors    int    `json:"item_errors"`
	DurationMS    int64  `json:"duration_ms"`
}

// DependencyStatus describes availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents combined daemon/scheduler status information.
type StatusResponse struct {
	Running          bool               `json:"running"`
	DowngradesPaused bool               `json:"downgrades_paused"`
	UnknownStreak    int                `json:"unknown_streak"`
	LastError        string             `json:"last_error"`
	LastPassAt       string             `json:"last_pass_at,omitempty"`
	LastPass         *PassSummary       `json:"last_pass,omitempty"`
	ItemStats        map[string]int     `json:"item_stats"`
	NeedsReview      int                `json:"needs_review"`
	DBPath           string             `json:"db_path"`
	LockPath         string             `json:"lock_path"`
	Dependencies     []DependencyStatus `json:"dependencies"`
	PID              int                `json:"pid"`
}

// ItemsListRequest filters the item listing by status.
type ItemsListRequest struct {
	Statuses []string `json:"statuses"`
}

// ItemsListResponse contains tracked items.
type ItemsListResponse struct {
	Items []Item `json:"items"`
}

// ItemDescribeRequest fetches a single item by infohash.
type ItemDescribeRequest struct {
	Hash string `json:"hash"`
}

// ItemDescribeResponse contains a single item.
type ItemDescribeResponse struct {
	Item Item `json:"item"`
}

// ReconcileRequest triggers an immediate reconciliation pass.
type ReconcileRequest struct{}

// ReconcileResponse reports whether the pass was triggered.
type ReconcileResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// ReviewResetRequest clears the review flag on one item.
type ReviewResetRequest struct {
	Hash string `json:"hash"`
}

// ReviewResetResponse acknowledges the reset.
type ReviewResetResponse struct {
	Reset bool `json:"reset"`
}

// PurgeRequest deletes removed rows older than the given number of days.
// A negative value means use the configured retention window.
type PurgeRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

// PurgeResponse reports number of purged rows.
type PurgeResponse struct {
	Removed int64 `json:"removed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
