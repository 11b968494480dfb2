// Package store persists tracked torrent state in SQLite. Rows are keyed by
// infohash, status transitions are applied by the reconciler, and removals
// are soft deletes retained for auditing until purged.
package store
