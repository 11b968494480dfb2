package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"tether/internal/services"
)

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM torrents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates item state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusAvailable:
			health.Available += count
		case StatusPartial:
			health.Partial += count
		case StatusMissing:
			health.Missing += count
		case StatusRemoved:
			health.Removed += count
		}
	}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM torrents WHERE needs_review = 1`)
	if err := row.Scan(&health.NeedsReview); err != nil {
		return HealthSummary{}, fmt.Errorf("count review items: %w", err)
	}
	return health, nil
}

// PurgeRemoved deletes removed rows whose removal timestamp predates cutoff.
// It returns the number of rows deleted.
func (s *Store) PurgeRemoved(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `
DELETE FROM torrents
WHERE status = ? AND removed_at IS NOT NULL AND removed_at < ?`,
		string(StatusRemoved), cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "store", "purge", "", err)
	}
	return res.RowsAffected()
}

// ResetReview clears the review flag on an item so reconciliation picks it
// up again.
func (s *Store) ResetReview(ctx context.Context, hash string) error {
	ctx = ensureContext(ctx)
	hash = strings.ToUpper(strings.TrimSpace(hash))
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx, `
UPDATE torrents
SET needs_review = 0, review_reason = NULL, updated_at = ?
WHERE hash = ?`, now, hash)
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "reset-review", hash, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "reset-review", hash, nil)
	}
	return nil
}

// FlagReview marks an item as needing operator attention.
func (s *Store) FlagReview(ctx context.Context, hash, reason string) error {
	ctx = ensureContext(ctx)
	hash = strings.ToUpper(strings.TrimSpace(hash))
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx, `
UPDATE torrents
SET needs_review = 1, review_reason = ?, updated_at = ?
WHERE hash = ?`, nullableString(reason), now, hash)
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "flag-review", hash, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "flag-review", hash, nil)
	}
	return nil
}

var expectedColumns = []string{
	"hash",
	"name",
	"status",
	"files_json",
	"source_metadata_hash",
	"missing_scans",
	"needs_review",
	"review_reason",
	"created_at",
	"updated_at",
	"last_seen_at",
	"last_checked_at",
	"removed_at",
}

// CheckHealth returns diagnostic information about the state database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{
		DBPath:        s.path,
		SchemaVersion: fmt.Sprintf("%d", schemaVersion),
	}

	if s.path == "" {
		return health, errors.New("state database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat state database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("state database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("state database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping state database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'torrents'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
			return health, nil
		}
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	health.TableExists = true

	colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(torrents)")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("table info: %w", err)
	}
	defer colsRows.Close()

	present := make(map[string]struct{})
	for colsRows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("scan table info: %w", err)
		}
		present[name] = struct{}{}
		health.ColumnsPresent = append(health.ColumnsPresent, name)
	}
	if err := colsRows.Err(); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("iterate table info: %w", err)
	}

	for _, col := range expectedColumns {
		if _, ok := present[col]; !ok {
			health.MissingColumns = append(health.MissingColumns, col)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")

	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM torrents").Scan(&health.TotalItems); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count items: %w", err)
	}
	return health, nil
}
