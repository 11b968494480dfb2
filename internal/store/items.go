package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tether/internal/services"
)

// UpsertResult reports what an Upsert call did.
type UpsertResult int

const (
	// UpsertUnchanged means a row already existed with identical content.
	UpsertUnchanged UpsertResult = iota
	// UpsertInserted means a new row was created.
	UpsertInserted
	// UpsertUpdated means an existing row's metadata was refreshed.
	UpsertUpdated
	// UpsertRevived means a removed row was re-registered as pending.
	UpsertRevived
)

// Upsert registers or refreshes a tracked torrent from descriptor metadata.
// A brand new hash is inserted as pending. An existing row with identical
// name, file list, and source metadata hash is left untouched, including its
// timestamps, so repeated passes over unchanged descriptors are no-ops. When
// the metadata differs the row is refreshed in place without resetting the
// reconciled status. A previously removed row is revived as pending.
func (s *Store) Upsert(ctx context.Context, hash, name string, files []FileEntry, sourceMetadataHash string) (UpsertResult, error) {
	ctx = ensureContext(ctx)
	hash = strings.ToUpper(strings.TrimSpace(hash))
	if hash == "" {
		return UpsertUnchanged, services.Wrap(services.ErrValidation, "store", "upsert", "hash must not be empty", nil)
	}
	if name == "" {
		name = hash
	}

	filesJSON, err := encodeFiles(files)
	if err != nil {
		return UpsertUnchanged, services.Wrap(services.ErrStore, "store", "upsert", "encode files", err)
	}

	existing, err := s.GetByHash(ctx, hash)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return UpsertUnchanged, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	if existing == nil {
		_, err := s.execWithRetry(ctx, `
INSERT INTO torrents (hash, name, status, files_json, source_metadata_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			hash, name, string(StatusPending), filesJSON, nullableString(sourceMetadataHash), now, now)
		if err != nil {
			return UpsertUnchanged, services.Wrap(services.ErrStore, "store", "upsert", "insert item", err)
		}
		return UpsertInserted, nil
	}

	if existing.Status == StatusRemoved {
		_, err := s.execWithRetry(ctx, `
UPDATE torrents
SET name = ?, status = ?, files_json = ?, source_metadata_hash = ?, missing_scans = 0,
    needs_review = 0, review_reason = NULL, removed_at = NULL, updated_at = ?
WHERE hash = ?`,
			name, string(StatusPending), filesJSON, nullableString(sourceMetadataHash), now, hash)
		if err != nil {
			return UpsertUnchanged, services.Wrap(services.ErrStore, "store", "upsert", "revive item", err)
		}
		return UpsertRevived, nil
	}

	existingJSON, err := encodeFiles(existing.Files)
	if err != nil {
		return UpsertUnchanged, services.Wrap(services.ErrStore, "store", "upsert", "encode existing files", err)
	}
	if existing.Name == name && existingJSON == filesJSON && existing.SourceMetadataHash == sourceMetadataHash {
		return UpsertUnchanged, nil
	}

	_, err = s.execWithRetry(ctx, `
UPDATE torrents
SET name = ?, files_json = ?, source_metadata_hash = ?, updated_at = ?
WHERE hash = ?`,
		name, filesJSON, nullableString(sourceMetadataHash), now, hash)
	if err != nil {
		return UpsertUnchanged, services.Wrap(services.ErrStore, "store", "upsert", "update item", err)
	}
	return UpsertUpdated, nil
}

// GetByHash fetches a single item by infohash.
func (s *Store) GetByHash(ctx context.Context, hash string) (*Item, error) {
	ctx = ensureContext(ctx)
	hash = strings.ToUpper(strings.TrimSpace(hash))

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM torrents WHERE hash = ?", itemColumns), hash)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "store", "get", hash, nil)
		}
		return nil, services.Wrap(services.ErrStore, "store", "get", hash, err)
	}
	return item, nil
}

// Update persists the mutable reconciliation fields of an item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	ctx = ensureContext(ctx)
	if item == nil || item.Hash == "" {
		return services.Wrap(services.ErrValidation, "store", "update", "item hash must not be empty", nil)
	}

	filesJSON, err := encodeFiles(item.Files)
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "update", "encode files", err)
	}

	now := time.Now().UTC()
	item.UpdatedAt = now

	res, err := s.execWithRetry(ctx, `
UPDATE torrents
SET name = ?, status = ?, files_json = ?, source_metadata_hash = ?, missing_scans = ?,
    needs_review = ?, review_reason = ?, updated_at = ?, last_seen_at = ?, last_checked_at = ?, removed_at = ?
WHERE hash = ?`,
		item.Name,
		string(item.Status),
		filesJSON,
		nullableString(item.SourceMetadataHash),
		item.MissingScans,
		boolToInt(item.NeedsReview),
		nullableString(item.ReviewReason),
		now.Format(time.RFC3339Nano),
		nullableTime(item.LastSeenAt),
		nullableTime(item.LastCheckedAt),
		nullableTime(item.RemovedAt),
		item.Hash,
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "update", item.Hash, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update", item.Hash, nil)
	}
	return nil
}

// List returns items filtered by status, ordered by name. With no statuses
// every item is returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)

	query := fmt.Sprintf("SELECT %s FROM torrents", itemColumns)
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += fmt.Sprintf(" WHERE status IN (%s)", makePlaceholders(len(statuses)))
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY name COLLATE NOCASE, hash"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "list", "", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "store", "list", "scan row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "list", "iterate rows", err)
	}
	return items, nil
}

// MarkRemoved soft-deletes an item. The row survives for auditing until a
// purge deletes it past the retention window.
func (s *Store) MarkRemoved(ctx context.Context, hash string) error {
	ctx = ensureContext(ctx)
	hash = strings.ToUpper(strings.TrimSpace(hash))
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx, `
UPDATE torrents
SET status = ?, missing_scans = 0, removed_at = ?, updated_at = ?
WHERE hash = ? AND status != ?`,
		string(StatusRemoved), now, now, hash, string(StatusRemoved))
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "remove", hash, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		if _, getErr := s.GetByHash(ctx, hash); getErr != nil {
			return getErr
		}
	}
	return nil
}
