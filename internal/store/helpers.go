package store

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "hash, name, status, files_json, source_metadata_hash, missing_scans, needs_review, review_reason, created_at, updated_at, last_seen_at, last_checked_at, removed_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		hash           string
		name           string
		statusStr      string
		filesJSON      sql.NullString
		metadataHash   sql.NullString
		missingScans   sql.NullInt64
		needsReview    sql.NullInt64
		reviewReason   sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
		lastSeenRaw    sql.NullString
		lastCheckedRaw sql.NullString
		removedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&hash,
		&name,
		&statusStr,
		&filesJSON,
		&metadataHash,
		&missingScans,
		&needsReview,
		&reviewReason,
		&createdRaw,
		&updatedRaw,
		&lastSeenRaw,
		&lastCheckedRaw,
		&removedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		Hash:               hash,
		Name:               name,
		Status:             Status(statusStr),
		SourceMetadataHash: metadataHash.String,
		ReviewReason:       reviewReason.String,
	}
	if missingScans.Valid {
		item.MissingScans = int(missingScans.Int64)
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}

	files, err := decodeFiles(filesJSON.String)
	if err != nil {
		return nil, err
	}
	item.Files = files

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastSeenRaw.Valid {
		if seen, err := parseTimeString(lastSeenRaw.String); err == nil {
			item.LastSeenAt = &seen
		}
	}
	if lastCheckedRaw.Valid {
		if checked, err := parseTimeString(lastCheckedRaw.String); err == nil {
			item.LastCheckedAt = &checked
		}
	}
	if removedRaw.Valid {
		if removed, err := parseTimeString(removedRaw.String); err == nil {
			item.RemovedAt = &removed
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
