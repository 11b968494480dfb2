package services

import "context"

type contextKey string

const (
	itemHashKey contextKey = "item_hash"
	passIDKey   contextKey = "pass_id"
)

// WithItemHash annotates context with a torrent infohash.
func WithItemHash(ctx context.Context, hash string) context.Context {
	if hash == "" {
		return ctx
	}
	return context.WithValue(ctx, itemHashKey, hash)
}

// ItemHashFromContext extracts the torrent infohash if present.
func ItemHashFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemHashKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPassID annotates context with a reconciliation pass identifier.
func WithPassID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, passIDKey, id)
}

// PassIDFromContext extracts the reconciliation pass identifier if present.
func PassIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(passIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
