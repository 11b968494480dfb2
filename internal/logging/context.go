package logging

import (
	"context"
	"log/slog"

	"tether/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemHash is the standardized structured logging key for torrent infohashes.
	FieldItemHash = "item_hash"
	// FieldPassID is the standardized structured logging key for reconciliation pass identifiers.
	FieldPassID = "pass_id"
	// FieldStatus is the standardized structured logging key for item status values.
	FieldStatus = "status"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance on failures.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if hash, ok := services.ItemHashFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldItemHash, hash))
	}
	if passID, ok := services.PassIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPassID, passID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
