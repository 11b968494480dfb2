package reconciler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tether/internal/descriptor"
	"tether/internal/logging"
	"tether/internal/match"
	"tether/internal/mount"
	"tether/internal/store"
)

// Config carries the reconciliation policy knobs.
type Config struct {
	// MissingThreshold is the number of consecutive healthy absent scans
	// before an available item becomes missing.
	MissingThreshold int
	// MatchThreshold is the minimum name similarity for the fallback
	// directory match.
	MatchThreshold float64
}

// PassState carries per-pass flags the scheduler derives from mount history.
type PassState struct {
	// DowngradesPaused blocks transitions toward missing/removed while
	// the mount is known to be in an outage window.
	DowngradesPaused bool
}

// Result summarizes one reconciliation pass.
type Result struct {
	PassID string

	// Skipped is set when the snapshot was Unknown and no item state was
	// touched.
	Skipped bool

	Registered int
	Refreshed  int
	Revived    int

	ToAvailable int
	ToPartial   int
	ToMissing   int
	ToRemoved   int

	ReviewFlagged int
	ItemErrors    int

	NewlyMissing []string
	NewlyRemoved []string
	NewlyReview  []string

	Duration time.Duration
}

// Reconciler diffs descriptor batches against mount snapshots and applies
// status transitions to the store.
type Reconciler struct {
	store  *store.Store
	cfg    Config
	logger *slog.Logger
}

// New constructs a Reconciler.
func New(st *store.Store, cfg Config, logger *slog.Logger) *Reconciler {
	if cfg.MissingThreshold < 1 {
		cfg.MissingThreshold = 1
	}
	return &Reconciler{
		store:  st,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "reconciler"),
	}
}

// Pass runs one reconciliation over a descriptor batch and a mount snapshot.
// Registration from descriptors always happens; status transitions only run
// against a healthy snapshot. Each item is written in its own transaction,
// so one failed write never blocks the rest of the batch. The context is
// checked between items; the write for the item in flight is allowed to
// finish on shutdown.
func (r *Reconciler) Pass(ctx context.Context, batch *descriptor.BatchReport, snap *mount.Snapshot, state PassState) (*Result, error) {
	started := time.Now()
	result := &Result{PassID: uuid.NewString()}
	logger := r.logger.With(logging.String(logging.FieldPassID, result.PassID))

	// Store writes survive cancellation so the current item is never left
	// half-written.
	writeCtx := context.WithoutCancel(ctx)

	descriptorHashes := make(map[string]struct{}, len(batch.Descriptors))

	for _, desc := range batch.Descriptors {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		descriptorHashes[desc.Hash] = struct{}{}

		upsert, err := r.store.Upsert(writeCtx, desc.Hash, desc.Name, desc.Files, desc.RawHash)
		if err != nil {
			result.ItemErrors++
			logger.Error("descriptor upsert failed",
				logging.String(logging.FieldItemHash, desc.Hash),
				logging.Error(err))
			continue
		}
		switch upsert {
		case store.UpsertInserted:
			result.Registered++
			logger.Info("item registered",
				logging.String(logging.FieldItemHash, desc.Hash),
				logging.String("name", desc.Name),
				logging.String(logging.FieldEventType, "item_registered"))
		case store.UpsertUpdated:
			result.Refreshed++
		case store.UpsertRevived:
			result.Revived++
			logger.Info("removed item re-registered",
				logging.String(logging.FieldItemHash, desc.Hash),
				logging.String(logging.FieldEventType, "item_revived"))
		}
	}

	// Malformed descriptors that still yielded an identity are registered
	// with an empty file list and flagged, never dropped silently.
	for _, warning := range batch.Warnings {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if warning.Hash == "" {
			logger.Warn("unreadable descriptor",
				logging.String("path", warning.Path),
				logging.Error(warning.Err),
				logging.String(logging.FieldEventType, "descriptor_unreadable"))
			continue
		}
		descriptorHashes[warning.Hash] = struct{}{}
		if _, err := r.store.Upsert(writeCtx, warning.Hash, "", nil, ""); err != nil {
			result.ItemErrors++
			logger.Error("review upsert failed",
				logging.String(logging.FieldItemHash, warning.Hash),
				logging.Error(err))
			continue
		}
		if existing, err := r.store.GetByHash(ctx, warning.Hash); err == nil && existing.NeedsReview {
			continue
		}
		if err := r.store.FlagReview(writeCtx, warning.Hash, warning.Err.Error()); err != nil {
			result.ItemErrors++
			logger.Error("review flag failed",
				logging.String(logging.FieldItemHash, warning.Hash),
				logging.Error(err))
			continue
		}
		result.ReviewFlagged++
		result.NewlyReview = append(result.NewlyReview, warning.Hash)
	}

	if !snap.Healthy() {
		result.Skipped = true
		result.Duration = time.Since(started)
		logger.Warn("pass skipped, mount state unknown",
			logging.Error(snap.Err),
			logging.String(logging.FieldEventType, "pass_skipped"))
		return result, nil
	}

	items, err := r.store.List(ctx,
		store.StatusPending, store.StatusAvailable, store.StatusPartial, store.StatusMissing)
	if err != nil {
		return result, err
	}

	topDirs := snap.TopLevelDirs()
	now := snap.ScannedAt

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(started)
			return result, err
		}

		vis := r.observe(item, snap, topDirs, logger)
		_, descriptorPresent := descriptorHashes[item.Hash]
		d := decide(item, vis, descriptorPresent, r.cfg.MissingThreshold, state.DowngradesPaused)

		if d.remove {
			if err := r.store.MarkRemoved(writeCtx, item.Hash); err != nil {
				result.ItemErrors++
				logger.Error("remove failed",
					logging.String(logging.FieldItemHash, item.Hash),
					logging.Error(err))
				continue
			}
			result.ToRemoved++
			result.NewlyRemoved = append(result.NewlyRemoved, item.Hash)
			logger.Info("item removed",
				logging.String(logging.FieldItemHash, item.Hash),
				logging.String("name", item.Name),
				logging.String(logging.FieldEventType, "item_removed"))
			continue
		}

		previous := item.Status
		item.Status = d.status
		item.MissingScans = d.missingScans
		item.LastCheckedAt = &now
		if d.seen {
			item.LastSeenAt = &now
		}

		if err := r.store.Update(writeCtx, item); err != nil {
			result.ItemErrors++
			logger.Error("item update failed",
				logging.String(logging.FieldItemHash, item.Hash),
				logging.Error(err))
			continue
		}

		if previous == d.status {
			continue
		}
		switch d.status {
		case store.StatusAvailable:
			result.ToAvailable++
		case store.StatusPartial:
			result.ToPartial++
		case store.StatusMissing:
			result.ToMissing++
			result.NewlyMissing = append(result.NewlyMissing, item.Hash)
		}
		logger.Info("status changed",
			logging.String(logging.FieldItemHash, item.Hash),
			logging.String("name", item.Name),
			logging.String("from", string(previous)),
			logging.String("to", string(d.status)),
			logging.String(logging.FieldEventType, "status_changed"))
	}

	result.Duration = time.Since(started)
	logger.Info("pass complete",
		logging.Int("registered", result.Registered),
		logging.Int("to_available", result.ToAvailable),
		logging.Int("to_partial", result.ToPartial),
		logging.Int("to_missing", result.ToMissing),
		logging.Int("to_removed", result.ToRemoved),
		logging.Int("errors", result.ItemErrors),
		logging.Duration("duration", result.Duration),
		logging.String(logging.FieldEventType, "pass_complete"))
	return result, nil
}

// observe checks which of an item's declared files are visible in the
// snapshot. Presence decides status; a size disagreement is logged but the
// file still counts as visible, since the mount is authoritative for status
// and the metadata for the declared list.
func (r *Reconciler) observe(item *store.Item, snap *mount.Snapshot, topDirs []string, logger *slog.Logger) visibility {
	vis := visibility{declaredFiles: len(item.Files)}

	for _, file := range item.Files {
		size, ok := snap.Size(file.Path)
		if !ok {
			continue
		}
		vis.visibleFiles++
		if file.Size > 0 && size != file.Size {
			logger.Debug("size mismatch",
				logging.String(logging.FieldItemHash, item.Hash),
				logging.String("path", file.Path),
				logging.Int64("declared", file.Size),
				logging.Int64("observed", size))
		}
	}

	if vis.visibleFiles > 0 || len(item.Files) == 0 {
		return vis
	}

	// Gateways rename content on the mount; fall back to a fuzzy match of
	// the item name against top-level directories before concluding the
	// content is absent.
	if best, score := match.BestMatch(item.Name, topDirs); best != "" && score >= r.cfg.MatchThreshold {
		vis.matchedDir = best
		vis.matchedScore = score
		logger.Debug("fallback name match",
			logging.String(logging.FieldItemHash, item.Hash),
			logging.String("dir", best),
			logging.Float64("score", score))
	}
	return vis
}
