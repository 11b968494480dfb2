package reconciler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tether/internal/descriptor"
	"tether/internal/logging"
	"tether/internal/mount"
	"tether/internal/reconciler"
	"tether/internal/services"
	"tether/internal/store"
	"tether/internal/testsupport"
)

const showHash = "0123456789ABCDEF0123456789ABCDEF01234567"

func showBatch() *descriptor.BatchReport {
	return &descriptor.BatchReport{
		Descriptors: []descriptor.Descriptor{{
			Hash: showHash,
			Name: "Some.Show.S01",
			Files: []store.FileEntry{
				{Path: "Some.Show.S01/a.mkv", Size: 100},
				{Path: "Some.Show.S01/b.srt", Size: 1},
			},
			RawHash: "raw1",
			Source:  descriptor.SourceZurgInfo,
		}},
	}
}

func healthySnap(files map[string]int64, dirs ...string) *mount.Snapshot {
	dirSet := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		dirSet[d] = struct{}{}
	}
	return &mount.Snapshot{
		Outcome:   mount.OutcomeHealthy,
		Files:     files,
		Dirs:      dirSet,
		ScannedAt: time.Now().UTC(),
	}
}

func unknownSnap() *mount.Snapshot {
	return &mount.Snapshot{
		Outcome:   mount.OutcomeUnknown,
		Err:       errors.New("mount stalled"),
		ScannedAt: time.Now().UTC(),
	}
}

func newReconciler(t *testing.T, st *store.Store, threshold int) *reconciler.Reconciler {
	t.Helper()
	return reconciler.New(st, reconciler.Config{
		MissingThreshold: threshold,
		MatchThreshold:   0.85,
	}, logging.NewNop())
}

func mustGet(t *testing.T, st *store.Store, hash string) *store.Item {
	t.Helper()
	item, err := st.GetByHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	return item
}

func TestPassRegistersNewItemAsPending(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)

	result, err := rec.Pass(context.Background(), showBatch(), healthySnap(nil), reconciler.PassState{})
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if result.Registered != 1 {
		t.Fatalf("expected 1 registration, got %+v", result)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusPending {
		t.Errorf("absent content stays pending, got %s", item.Status)
	}
	if item.MissingScans != 0 {
		t.Errorf("pending item must not accrue missing scans, got %d", item.MissingScans)
	}
}

func TestPassPendingToAvailable(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)

	snap := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")

	result, err := rec.Pass(context.Background(), showBatch(), snap, reconciler.PassState{})
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if result.ToAvailable != 1 {
		t.Fatalf("expected available transition, got %+v", result)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusAvailable {
		t.Errorf("expected available, got %s", item.Status)
	}
	if item.LastSeenAt == nil || item.LastCheckedAt == nil {
		t.Error("expected last_seen_at and last_checked_at set")
	}
}

func TestPassPartialWhenSomeFilesMissing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)

	// Only a.mkv is visible; the tiny b.srt is gone.
	snap := healthySnap(map[string]int64{"Some.Show.S01/a.mkv": 100}, "Some.Show.S01")

	if _, err := rec.Pass(context.Background(), showBatch(), snap, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusPartial {
		t.Errorf("expected partial, got %s", item.Status)
	}
}

func TestSizeMismatchStillCountsAsVisible(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)

	// a.mkv is present but smaller than declared. Presence decides status,
	// so the item is still available, not partial.
	snap := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 42,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")

	result, err := rec.Pass(context.Background(), showBatch(), snap, reconciler.PassState{})
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if result.ToAvailable != 1 {
		t.Fatalf("expected available transition, got %+v", result)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusAvailable {
		t.Errorf("expected available despite size mismatch, got %s", item.Status)
	}
	if item.MissingScans != 0 {
		t.Errorf("expected debounce counter untouched, got %d", item.MissingScans)
	}
}

func TestPassIsIdempotent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)
	snap := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")

	if _, err := rec.Pass(context.Background(), showBatch(), snap, reconciler.PassState{}); err != nil {
		t.Fatalf("first Pass: %v", err)
	}
	second, err := rec.Pass(context.Background(), showBatch(), snap, reconciler.PassState{})
	if err != nil {
		t.Fatalf("second Pass: %v", err)
	}
	if second.Registered != 0 || second.Refreshed != 0 || second.ToAvailable != 0 || second.ToPartial != 0 {
		t.Fatalf("second identical pass must change nothing, got %+v", second)
	}
	if mustGet(t, st, showHash).Status != store.StatusAvailable {
		t.Error("status must be stable across identical passes")
	}
}

func TestDebounceBelowThresholdNeverGoesMissing(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)
	ctx := context.Background()

	full := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")
	empty := healthySnap(nil)

	if _, err := rec.Pass(ctx, showBatch(), full, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}

	for i := 1; i <= 2; i++ {
		if _, err := rec.Pass(ctx, showBatch(), empty, reconciler.PassState{}); err != nil {
			t.Fatalf("absent pass %d: %v", i, err)
		}
		item := mustGet(t, st, showHash)
		if item.Status != store.StatusAvailable {
			t.Fatalf("pass %d: item must stay available below threshold, got %s", i, item.Status)
		}
		if item.MissingScans != i {
			t.Fatalf("pass %d: expected %d missing scans, got %d", i, i, item.MissingScans)
		}
	}

	result, err := rec.Pass(ctx, showBatch(), empty, reconciler.PassState{})
	if err != nil {
		t.Fatalf("third absent pass: %v", err)
	}
	if result.ToMissing != 1 {
		t.Fatalf("expected missing transition on threshold, got %+v", result)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusMissing {
		t.Fatalf("expected missing at threshold, got %s", item.Status)
	}
	if item.MissingScans != 0 {
		t.Errorf("counter resets after transition, got %d", item.MissingScans)
	}
}

func TestRecoveryResetsDebounceCounter(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)
	ctx := context.Background()

	full := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")
	empty := healthySnap(nil)

	if _, err := rec.Pass(ctx, showBatch(), full, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := rec.Pass(ctx, showBatch(), empty, reconciler.PassState{}); err != nil {
			t.Fatalf("absent pass: %v", err)
		}
	}

	// Content reappears: counter must reset to zero.
	if _, err := rec.Pass(ctx, showBatch(), full, reconciler.PassState{}); err != nil {
		t.Fatalf("recovery pass: %v", err)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusAvailable || item.MissingScans != 0 {
		t.Fatalf("recovery must reset the counter: %s %d", item.Status, item.MissingScans)
	}

	// Two more absent scans still do not reach the threshold.
	for i := 0; i < 2; i++ {
		if _, err := rec.Pass(ctx, showBatch(), empty, reconciler.PassState{}); err != nil {
			t.Fatalf("absent pass: %v", err)
		}
	}
	if got := mustGet(t, st, showHash).Status; got != store.StatusAvailable {
		t.Fatalf("counter did not restart from zero, got %s", got)
	}
}

func TestUnknownSnapshotFreezesAllState(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)
	ctx := context.Background()

	full := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")
	if _, err := rec.Pass(ctx, showBatch(), full, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	before := mustGet(t, st, showHash)

	for i := 0; i < 5; i++ {
		result, err := rec.Pass(ctx, showBatch(), unknownSnap(), reconciler.PassState{})
		if err != nil {
			t.Fatalf("unknown pass %d: %v", i, err)
		}
		if !result.Skipped {
			t.Fatalf("unknown pass %d should be skipped", i)
		}
	}

	after := mustGet(t, st, showHash)
	if after.Status != store.StatusAvailable || after.MissingScans != 0 {
		t.Fatalf("unknown scans must not move state: %s %d", after.Status, after.MissingScans)
	}
	if !after.LastCheckedAt.Equal(*before.LastCheckedAt) {
		t.Error("last_checked_at must not advance on unknown scans")
	}
}

func TestRemovalRequiresDoubleConfirmation(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 1)
	ctx := context.Background()

	full := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")
	empty := healthySnap(nil)

	if _, err := rec.Pass(ctx, showBatch(), full, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	// Threshold 1: one absent scan flips available to missing.
	if _, err := rec.Pass(ctx, showBatch(), empty, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if got := mustGet(t, st, showHash).Status; got != store.StatusMissing {
		t.Fatalf("expected missing, got %s", got)
	}

	// Descriptor still present: missing must not become removed.
	if _, err := rec.Pass(ctx, showBatch(), empty, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if got := mustGet(t, st, showHash).Status; got != store.StatusMissing {
		t.Fatalf("descriptor present, item must stay missing, got %s", got)
	}

	// Descriptor gone AND content absent: removed.
	result, err := rec.Pass(ctx, &descriptor.BatchReport{}, empty, reconciler.PassState{})
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if result.ToRemoved != 1 {
		t.Fatalf("expected removal, got %+v", result)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusRemoved || item.RemovedAt == nil {
		t.Fatalf("expected soft-deleted row, got %+v", item)
	}
}

func TestDowngradesPausedBlocksOnlyDowngrades(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 1)
	ctx := context.Background()

	full := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")
	empty := healthySnap(nil)
	paused := reconciler.PassState{DowngradesPaused: true}

	// Upgrade while paused is allowed.
	if _, err := rec.Pass(ctx, showBatch(), full, paused); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if got := mustGet(t, st, showHash).Status; got != store.StatusAvailable {
		t.Fatalf("upgrades must work while paused, got %s", got)
	}

	// Downgrade while paused is blocked even at threshold 1.
	if _, err := rec.Pass(ctx, showBatch(), empty, paused); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusAvailable || item.MissingScans != 0 {
		t.Fatalf("paused pass must not accrue downgrades: %s %d", item.Status, item.MissingScans)
	}

	// Missing item cannot be removed while paused either.
	if _, err := rec.Pass(ctx, showBatch(), empty, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if _, err := rec.Pass(ctx, &descriptor.BatchReport{}, empty, paused); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if got := mustGet(t, st, showHash).Status; got != store.StatusMissing {
		t.Fatalf("removal must be blocked while paused, got %s", got)
	}
}

func TestMalformedDescriptorFlagsReviewOnce(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)
	ctx := context.Background()

	badHash := "FFFF567890ABCDEF0123456789ABCDEF01234567"
	batch := &descriptor.BatchReport{
		Warnings: []descriptor.Warning{{
			Path: "/infos/bad.zurgtorrent",
			Hash: badHash,
			Err:  services.Wrap(services.ErrMalformed, "descriptor", "zurgtorrent", "missing name", nil),
		}},
	}

	result, err := rec.Pass(ctx, batch, healthySnap(nil), reconciler.PassState{})
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if result.ReviewFlagged != 1 || len(result.NewlyReview) != 1 {
		t.Fatalf("expected review flag, got %+v", result)
	}

	item := mustGet(t, st, badHash)
	if item.Status != store.StatusPending || !item.NeedsReview {
		t.Fatalf("malformed item must be pending and flagged: %+v", item)
	}
	if len(item.Files) != 0 {
		t.Errorf("malformed item records an empty file list, got %v", item.Files)
	}

	second, err := rec.Pass(ctx, batch, healthySnap(nil), reconciler.PassState{})
	if err != nil {
		t.Fatalf("second Pass: %v", err)
	}
	if len(second.NewlyReview) != 0 {
		t.Fatalf("already-flagged item must not re-notify, got %+v", second.NewlyReview)
	}
}

func TestFallbackMatchTreatsRenamedDirAsAvailable(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)

	// The gateway renamed the directory, so no declared path is visible,
	// but a closely matching top-level directory exists.
	snap := healthySnap(map[string]int64{
		"Some Show S01/a.mkv": 100,
	}, "Some Show S01")

	if _, err := rec.Pass(context.Background(), showBatch(), snap, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}
	item := mustGet(t, st, showHash)
	if item.Status != store.StatusAvailable {
		t.Fatalf("renamed directory above threshold counts as available, got %s", item.Status)
	}
}

func TestMetadataRefreshKeepsStatus(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := newReconciler(t, st, 3)
	ctx := context.Background()

	full := healthySnap(map[string]int64{
		"Some.Show.S01/a.mkv": 100,
		"Some.Show.S01/b.srt": 1,
	}, "Some.Show.S01")
	if _, err := rec.Pass(ctx, showBatch(), full, reconciler.PassState{}); err != nil {
		t.Fatalf("Pass: %v", err)
	}

	renamed := showBatch()
	renamed.Descriptors[0].Name = "Some.Show.S01.PROPER"
	renamed.Descriptors[0].RawHash = "raw2"

	result, err := rec.Pass(ctx, renamed, full, reconciler.PassState{})
	if err != nil {
		t.Fatalf("Pass: %v", err)
	}
	if result.Refreshed != 1 {
		t.Fatalf("expected refresh, got %+v", result)
	}
	item := mustGet(t, st, showHash)
	if item.Name != "Some.Show.S01.PROPER" {
		t.Errorf("name not refreshed: %q", item.Name)
	}
	if item.Status != store.StatusAvailable {
		t.Errorf("refresh must not reset status, got %s", item.Status)
	}
}
