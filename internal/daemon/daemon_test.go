package daemon_test

import (
	"os"
	"testing"
	"time"

	"tether/internal/config"
	"tether/internal/daemon"
	"tether/internal/logging"
	"tether/internal/scheduler"
	"tether/internal/store"
	"tether/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *store.Store) {
	t.Helper()
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	sched := scheduler.New(cfg, st, logging.NewNop())
	d, err := daemon.New(cfg, st, logging.NewNop(), sched)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, st
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Reconcile.Interval = 3600
	first, st := newDaemon(t, cfg)
	ctx := t.Context()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, st, logging.NewNop(), scheduler.New(cfg, st, logging.NewNop()))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail on lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected lock to be free after Stop, got %v", err)
	}
	second.Stop()
}

func TestReconcileNowRequiresRunningDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	if err := d.ReconcileNow(); err == nil {
		t.Fatal("expected error when daemon is stopped")
	}
}

func TestItemAccessors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, st := newDaemon(t, cfg)
	ctx := t.Context()

	testsupport.SeedItem(t, st, "DDDD000000000000000000000000000000000000", "Kept",
		[]store.FileEntry{{Path: "Kept/file.mkv", Size: 5}}, store.StatusAvailable)

	items, err := d.ListItems(ctx, nil)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Kept" {
		t.Fatalf("unexpected listing %+v", items)
	}

	item, err := d.GetItem(ctx, "dddd000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("GetItem should normalize case: %v", err)
	}
	if item.Hash != "DDDD000000000000000000000000000000000000" {
		t.Fatalf("unexpected hash %s", item.Hash)
	}

	health, err := d.ItemHealth(ctx)
	if err != nil {
		t.Fatalf("ItemHealth: %v", err)
	}
	if health.Total != 1 || health.Available != 1 {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestPurgeRemovedUsesRetentionWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, st := newDaemon(t, cfg)
	ctx := t.Context()

	testsupport.SeedItem(t, st, "EEEE000000000000000000000000000000000000", "Old",
		nil, store.StatusAvailable)
	if err := st.MarkRemoved(ctx, "EEEE000000000000000000000000000000000000"); err != nil {
		t.Fatalf("MarkRemoved: %v", err)
	}

	purged, err := d.PurgeRemoved(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeRemoved: %v", err)
	}
	if purged != 0 {
		t.Fatalf("fresh removal must survive the window, purged %d", purged)
	}

	purged, err = d.PurgeRemoved(ctx, 0)
	if err != nil {
		t.Fatalf("PurgeRemoved: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected purge with zero window, purged %d", purged)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	sent, detail, err := d.TestNotification(t.Context())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent || detail == "" {
		t.Fatalf("expected unsent with detail, got sent=%v detail=%q", sent, detail)
	}
}
