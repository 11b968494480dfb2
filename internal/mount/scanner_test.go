package mount_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tether/internal/logging"
	"tether/internal/mount"
	"tether/internal/services"
	"tether/internal/testsupport"
)

func TestScanHealthyListing(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "Some.Show.S01", "a.mkv"), 100)
	testsupport.WriteFile(t, filepath.Join(root, "Some.Show.S01", "b.srt"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "Some.Movie.mkv"), 50)

	snap := mount.NewScanner(root, time.Minute, logging.NewNop()).Scan(context.Background())

	if !snap.Healthy() {
		t.Fatalf("expected healthy scan, got %v (%v)", snap.Outcome, snap.Err)
	}
	if size, ok := snap.Size("Some.Show.S01/a.mkv"); !ok || size != 100 {
		t.Errorf("expected a.mkv size 100, got %d %v", size, ok)
	}
	if _, ok := snap.Size("Some.Show.S01/missing.mkv"); ok {
		t.Error("absent file should not be visible")
	}
	if !snap.HasDir("Some.Show.S01") {
		t.Error("expected directory visible")
	}
	tops := snap.TopLevelDirs()
	if len(tops) != 1 || tops[0] != "Some.Show.S01" {
		t.Errorf("unexpected top-level dirs %v", tops)
	}
}

func TestScanEmptyRootIsHealthy(t *testing.T) {
	snap := mount.NewScanner(t.TempDir(), time.Minute, logging.NewNop()).Scan(context.Background())

	if !snap.Healthy() {
		t.Fatalf("an empty mount is a valid listing, got %v", snap.Outcome)
	}
	if len(snap.Files) != 0 {
		t.Errorf("expected no files, got %v", snap.Files)
	}
}

func TestScanMissingRootIsUnknown(t *testing.T) {
	snap := mount.NewScanner(filepath.Join(t.TempDir(), "absent"), time.Minute, logging.NewNop()).Scan(context.Background())

	if snap.Healthy() {
		t.Fatal("missing root must never look like an empty listing")
	}
	if snap.Err == nil {
		t.Error("expected an explanatory error")
	}
}

func TestScanCanceledContextIsUnknown(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "f"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := mount.NewScanner(root, time.Minute, logging.NewNop()).Scan(ctx)
	if snap.Healthy() {
		t.Fatal("canceled scan must be unknown")
	}
	if !errors.Is(snap.Err, services.ErrTransient) && !errors.Is(snap.Err, services.ErrTimeout) {
		t.Errorf("expected transient or timeout classification, got %v", snap.Err)
	}
}

func TestScanExpiredTimeoutIsUnknown(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "f"), 1)

	snap := mount.NewScanner(root, time.Nanosecond, logging.NewNop()).Scan(context.Background())
	if snap.Healthy() {
		t.Fatal("expired deadline must yield unknown")
	}
}

func TestSizeNormalizesSeparators(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "dir", "file.bin"), 7)

	snap := mount.NewScanner(root, time.Minute, logging.NewNop()).Scan(context.Background())
	if size, ok := snap.Size("/dir/file.bin/"); !ok || size != 7 {
		t.Errorf("expected normalized lookup to succeed, got %d %v", size, ok)
	}
}
