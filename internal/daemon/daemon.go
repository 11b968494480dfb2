package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tether/internal/config"
	"tether/internal/deps"
	"tether/internal/logging"
	"tether/internal/notifications"
	"tether/internal/scheduler"
	"tether/internal/store"
)

// Daemon coordinates the reconciliation scheduler and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	scheduler *scheduler.Scheduler
	logPath   string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Scheduler    scheduler.StatusSummary
	DBPath       string
	LockFilePath string
	Deps         []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, sched *scheduler.Scheduler) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || sched == nil {
		return nil, errors.New("daemon requires config, store, logger, and scheduler")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tetherd.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		scheduler: sched,
		logPath:   filepath.Join(cfg.Paths.LogDir, "tether.log"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start launches the scheduler and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tether daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.scheduler.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start scheduler: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("tether daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background reconciliation and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("tether daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// ListItems returns tracked items filtered by optional statuses.
func (d *Daemon) ListItems(ctx context.Context, statuses []store.Status) ([]*store.Item, error) {
	if d.store == nil {
		return nil, errors.New("state store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// GetItem returns a single tracked item by infohash.
func (d *Daemon) GetItem(ctx context.Context, hash string) (*store.Item, error) {
	if d.store == nil {
		return nil, errors.New("state store unavailable")
	}
	return d.store.GetByHash(ctx, strings.ToUpper(strings.TrimSpace(hash)))
}

// ReconcileNow requests an immediate reconciliation pass. The pass runs on
// the scheduler goroutine; callers observe the outcome through Status.
func (d *Daemon) ReconcileNow() error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	d.scheduler.TriggerNow()
	return nil
}

// ResetReview clears the review flag on an item after manual inspection.
func (d *Daemon) ResetReview(ctx context.Context, hash string) error {
	if d.store == nil {
		return errors.New("state store unavailable")
	}
	return d.store.ResetReview(ctx, strings.ToUpper(strings.TrimSpace(hash)))
}

// PurgeRemoved deletes removed rows older than the given window and returns
// the number purged. A negative window falls back to the configured
// retention period.
func (d *Daemon) PurgeRemoved(ctx context.Context, olderThan time.Duration) (int64, error) {
	if d.store == nil {
		return 0, errors.New("state store unavailable")
	}
	if olderThan < 0 {
		olderThan = time.Duration(d.cfg.Reconcile.RetentionDays) * 24 * time.Hour
	}
	return d.store.PurgeRemoved(ctx, time.Now().Add(-olderThan))
}

// ItemHealth returns aggregate item diagnostics.
func (d *Daemon) ItemHealth(ctx context.Context) (store.HealthSummary, error) {
	if d.store == nil {
		return store.HealthSummary{}, errors.New("state store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (store.DatabaseHealth, error) {
	if d.store == nil {
		return store.DatabaseHealth{}, errors.New("state store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Scheduler:    d.scheduler.Status(),
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
		Deps:         deps.CheckSystemDeps(d.cfg),
	}
}
