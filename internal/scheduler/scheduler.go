package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tether/internal/config"
	"tether/internal/descriptor"
	"tether/internal/logging"
	"tether/internal/mount"
	"tether/internal/notifications"
	"tether/internal/reconciler"
	"tether/internal/store"
)

// Scheduler drives the read/scan/reconcile cycle on a fixed interval and
// tracks mount outage state across passes.
type Scheduler struct {
	cfg      *config.Config
	store    *store.Store
	reader   *descriptor.Reader
	scanner  *mount.Scanner
	rec      *reconciler.Reconciler
	notifier notifications.Service
	logger   *slog.Logger

	interval        time.Duration
	retryInterval   time.Duration
	outageThreshold int

	trigger chan struct{}

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	lastResult *reconciler.Result
	lastPassAt time.Time

	unknownStreak    int
	downgradesPaused bool
	outageSince      time.Time
}

// StatusSummary represents lightweight scheduler diagnostics.
type StatusSummary struct {
	Running          bool
	DowngradesPaused bool
	UnknownStreak    int
	LastError        string
	LastPassAt       time.Time
	LastResult       *reconciler.Result
}

// New constructs a scheduler wired to the configured directories.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Scheduler {
	return NewWithNotifier(cfg, st, logger, notifications.NewService(cfg))
}

// NewWithNotifier constructs a scheduler with a custom notifier (used in tests).
func NewWithNotifier(cfg *config.Config, st *store.Store, logger *slog.Logger, notifier notifications.Service) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	scanTimeout := time.Duration(cfg.Reconcile.ScanTimeout) * time.Second
	return &Scheduler{
		cfg:      cfg,
		store:    st,
		reader:   descriptor.NewReader(cfg.Paths.InfoDir, logger),
		scanner:  mount.NewScanner(cfg.Paths.MountDir, scanTimeout, logger),
		rec: reconciler.New(st, reconciler.Config{
			MissingThreshold: cfg.Reconcile.MissingThreshold,
			MatchThreshold:   cfg.Reconcile.MatchThreshold,
		}, logger),
		notifier:        notifier,
		logger:          logging.NewComponentLogger(logger, "scheduler"),
		interval:        time.Duration(cfg.Reconcile.Interval) * time.Second,
		retryInterval:   time.Duration(cfg.Reconcile.ErrorRetryInterval) * time.Second,
		outageThreshold: cfg.Reconcile.OutageThreshold,
		trigger:         make(chan struct{}, 1),
	}
}

// Start begins background reconciliation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop terminates background reconciliation and waits for the in-flight
// pass to finish its current item write.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// TriggerNow requests an immediate pass. A pass already in flight absorbs
// the request; triggers are never queued.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// RunOnce executes a single reconciliation pass synchronously. It shares
// the outage bookkeeping with the background loop.
func (s *Scheduler) RunOnce(ctx context.Context) (*reconciler.Result, error) {
	return s.runPass(ctx)
}

// Status returns the latest scheduler information.
func (s *Scheduler) Status() StatusSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := StatusSummary{
		Running:          s.running,
		DowngradesPaused: s.downgradesPaused,
		UnknownStreak:    s.unknownStreak,
		LastPassAt:       s.lastPassAt,
	}
	if s.lastErr != nil {
		summary.LastError = s.lastErr.Error()
	}
	if s.lastResult != nil {
		copy := *s.lastResult
		summary.LastResult = &copy
	}
	return summary
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		delay := s.interval
		if _, err := s.runPass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			delay = s.retryInterval
			s.logger.Error("reconciliation pass failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "pass_failed"),
				logging.String(logging.FieldErrorHint, "check info directory and database access"))
			if nerr := s.notifier.NotifyError(ctx, err, "reconciliation pass"); nerr != nil {
				s.logger.Warn("error notification failed", logging.Error(nerr))
			}
		}

		// Waiting after the pass instead of on a ticker means a slow pass
		// never causes a queued catch-up pass.
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
		case <-time.After(delay):
		}
	}
}

// runPass reads descriptors and scans the mount concurrently, then hands
// both to the reconciler. Holding the outage flag through the first healthy
// pass after a recovery gives the gateway one full cycle to repopulate the
// mount before downgrades resume.
func (s *Scheduler) runPass(ctx context.Context) (*reconciler.Result, error) {
	var (
		batch *descriptor.BatchReport
		snap  *mount.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.reader.ReadBatch(gctx)
		batch = b
		return err
	})
	g.Go(func() error {
		snap = s.scanner.Scan(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.setLastError(err)
		return nil, err
	}

	paused := s.observeMountHealth(ctx, snap)

	result, err := s.rec.Pass(ctx, batch, snap, reconciler.PassState{DowngradesPaused: paused})
	s.recordPass(result, err)
	if err != nil {
		return result, err
	}

	s.dispatchNotifications(ctx, result)
	return result, nil
}

// observeMountHealth updates the unknown-scan streak and returns whether
// downgrades are paused for this pass.
func (s *Scheduler) observeMountHealth(ctx context.Context, snap *mount.Snapshot) bool {
	s.mu.Lock()

	if !snap.Healthy() {
		s.unknownStreak++
		streak := s.unknownStreak
		crossed := s.outageThreshold > 0 && streak == s.outageThreshold
		if crossed {
			s.downgradesPaused = true
			s.outageSince = snap.ScannedAt
		}
		paused := s.downgradesPaused
		s.mu.Unlock()

		if crossed {
			s.logger.Warn("mount outage declared, status downgrades paused",
				logging.Int("consecutive_unknown_scans", streak),
				logging.String(logging.FieldEventType, "mount_outage"))
			if err := s.notifier.NotifyMountOutage(ctx, streak); err != nil {
				s.logger.Warn("outage notification failed", logging.Error(err))
			}
		}
		return paused
	}

	wasPaused := s.downgradesPaused
	outage := snap.ScannedAt.Sub(s.outageSince)
	s.unknownStreak = 0
	s.downgradesPaused = false
	s.mu.Unlock()

	if wasPaused {
		s.logger.Info("mount recovered, downgrades resume next pass",
			logging.Duration("outage", outage),
			logging.String(logging.FieldEventType, "mount_recovered"))
		if err := s.notifier.NotifyMountRecovered(ctx, outage); err != nil {
			s.logger.Warn("recovery notification failed", logging.Error(err))
		}
	}
	// The first healthy pass after an outage still runs with downgrades
	// paused so a half-populated mount cannot bump missing counters.
	return wasPaused
}

func (s *Scheduler) dispatchNotifications(ctx context.Context, result *reconciler.Result) {
	if result == nil || result.Skipped {
		return
	}

	if len(result.NewlyMissing) > 0 {
		if err := s.notifier.NotifyItemsMissing(ctx, s.resolveNames(ctx, result.NewlyMissing)); err != nil {
			s.logger.Warn("missing notification failed", logging.Error(err))
		}
	}
	for _, name := range s.resolveNames(ctx, result.NewlyRemoved) {
		if err := s.notifier.NotifyItemRemoved(ctx, name); err != nil {
			s.logger.Warn("removed notification failed", logging.Error(err))
		}
	}
	if result.ReviewFlagged > 0 {
		if err := s.notifier.NotifyReviewNeeded(ctx, result.ReviewFlagged); err != nil {
			s.logger.Warn("review notification failed", logging.Error(err))
		}
	}
}

// resolveNames maps item hashes to display names, falling back to the hash
// when the row is gone.
func (s *Scheduler) resolveNames(ctx context.Context, hashes []string) []string {
	names := make([]string, 0, len(hashes))
	for _, hash := range hashes {
		item, err := s.store.GetByHash(ctx, hash)
		if err != nil || item.Name == "" {
			names = append(names, hash)
			continue
		}
		names = append(names, item.Name)
	}
	return names
}

func (s *Scheduler) recordPass(result *reconciler.Result, err error) {
	s.mu.Lock()
	s.lastErr = err
	if result != nil {
		copy := *result
		s.lastResult = &copy
		s.lastPassAt = time.Now()
	}
	s.mu.Unlock()
}

func (s *Scheduler) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
