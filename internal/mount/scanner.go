package mount

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tether/internal/logging"
	"tether/internal/services"
)

// defaultMaxErrors is the per-scan tolerance for transient entry errors
// before the whole scan is degraded to Unknown.
const defaultMaxErrors = 25

var errTooManyEntryErrors = errors.New("too many entry errors")

// Scanner walks the rclone mount root and produces Snapshots.
type Scanner struct {
	root      string
	timeout   time.Duration
	maxErrors int
	logger    *slog.Logger
}

// NewScanner constructs a Scanner for the given mount root. A timeout of
// zero disables the walk deadline.
func NewScanner(root string, timeout time.Duration, logger *slog.Logger) *Scanner {
	return &Scanner{
		root:      root,
		timeout:   timeout,
		maxErrors: defaultMaxErrors,
		logger:    logging.NewComponentLogger(logger, "mount"),
	}
}

// Scan walks the mount root. It always returns a Snapshot: a completed walk
// yields a healthy listing, while a stat failure on the root, a timeout, or
// error counts beyond tolerance yield an Unknown snapshot whose Err explains
// why. Scan never returns a Go error because the caller must treat every
// failure mode as "cannot tell", not as a reason to stop reconciling.
func (s *Scanner) Scan(ctx context.Context) *Snapshot {
	started := time.Now()
	snap := &Snapshot{
		Outcome:   OutcomeUnknown,
		ScannedAt: started.UTC(),
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if info, err := os.Stat(s.root); err != nil || !info.IsDir() {
		if err == nil {
			err = services.Wrap(services.ErrTransient, "mount", "scan", s.root+" is not a directory", nil)
		}
		snap.Err = err
		snap.Duration = time.Since(started)
		s.logger.Warn("mount root unavailable",
			logging.String("root", s.root),
			logging.Error(snap.Err),
			logging.String(logging.FieldEventType, "mount_unknown"))
		return snap
	}

	// The walk goroutine owns its maps until it finishes; on timeout it is
	// abandoned and its partial listing is discarded.
	type walkResult struct {
		files map[string]int64
		dirs  map[string]struct{}
		err   error
	}
	done := make(chan walkResult, 1)

	go func() {
		files := make(map[string]int64)
		dirs := make(map[string]struct{})
		var entryErrors int
		err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				entryErrors++
				if entryErrors > s.maxErrors {
					return errTooManyEntryErrors
				}
				if entry != nil && entry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(s.root, path)
			if relErr != nil || rel == "." {
				return nil
			}
			rel = normalizeRel(filepath.ToSlash(rel))
			if entry.IsDir() {
				dirs[rel] = struct{}{}
				return nil
			}
			info, infoErr := entry.Info()
			if infoErr != nil {
				entryErrors++
				if entryErrors > s.maxErrors {
					return errTooManyEntryErrors
				}
				return nil
			}
			files[rel] = info.Size()
			return nil
		})
		done <- walkResult{files: files, dirs: dirs, err: err}
	}()

	select {
	case result := <-done:
		snap.Duration = time.Since(started)
		if result.err != nil {
			snap.Err = classifyWalkError(result.err)
			s.logger.Warn("mount scan inconclusive",
				logging.Error(snap.Err),
				logging.Duration("duration", snap.Duration),
				logging.String(logging.FieldEventType, "mount_unknown"))
			return snap
		}
		snap.Outcome = OutcomeHealthy
		snap.Files = result.files
		snap.Dirs = result.dirs
		s.logger.Debug("mount scan complete",
			logging.Int("files", len(snap.Files)),
			logging.Int("dirs", len(snap.Dirs)),
			logging.Duration("duration", snap.Duration))
		return snap
	case <-ctx.Done():
		// The walk goroutine may still be blocked inside a stalled FUSE
		// call; it is abandoned and will observe the canceled context on
		// its next callback.
		snap.Duration = time.Since(started)
		snap.Err = classifyWalkError(ctx.Err())
		s.logger.Warn("mount scan timed out",
			logging.Duration("duration", snap.Duration),
			logging.String(logging.FieldEventType, "mount_unknown"))
		return snap
	}
}

func classifyWalkError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "mount", "scan", "walk exceeded timeout", err)
	case errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrTransient, "mount", "scan", "walk canceled", err)
	case errors.Is(err, errTooManyEntryErrors):
		return services.Wrap(services.ErrTransient, "mount", "scan", "entry error tolerance exceeded", err)
	default:
		return services.Wrap(services.ErrTransient, "mount", "scan", "walk failed", err)
	}
}
