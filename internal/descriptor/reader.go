package descriptor

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tether/internal/logging"
	"tether/internal/services"
)

// progressEvery controls how many descriptor files are read between progress
// log events during long walks.
const progressEvery = 500

// Reader walks the gateway's info directory and parses descriptor files.
type Reader struct {
	dir    string
	logger *slog.Logger
}

// NewReader constructs a Reader over the given info directory.
func NewReader(dir string, logger *slog.Logger) *Reader {
	return &Reader{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "descriptor"),
	}
}

// ReadBatch walks the info directory recursively and parses every .zurginfo
// and .zurgtorrent file. A single unreadable or malformed file produces a
// warning in the report, never an aborted batch. A missing or empty
// directory yields an empty report.
func (r *Reader) ReadBatch(ctx context.Context) (*BatchReport, error) {
	report := &BatchReport{}

	if _, err := os.Stat(r.dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("info directory absent, treating as empty batch",
				logging.String("dir", r.dir),
				logging.String(logging.FieldEventType, "info_dir_absent"))
			return report, nil
		}
		return nil, services.Wrap(services.ErrTransient, "descriptor", "read", "stat info directory", err)
	}

	seen := make(map[string]string)

	walkErr := filepath.WalkDir(r.dir, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			report.Warnings = append(report.Warnings, Warning{Path: path, Err: err})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		var parse func(string, []byte) (Descriptor, error)
		switch {
		case strings.HasSuffix(entry.Name(), ".zurginfo"):
			parse = parseZurgInfo
		case strings.HasSuffix(entry.Name(), ".zurgtorrent"):
			parse = parseZurgTorrent
		default:
			return nil
		}

		report.FilesScanned++
		if report.FilesScanned%progressEvery == 0 {
			r.logger.Info("descriptor walk progress",
				logging.Int("files_scanned", report.FilesScanned),
				logging.Int("parsed", len(report.Descriptors)),
				logging.String(logging.FieldEventType, "descriptor_progress"))
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			report.Warnings = append(report.Warnings, Warning{Path: path, Err: readErr})
			return nil
		}

		desc, parseErr := parse(path, data)
		if parseErr != nil {
			report.Warnings = append(report.Warnings, Warning{Path: path, Hash: desc.Hash, Err: parseErr})
			return nil
		}

		if prior, dup := seen[desc.Hash]; dup {
			r.logger.Debug("duplicate descriptor hash",
				logging.String(logging.FieldItemHash, desc.Hash),
				logging.String("path", path),
				logging.String("prior", prior))
			return nil
		}
		seen[desc.Hash] = path
		report.Descriptors = append(report.Descriptors, desc)
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		return nil, services.Wrap(services.ErrTransient, "descriptor", "read", "walk info directory", walkErr)
	}

	r.logger.Debug("descriptor batch complete",
		logging.Int("files_scanned", report.FilesScanned),
		logging.Int("parsed", len(report.Descriptors)),
		logging.Int("warnings", len(report.Warnings)))
	return report, nil
}
