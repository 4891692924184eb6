// Package retention removes stale uploads and reports from the storage
// directory.
package retention

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"netforensic/internal/logging"
)

// DefaultMaxAge is how long an artifact may sit untouched before it is removed.
const DefaultMaxAge = 30 * time.Minute

// Sweeper deletes regular files older than MaxAge from one directory.
// Deletion is best effort: failures are logged and skipped.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	logger *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewSweeper creates a sweeper for dir. A non-positive maxAge uses DefaultMaxAge.
func NewSweeper(dir string, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Sweeper{
		dir:    dir,
		maxAge: maxAge,
		logger: logging.Component(logger, "retention"),
	}
}

// Sweep removes every regular file whose modification time is more than
// MaxAge before now, and returns how many were removed.
func (s *Sweeper) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Debug("sweep skipped", "dir", s.dir, "error", err)
		return 0
	}

	cutoff := now.Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed concurrently
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Debug("failed to remove expired file", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("expired artifacts removed", "count", removed, "dir", s.dir)
	}
	return removed
}

// Trigger starts a sweep in the background and returns immediately. A
// trigger that arrives while a sweep is running is dropped.
func (s *Sweeper) Trigger() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.Sweep(time.Now())
	}()
}

// Wait blocks until any triggered sweep has finished.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}
