// Package scratch owns the temporary directories archive imports unpack into
// and removes them after a delay.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"imgferry/internal/config"
	"imgferry/internal/logging"
)

// ImportPrefix names directories created for archive imports.
const ImportPrefix = "import-"

// Scheduler creates scratch directories under a root and removes them after
// a delay. Close removes everything still pending.
type Scheduler struct {
	root   string
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// NewScheduler builds a scheduler rooted at root. A non-positive delay
// removes directories as soon as they are scheduled.
func NewScheduler(root string, delay time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		root:    filepath.Clean(root),
		delay:   delay,
		logger:  logging.NewComponentLogger(logger, "scratch"),
		pending: make(map[string]*time.Timer),
	}
}

// NewSchedulerFromConfig uses paths.scratch_dir and archive.cleanup_delay_seconds.
func NewSchedulerFromConfig(cfg *config.Config, logger *slog.Logger) *Scheduler {
	return NewScheduler(cfg.Paths.ScratchDir, cfg.CleanupDelay(), logger)
}

// Root returns the scratch root.
func (s *Scheduler) Root() string {
	return s.root
}

// NewDir creates a uniquely named directory for one import.
func (s *Scheduler) NewDir() (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("ensure scratch root: %w", err)
	}
	dir := filepath.Join(s.root, ImportPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// Schedule arranges for dir to be removed after the configured delay.
// Scheduling the same dir twice restarts its timer.
func (s *Scheduler) Schedule(dir string) {
	if dir == "" {
		return
	}
	s.mu.Lock()
	if s.closed || s.delay <= 0 {
		s.mu.Unlock()
		s.remove(dir)
		return
	}
	if existing, ok := s.pending[dir]; ok {
		existing.Stop()
	}
	s.pending[dir] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.pending, dir)
		s.mu.Unlock()
		s.remove(dir)
	})
	s.mu.Unlock()
}

// Pending returns how many removals are waiting.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close stops the timers and removes every pending directory now.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	dirs := make([]string, 0, len(s.pending))
	for dir, timer := range s.pending {
		if timer.Stop() {
			dirs = append(dirs, dir)
		}
		delete(s.pending, dir)
	}
	s.mu.Unlock()
	for _, dir := range dirs {
		s.remove(dir)
	}
}

// Sweep removes import directories older than maxAge that a previous
// process left behind. It returns the number removed.
func (s *Scheduler) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read scratch root: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ImportPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if maxAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		s.mu.Lock()
		_, scheduled := s.pending[dir]
		s.mu.Unlock()
		if scheduled {
			continue
		}
		if s.remove(dir) {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("removed orphaned scratch directories", logging.Int("count", removed))
	}
	return removed, nil
}

func (s *Scheduler) remove(dir string) bool {
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(s.logger, "scratch cleanup failed", "scratch_cleanup_failed",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
		)
		return false
	}
	s.logger.Debug("scratch directory removed", logging.String("dir", dir))
	return true
}
