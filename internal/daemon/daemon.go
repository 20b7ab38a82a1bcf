package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"imgferry/internal/config"
	"imgferry/internal/logging"
	"imgferry/internal/preflight"
)

const shutdownTimeout = 10 * time.Second

// Daemon serves the HTTP API and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	base       *slog.Logger
	logger     *slog.Logger
	components *Components

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	running  atomic.Bool
	cancel   context.CancelFunc
	group    *errgroup.Group
	listener net.Listener
	server   *http.Server
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool   `json:"running"`
	Address      string `json:"address,omitempty"`
	DatabasePath string `json:"databasePath"`
	LockFilePath string `json:"lockFilePath"`
}

// New constructs a daemon around already-built components.
func New(cfg *config.Config, components *Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || components == nil {
		return nil, errors.New("daemon requires config and components")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		base:       logger,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		components: components,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the lock, sweeps orphaned scratch directories, runs
// preflight checks, and begins serving. It returns once the listener is bound.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another imgferry server is already running for this data directory")
	}

	if err := d.prepare(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	listener, err := net.Listen("tcp", strings.TrimSpace(d.cfg.Server.Bind))
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	server := &http.Server{
		Handler:           d.components.APIServer(d.base).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, release := context.WithTimeout(context.Background(), shutdownTimeout)
		defer release()
		if err := server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("api shutdown incomplete", logging.Error(err))
		}
		return nil
	})
	group.Go(func() error {
		d.sweepLoop(groupCtx)
		return nil
	})

	d.cancel = cancel
	d.group = group
	d.listener = listener
	d.server = server
	d.running.Store(true)

	d.logger.Info("imgferry server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "server_started"),
	)
	return nil
}

// Wait blocks until the server stops and returns the first serve error.
func (d *Daemon) Wait() error {
	d.mu.Lock()
	group := d.group
	d.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}

// Stop shuts the listener down gracefully and releases the lock.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	var err error
	if d.group != nil {
		err = d.group.Wait()
		d.group = nil
	}
	d.listener = nil
	d.server = nil
	if unlockErr := d.lock.Unlock(); unlockErr != nil {
		d.logger.Warn("failed to release server lock", logging.Error(unlockErr))
	}
	d.running.Store(false)
	d.logger.Info("imgferry server stopped", logging.String(logging.FieldEventType, "server_stopped"))
	return err
}

// Run starts the daemon and blocks until ctx ends or serving fails.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	serveErr := d.Wait()
	stopErr := d.Stop()
	if serveErr != nil {
		return serveErr
	}
	return stopErr
}

// Close stops the server and releases all components.
func (d *Daemon) Close() error {
	stopErr := d.Stop()
	closeErr := d.components.Close()
	return errors.Join(stopErr, closeErr)
}

// Addr returns the bound listener address, or "" when not running.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		Address:      d.Addr(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) prepare(ctx context.Context) error {
	d.sweep()

	results := preflight.RunAll(ctx, d.cfg, d.components.Store, false)
	for _, r := range results {
		d.logger.Debug("preflight check",
			logging.String("check", r.Name),
			logging.Bool("passed", r.Passed),
			logging.String("detail", r.Detail),
		)
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, r := range failed {
			parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		logging.ErrorWithContext(d.logger, "preflight failed", "preflight_failed",
			logging.String("failures", strings.Join(parts, "; ")),
			logging.String(logging.FieldErrorHint, "fix directory permissions or database access and restart"),
		)
		return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
	}
	return nil
}

func (d *Daemon) sweep() {
	removed, err := d.components.Scheduler.Sweep(d.cfg.OrphanMaxAge())
	if err != nil {
		logging.WarnWithContext(d.logger, "scratch sweep failed", "scratch_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("removed orphaned import directories",
			logging.Int("count", removed),
			logging.String(logging.FieldEventType, "scratch_swept"),
		)
	}
}

// sweepLoop repeats the orphan sweep once per max-age interval while serving.
func (d *Daemon) sweepLoop(ctx context.Context) {
	interval := d.cfg.OrphanMaxAge()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}
