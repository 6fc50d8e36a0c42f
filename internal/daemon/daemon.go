package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"corral/internal/config"
	"corral/internal/logging"
	"corral/internal/monitor"
	"corral/internal/notifications"
	"corral/internal/queue"
	"corral/internal/syncer"
)

// Daemon coordinates the sync loop, the stuck-item monitor, and the HTTP
// API, and enforces single-instance execution per data directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	syncer   *syncer.Syncer
	monitor  *monitor.Monitor
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	wake chan struct{}

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Queue        queue.HealthSummary
	Conflicts    int
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, s *syncer.Syncer, m *monitor.Monitor, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || s == nil || m == nil {
		return nil, errors.New("daemon requires config, store, syncer, and monitor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		syncer:   s,
		monitor:  m,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		wake:     make(chan struct{}, 1),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the background loops. Only one
// daemon may run per data directory; concurrent queue processors would race
// on pending items.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another corral daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})

	// Enqueues wake the sync loop without waiting out the poll interval.
	d.store.SetSyncTrigger(d.RequestSync)

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	go d.run()

	d.running.Store(true)
	d.logger.Info("corral daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	d.store.SetSyncTrigger(nil)
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("corral daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// RequestSync wakes the sync loop for an immediate pass. Safe to call from
// any goroutine; extra requests coalesce.
func (d *Daemon) RequestSync() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Sync runs one queue pass immediately, outside the loop cadence. Used by
// the API's sync trigger so callers get the pass summary back.
func (d *Daemon) Sync(ctx context.Context) (syncer.Summary, error) {
	return d.syncer.ProcessQueue(ctx)
}

// APIAddr returns the HTTP API's bound address, or "" when the API is
// disabled or the daemon is not running.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Queue = health
	}
	if count, err := d.store.ConflictCount(ctx, ""); err == nil {
		status.Conflicts = count
	}
	return status
}

// run drives the sync loop and the monitor ticker until the daemon context
// is cancelled.
func (d *Daemon) run() {
	defer close(d.done)

	pollInterval := time.Duration(d.cfg.Sync.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	errorInterval := time.Duration(d.cfg.Sync.ErrorRetryInterval) * time.Second
	if errorInterval <= 0 {
		errorInterval = pollInterval
	}
	monitorInterval := time.Duration(d.cfg.Sync.MonitorInterval) * time.Second
	if monitorInterval <= 0 {
		monitorInterval = 5 * time.Minute
	}

	syncTimer := time.NewTimer(0)
	defer syncTimer.Stop()
	monitorTicker := time.NewTicker(monitorInterval)
	defer monitorTicker.Stop()

	var lastStuckNotified int
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.wake:
			d.runSyncPass(syncTimer, pollInterval, errorInterval)
		case <-syncTimer.C:
			d.runSyncPass(syncTimer, pollInterval, errorInterval)
		case <-monitorTicker.C:
			lastStuckNotified = d.runMonitorPass(lastStuckNotified)
		}
	}
}

func (d *Daemon) runSyncPass(timer *time.Timer, pollInterval, errorInterval time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	summary, err := d.syncer.ProcessQueue(d.ctx)
	if err != nil {
		// Unreachable API is routine for an offline-first device; retry on
		// the shorter interval.
		d.logger.Debug("sync pass skipped", logging.Error(err))
		timer.Reset(errorInterval)
		return
	}
	if summary.Stopped {
		timer.Reset(errorInterval)
		return
	}
	timer.Reset(pollInterval)
}

func (d *Daemon) runMonitorPass(lastNotified int) int {
	alerts, err := d.monitor.GenerateSyncAlerts(d.ctx, "")
	if err != nil {
		d.logger.Warn("monitor pass failed", logging.Error(err))
		return lastNotified
	}
	if len(alerts) == 0 {
		return 0
	}

	stuck := alerts[0].Count
	if !d.cfg.Notifications.StuckItems || stuck == lastNotified {
		return lastNotified
	}
	critical := alerts[0].Severity == monitor.SeverityCritical
	if err := d.notifier.NotifyStuckItems(d.ctx, stuck, critical); err != nil {
		d.logger.Warn("stuck-items notification failed", logging.Error(err))
		return lastNotified
	}
	return stuck
}
