package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"corral/internal/conflict"
	"corral/internal/config"
	"corral/internal/logging"
	"corral/internal/notifications"
	"corral/internal/queue"
	"corral/internal/remote"
)

// RemoteAPI is the slice of the farm API client the processor drives.
type RemoteAPI interface {
	InsertRecords(ctx context.Context, farmID, table string, records []remote.Record) error
	UpdateRecord(ctx context.Context, farmID, table, recordID string, fields remote.Record) error
	FetchRecord(ctx context.Context, farmID, table, recordID string) (remote.Record, error)
	Transcribe(ctx context.Context, farmID, audioRef string) (string, error)
	Healthz(ctx context.Context) error
}

// Summary reports what one queue pass accomplished.
type Summary struct {
	Processed int
	Failed    int
	Parked    int
	Conflicts int
	Stopped   bool
	Duration  time.Duration
}

// Syncer drains the offline queue against the farm API. Items are processed
// sequentially; one remote call completes before the next item's begins.
type Syncer struct {
	store     *queue.Store
	api       RemoteAPI
	conflicts *conflict.Detector
	notifier  notifications.Service
	logger    *slog.Logger

	maxRetries         int
	transcriptionDelay time.Duration
	notifySummary      bool
	notifyConflicts    bool
	notifyErrors       bool

	sleep func(ctx context.Context, d time.Duration)
}

// New builds a syncer from its collaborators.
func New(store *queue.Store, api RemoteAPI, detector *conflict.Detector, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Syncer{
		store:              store,
		api:                api,
		conflicts:          detector,
		notifier:           notifier,
		logger:             logging.NewComponentLogger(logger, "syncer"),
		maxRetries:         cfg.Queue.MaxRetries,
		transcriptionDelay: time.Duration(cfg.Sync.TranscriptionDelaySeconds) * time.Second,
		notifySummary:      cfg.Notifications.SyncSummary,
		notifyConflicts:    cfg.Notifications.Conflicts,
		notifyErrors:       cfg.Notifications.Errors,
		sleep:              sleepCtx,
	}
}

// ProcessQueue drains all pending items once. Connectivity is probed before
// the batch and re-checked between items; losing the connection stops the
// pass and leaves the remainder pending. The returned error covers batch
// level failures only; per-item failures are absorbed into the summary.
func (s *Syncer) ProcessQueue(ctx context.Context) (Summary, error) {
	start := time.Now()

	if err := s.api.Healthz(ctx); err != nil {
		return Summary{}, fmt.Errorf("farm api unreachable: %w", err)
	}

	items, err := s.store.ListPending(ctx)
	if err != nil {
		return Summary{}, err
	}
	if len(items) == 0 {
		return Summary{Duration: time.Since(start)}, nil
	}

	s.logger.Info("sync pass started", logging.Int("pending", len(items)))
	if s.notifySummary {
		if err := s.notifier.NotifySyncStarted(ctx, len(items)); err != nil {
			s.logger.Warn("sync-started notification failed", logging.Error(err))
		}
	}

	var summary Summary
	for i, item := range items {
		if ctx.Err() != nil {
			summary.Stopped = true
			break
		}
		if i > 0 {
			if err := s.api.Healthz(ctx); err != nil {
				s.logger.Warn("connectivity lost mid-batch; stopping", logging.Error(err))
				summary.Stopped = true
				break
			}
		}
		s.processItem(ctx, item, &summary)
	}

	summary.Duration = time.Since(start)
	s.logger.Info("sync pass finished",
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int("parked", summary.Parked),
		logging.Int("conflicts", summary.Conflicts),
		logging.Bool("stopped", summary.Stopped),
		logging.Duration("duration", summary.Duration),
	)
	if s.notifySummary && (summary.Processed > 0 || summary.Failed > 0) {
		if err := s.notifier.NotifySyncCompleted(ctx, summary.Processed, summary.Failed, summary.Duration); err != nil {
			s.logger.Warn("sync-completed notification failed", logging.Error(err))
		}
	}
	return summary, nil
}

func (s *Syncer) processItem(ctx context.Context, item *queue.Item, summary *Summary) {
	itemLog := s.logger.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldItemType, string(item.Type)),
		logging.String(logging.FieldFarmID, item.FarmID),
	)

	if err := s.store.SetStatus(ctx, item.ID, queue.StatusProcessing, ""); err != nil {
		itemLog.Error("failed to mark item processing", logging.Error(err))
		summary.Failed++
		return
	}

	result, err := s.apply(ctx, item)
	if err == nil {
		switch result.outcome {
		case outcomeParked:
			itemLog.Info("item parked for confirmation")
			summary.Parked++
		default:
			if err := s.store.SetStatus(ctx, item.ID, queue.StatusCompleted, ""); err != nil {
				itemLog.Error("failed to mark item completed", logging.Error(err))
			}
			itemLog.Info("item synced")
			summary.Processed++
			summary.Conflicts += result.conflicts
		}
		return
	}

	if remote.IsUserActionable(err) {
		// Retrying cannot fix these; hold the item for user input instead
		// of burning attempts.
		if parkErr := s.store.SetAwaitingConfirmation(ctx, item.ID, result.transcription); parkErr != nil {
			itemLog.Error("failed to park item", logging.Error(parkErr))
			summary.Failed++
			return
		}
		itemLog.Warn("item needs user input", logging.Error(err))
		summary.Parked++
		return
	}

	retries, retryErr := s.store.IncrementRetries(ctx, item.ID)
	if retryErr != nil {
		itemLog.Error("failed to record retry", logging.Error(retryErr))
		summary.Failed++
		return
	}
	if retries >= s.maxRetries {
		if setErr := s.store.SetStatus(ctx, item.ID, queue.StatusFailed, err.Error()); setErr != nil {
			itemLog.Error("failed to mark item failed", logging.Error(setErr))
		}
		itemLog.Error("item failed permanently",
			logging.Int("retries", retries),
			logging.Error(err),
		)
		if s.notifyErrors {
			if nerr := s.notifier.NotifyItemFailed(ctx, string(item.Type), item.ID, err.Error()); nerr != nil {
				itemLog.Warn("item-failed notification failed", logging.Error(nerr))
			}
		}
		summary.Failed++
		return
	}

	// Below the cap the item goes back to pending for the next pass.
	if setErr := s.store.SetStatus(ctx, item.ID, queue.StatusPending, err.Error()); setErr != nil {
		itemLog.Error("failed to requeue item", logging.Error(setErr))
	}
	itemLog.Warn("item will retry",
		logging.Int("retries", retries),
		logging.Error(err),
	)
	summary.Failed++
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
