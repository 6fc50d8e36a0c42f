package api

import (
	"context"
	"errors"
	"time"

	"corral/internal/queue"
)

// QueueService exposes queue operations to the daemon API server in wire
// form.
type QueueService struct {
	store *queue.Store
}

// NewQueueService builds a queue service over the store.
func NewQueueService(store *queue.Store) *QueueService {
	return &QueueService{store: store}
}

// List returns queue items, optionally filtered to specific statuses.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItemView, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	var (
		items []*queue.Item
		err   error
	)
	if len(statuses) == 0 {
		items, err = s.store.ListAll(ctx)
	} else {
		items, err = s.store.ListByStatus(ctx, statuses...)
	}
	if err != nil {
		return nil, err
	}
	return FromItems(items, time.Now()), nil
}

// Describe returns one item's view, or nil when the id is unknown.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItemView, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	view := FromItem(item, time.Now())
	return &view, nil
}

// Retry resets one item for another sync attempt.
func (s *QueueService) Retry(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return errors.New("queue store unavailable")
	}
	return s.store.ResetForRetry(ctx, id)
}

// RetryAllFailed resets every failed item and returns how many were reset.
func (s *QueueService) RetryAllFailed(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return s.store.ResetAllFailed(ctx)
}

// Confirm stores a confirmed transcription and returns the item to pending.
func (s *QueueService) Confirm(ctx context.Context, id int64, transcription string) error {
	if s == nil || s.store == nil {
		return errors.New("queue store unavailable")
	}
	return s.store.ConfirmTranscription(ctx, id, transcription)
}

// Remove deletes one item unconditionally.
func (s *QueueService) Remove(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.store == nil {
		return false, errors.New("queue store unavailable")
	}
	return s.store.Remove(ctx, id)
}

// ClearCompleted prunes synced items and returns how many were removed.
func (s *QueueService) ClearCompleted(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return s.store.ClearCompleted(ctx)
}

// Clear removes every queue item.
func (s *QueueService) Clear(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return s.store.Clear(ctx)
}
