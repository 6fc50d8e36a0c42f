package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueueRequest describes a new deferred operation. OptimisticID is
// generated when absent; BaseVersion is optional and only meaningful for
// conflict-aware edits.
type EnqueueRequest struct {
	Payload      Payload
	OptimisticID string
	BaseVersion  *time.Time
}

// Enqueue persists a new pending item. When the store is at capacity the
// single globally oldest item by creation time is evicted first, regardless
// of its status. After a successful insert a background sync pass is
// requested on a best-effort basis.
func (s *Store) Enqueue(ctx context.Context, req EnqueueRequest) (*Item, error) {
	if req.Payload == nil {
		return nil, errors.New("enqueue: payload is required")
	}
	payloadJSON, err := EncodePayload(req.Payload)
	if err != nil {
		return nil, err
	}

	optimisticID := req.OptimisticID
	if optimisticID == "" {
		optimisticID = uuid.NewString()
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue_items`).Scan(&count); err != nil {
		return nil, fmt.Errorf("count queue items: %w", err)
	}
	if count >= s.maxItems {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM queue_items WHERE id = (SELECT id FROM queue_items ORDER BY created_at, id LIMIT 1)`,
		); err != nil {
			return nil, fmt.Errorf("evict oldest item: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO queue_items (
            item_type, payload, status, created_at, retries, optimistic_id, base_version, farm_id
        ) VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		string(req.Payload.ItemType()),
		string(payloadJSON),
		StatusPending,
		now.Format(time.RFC3339Nano),
		optimisticID,
		nullableTime(req.BaseVersion),
		nullableString(req.Payload.Farm()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enqueue: %w", err)
	}

	s.requestSync()
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. Missing items yield (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByOptimisticID fetches the item correlated with an optimistic UI record.
func (s *Store) GetByOptimisticID(ctx context.Context, optimisticID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE optimistic_id = ?`, optimisticID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by optimistic id: %w", err)
	}
	return item, nil
}

// ListPending returns all pending items in creation order.
func (s *Store) ListPending(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, `WHERE status = ? ORDER BY created_at, id`, StatusPending)
}

// ListAll returns every item regardless of status, in creation order.
func (s *Store) ListAll(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, `ORDER BY created_at, id`)
}

// ListByStatus returns items matching any of the provided statuses.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Item, error) {
	if len(statuses) == 0 {
		return s.ListAll(ctx)
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return s.list(ctx, `WHERE status IN (`+placeholders+`) ORDER BY created_at, id`, args...)
}

func (s *Store) list(ctx context.Context, clause string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM queue_items `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SetStatus transitions an item's status, stamping processed_at when the
// transition is terminal. Unknown ids are a silent no-op.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status, errorMessage string) error {
	var processedAt any
	if status == StatusCompleted || status == StatusFailed {
		processedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, error_message = ?, processed_at = COALESCE(?, processed_at) WHERE id = ?`,
		status,
		nullableString(errorMessage),
		processedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// IncrementRetries bumps the retry counter and returns the new count.
// Unknown ids return 0 without error.
func (s *Store) IncrementRetries(ctx context.Context, id int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE queue_items SET retries = retries + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment retries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, nil
	}

	var retries int
	if err := s.db.QueryRowContext(ctx, `SELECT retries FROM queue_items WHERE id = ?`, id).Scan(&retries); err != nil {
		return 0, fmt.Errorf("read retries: %w", err)
	}
	return retries, nil
}

// Remove deletes one item unconditionally.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes every completed item.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ResetForRetry returns one item to pending with a fresh retry budget and a
// cleared error. This is the single manual retry action.
func (s *Store) ResetForRetry(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, retries = 0, error_message = NULL WHERE id = ?`,
		StatusPending, id,
	)
	if err != nil {
		return fmt.Errorf("reset for retry: %w", err)
	}
	return nil
}

// ResetAllFailed returns every failed item to pending and reports how many
// were reset.
func (s *Store) ResetAllFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, retries = 0, error_message = NULL WHERE status = ?`,
		StatusPending, StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("reset failed items: %w", err)
	}
	return res.RowsAffected()
}

// UpdatePayload shallow-merges fields into an item's stored payload. Unknown
// ids are a silent no-op.
func (s *Store) UpdatePayload(ctx context.Context, id int64, partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payload tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var itemType, payloadRaw string
	err = tx.QueryRowContext(ctx, `SELECT item_type, payload FROM queue_items WHERE id = ?`, id).
		Scan(&itemType, &payloadRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	merged, err := mergePayloadJSON(ItemType(itemType), payloadRaw, partial)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE queue_items SET payload = ? WHERE id = ?`, merged, id); err != nil {
		return fmt.Errorf("update payload: %w", err)
	}
	return tx.Commit()
}

// SetAwaitingConfirmation stores a draft transcription on a voice item and
// parks it until the user approves the text. Retries and the error are reset
// so a later confirmation replays with a clean slate.
func (s *Store) SetAwaitingConfirmation(ctx context.Context, id int64, transcription string) error {
	if err := s.UpdatePayload(ctx, id, map[string]any{
		"transcription":           transcription,
		"transcription_confirmed": false,
	}); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, retries = 0, error_message = NULL WHERE id = ?`,
		StatusAwaitingConfirmation, id,
	)
	if err != nil {
		return fmt.Errorf("set awaiting confirmation: %w", err)
	}
	return nil
}

// ConfirmTranscription stores the user-approved transcription and returns the
// item to pending so the next sync pass replays it.
func (s *Store) ConfirmTranscription(ctx context.Context, id int64, transcription string) error {
	if err := s.UpdatePayload(ctx, id, map[string]any{
		"transcription":           transcription,
		"transcription_confirmed": true,
	}); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, error_message = NULL WHERE id = ?`,
		StatusPending, id,
	)
	if err != nil {
		return fmt.Errorf("confirm transcription: %w", err)
	}
	s.requestSync()
	return nil
}

// PendingCount returns the number of pending items.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue_items WHERE status = ?`, StatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pending count: %w", err)
	}
	return count, nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusAwaitingConfirmation:
			health.AwaitingConfirmation += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

func mergePayloadJSON(itemType ItemType, payloadRaw string, partial map[string]any) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(payloadRaw), &fields); err != nil {
		return "", fmt.Errorf("decode stored payload: %w", err)
	}
	for key, value := range partial {
		fields[key] = value
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode merged payload: %w", err)
	}
	// The merged document must still decode as its declared payload type.
	if _, err := DecodePayload(itemType, merged); err != nil {
		return "", err
	}
	return string(merged), nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
