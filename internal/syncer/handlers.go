package syncer

import (
	"context"
	"encoding/json"
	"fmt"

	"corral/internal/conflict"
	"corral/internal/logging"
	"corral/internal/queue"
	"corral/internal/remote"
)

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeParked
)

type applyResult struct {
	outcome outcome

	// transcription is the draft text to keep when an error parks the item.
	transcription string
	conflicts     int
}

// apply dispatches one item to its handler by payload type.
func (s *Syncer) apply(ctx context.Context, item *queue.Item) (applyResult, error) {
	switch p := item.Payload.(type) {
	case queue.BulkMilkPayload:
		return applyResult{}, insertRows(ctx, s, p.FarmID, "milk_records", p.Records)
	case queue.SingleMilkPayload:
		return applyResult{}, insertRows(ctx, s, p.FarmID, "milk_records", []queue.MilkRecord{p.Record})
	case queue.BulkFeedPayload:
		return applyResult{}, insertRows(ctx, s, p.FarmID, "feed_records", p.Records)
	case queue.BulkHealthPayload:
		return applyResult{}, insertRows(ctx, s, p.FarmID, "health_records", p.Records)
	case queue.VoiceActivityPayload:
		return s.applyVoiceActivity(ctx, item, p)
	case queue.FormPayload:
		return s.applyForm(ctx, item, p)
	case queue.VoiceFormPayload:
		return s.applyVoiceForm(ctx, item, p)
	default:
		return applyResult{}, fmt.Errorf("no handler for item type %q", item.Type)
	}
}

// insertRows pushes a batch of typed records to one farm table. The API
// deduplicates on client_id, so a retry after partial success is safe.
func insertRows[T any](ctx context.Context, s *Syncer, farmID, table string, rows []T) error {
	records := make([]remote.Record, 0, len(rows))
	for _, row := range rows {
		record, err := toRecord(row)
		if err != nil {
			return err
		}
		records = append(records, record)
	}
	if err := s.api.InsertRecords(ctx, farmID, table, records); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *Syncer) applyVoiceActivity(ctx context.Context, item *queue.Item, p queue.VoiceActivityPayload) (applyResult, error) {
	if !p.TranscriptionConfirmed {
		text, err := s.transcribe(ctx, p.FarmID, p.AudioRef)
		if err != nil {
			return applyResult{}, err
		}
		if err := s.store.SetAwaitingConfirmation(ctx, item.ID, text); err != nil {
			return applyResult{}, fmt.Errorf("park transcription: %w", err)
		}
		return applyResult{outcome: outcomeParked, transcription: text}, nil
	}

	record := remote.Record{
		"client_id":     p.ClientID,
		"animal_id":     p.AnimalID,
		"activity_type": p.ActivityType,
		"notes":         p.Transcription,
	}
	if err := s.api.InsertRecords(ctx, p.FarmID, "activities", []remote.Record{record}); err != nil {
		// A parked selection error keeps the confirmed text so the user
		// does not re-confirm from scratch.
		return applyResult{transcription: p.Transcription}, fmt.Errorf("insert activity: %w", err)
	}
	return applyResult{}, nil
}

func (s *Syncer) applyVoiceForm(ctx context.Context, item *queue.Item, p queue.VoiceFormPayload) (applyResult, error) {
	if !p.TranscriptionConfirmed {
		text, err := s.transcribe(ctx, p.FarmID, p.AudioRef)
		if err != nil {
			return applyResult{}, err
		}
		if err := s.store.SetAwaitingConfirmation(ctx, item.ID, text); err != nil {
			return applyResult{}, fmt.Errorf("park transcription: %w", err)
		}
		return applyResult{outcome: outcomeParked, transcription: text}, nil
	}

	record := remote.Record{"client_id": p.ClientID, "transcription": p.Transcription}
	for field, value := range p.Fields {
		record[field] = value
	}
	if err := s.api.InsertRecords(ctx, p.FarmID, p.TableName, []remote.Record{record}); err != nil {
		return applyResult{transcription: p.Transcription}, fmt.Errorf("insert into %s: %w", p.TableName, err)
	}
	return applyResult{}, nil
}

// applyForm inserts a new record or applies a conflict-aware update when the
// payload targets an existing one.
func (s *Syncer) applyForm(ctx context.Context, item *queue.Item, p queue.FormPayload) (applyResult, error) {
	if p.RecordID == "" {
		record := remote.Record{"client_id": p.ClientID}
		for field, value := range p.Fields {
			record[field] = value
		}
		if err := s.api.InsertRecords(ctx, p.FarmID, p.TableName, []remote.Record{record}); err != nil {
			return applyResult{}, fmt.Errorf("insert into %s: %w", p.TableName, err)
		}
		return applyResult{}, nil
	}

	detection, err := s.conflicts.Detect(ctx, p.FarmID, p.TableName, p.RecordID, item.BaseVersion)
	if err != nil {
		return applyResult{}, err
	}
	if !detection.HasConflict {
		if err := s.api.UpdateRecord(ctx, p.FarmID, p.TableName, p.RecordID, remote.Record(p.Fields)); err != nil {
			return applyResult{}, fmt.Errorf("update %s/%s: %w", p.TableName, p.RecordID, err)
		}
		return applyResult{}, nil
	}

	// Concurrent edit: record the conflict for audit, then upload a
	// deterministic field-level merge. This is not a failure of the item.
	merged := conflict.MergeRecords(p.Fields, detection.ServerData, item.CreatedAt, detection.ServerUpdatedAt)
	if _, err := s.conflicts.Record(ctx, p.FarmID, p.TableName, p.RecordID, p.Fields, detection.ServerData); err != nil {
		return applyResult{}, fmt.Errorf("record conflict: %w", err)
	}
	if s.notifyConflicts {
		if nerr := s.notifier.NotifyConflictDetected(ctx, p.TableName, p.RecordID); nerr != nil {
			s.logger.Warn("conflict notification failed", logging.Error(nerr))
		}
	}
	if err := s.api.UpdateRecord(ctx, p.FarmID, p.TableName, p.RecordID, remote.Record(merged)); err != nil {
		return applyResult{}, fmt.Errorf("upload merged %s/%s: %w", p.TableName, p.RecordID, err)
	}
	return applyResult{conflicts: 1}, nil
}

// transcribe calls the transcription endpoint and applies the cooperative
// pacing delay so batches of recordings do not trip rate limits.
func (s *Syncer) transcribe(ctx context.Context, farmID, audioRef string) (string, error) {
	text, err := s.api.Transcribe(ctx, farmID, audioRef)
	s.sleep(ctx, s.transcriptionDelay)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", audioRef, err)
	}
	return text, nil
}

func toRecord(row any) (remote.Record, error) {
	encoded, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var record remote.Record
	if err := json.Unmarshal(encoded, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
