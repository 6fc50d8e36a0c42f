package queue_test

import (
	"context"
	"fmt"
	"testing"

	"corral/internal/queue"
	"corral/internal/testsupport"
)

func TestEnqueueAssignsDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueMilk(t, store, "farm-1", "cow-7")

	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.Retries != 0 {
		t.Fatalf("expected zero retries, got %d", item.Retries)
	}
	if item.OptimisticID == "" {
		t.Fatal("expected optimistic id to be generated")
	}
	if item.FarmID != "farm-1" {
		t.Fatalf("expected farm id recorded, got %q", item.FarmID)
	}

	fetched, err := store.GetByOptimisticID(ctx, item.OptimisticID)
	if err != nil {
		t.Fatalf("GetByOptimisticID: %v", err)
	}
	if fetched == nil || fetched.ID != item.ID {
		t.Fatalf("expected to find item by optimistic id, got %#v", fetched)
	}

	payload, ok := fetched.Payload.(queue.SingleMilkPayload)
	if !ok {
		t.Fatalf("expected SingleMilkPayload, got %T", fetched.Payload)
	}
	if payload.Record.AnimalID != "cow-7" {
		t.Fatalf("unexpected animal id %q", payload.Record.AnimalID)
	}
}

func TestEnqueuePreservesCallerOptimisticID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item, err := store.Enqueue(context.Background(), queue.EnqueueRequest{
		Payload:      queue.BulkFeedPayload{FarmID: "farm-1"},
		OptimisticID: "ui-123",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if item.OptimisticID != "ui-123" {
		t.Fatalf("expected optimistic id preserved, got %q", item.OptimisticID)
	}
}

func TestEnqueueEvictsOldestAtCapacity(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxQueueItems(3))
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var first *queue.Item
	for i := 0; i < 3; i++ {
		item := testsupport.EnqueueMilk(t, store, "farm-1", fmt.Sprintf("cow-%d", i))
		if first == nil {
			first = item
		}
	}

	// The oldest item is evicted even when it is mid-flight.
	if err := store.SetStatus(ctx, first.ID, queue.StatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	newest := testsupport.EnqueueMilk(t, store, "farm-1", "cow-new")

	items, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected capacity held at 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item.ID == first.ID {
			t.Fatal("expected oldest item to be evicted")
		}
	}
	found := false
	for _, item := range items {
		if item.ID == newest.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected newest item to be present after eviction")
	}
}

func TestSetStatusStampsProcessedAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueMilk(t, store, "farm-1", "cow-1")

	if err := store.SetStatus(ctx, item.ID, queue.StatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
	if updated.ProcessedAt == nil {
		t.Fatal("expected processed_at to be stamped")
	}
}

func TestSetStatusMissingIDIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.SetStatus(context.Background(), 9999, queue.StatusFailed, "boom"); err != nil {
		t.Fatalf("expected silent no-op for unknown id, got %v", err)
	}
}

func TestIncrementRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueMilk(t, store, "farm-1", "cow-1")

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementRetries(ctx, item.ID)
		if err != nil {
			t.Fatalf("IncrementRetries: %v", err)
		}
		if got != want {
			t.Fatalf("expected retries %d, got %d", want, got)
		}
	}

	got, err := store.IncrementRetries(ctx, 9999)
	if err != nil {
		t.Fatalf("IncrementRetries unknown id: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 for unknown id, got %d", got)
	}
}

func TestResetForRetryClearsFailureState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.EnqueueMilk(t, store, "farm-1", "cow-1")
	if _, err := store.IncrementRetries(ctx, item.ID); err != nil {
		t.Fatalf("IncrementRetries: %v", err)
	}
	if err := store.SetStatus(ctx, item.ID, queue.StatusFailed, "network unreachable"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if err := store.ResetForRetry(ctx, item.ID); err != nil {
		t.Fatalf("ResetForRetry: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if updated.Retries != 0 {
		t.Fatalf("expected retries reset, got %d", updated.Retries)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", updated.ErrorMessage)
	}
}

func TestResetAllFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.EnqueueMilk(t, store, "farm-1", "cow-a")
	b := testsupport.EnqueueMilk(t, store, "farm-1", "cow-b")
	testsupport.EnqueueMilk(t, store, "farm-1", "cow-c")

	for _, id := range []int64{a.ID, b.ID} {
		if _, err := store.IncrementRetries(ctx, id); err != nil {
			t.Fatalf("IncrementRetries: %v", err)
		}
		if err := store.SetStatus(ctx, id, queue.StatusFailed, "timeout"); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}

	count, err := store.ResetAllFailed(ctx)
	if err != nil {
		t.Fatalf("ResetAllFailed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 items reset, got %d", count)
	}

	items, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	for _, item := range items {
		if item.Status != queue.StatusPending {
			t.Fatalf("item %d: expected pending, got %s", item.ID, item.Status)
		}
		if item.Retries != 0 {
			t.Fatalf("item %d: expected retries 0, got %d", item.ID, item.Retries)
		}
		if item.ErrorMessage != "" {
			t.Fatalf("item %d: expected error cleared, got %q", item.ID, item.ErrorMessage)
		}
	}
}

func TestClearCompleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done := testsupport.EnqueueMilk(t, store, "farm-1", "cow-done")
	testsupport.EnqueueMilk(t, store, "farm-1", "cow-pending")
	if err := store.SetStatus(ctx, done.ID, queue.StatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	count, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one item cleared, got %d", count)
	}

	pending, err := store.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if pending != 1 {
		t.Fatalf("expected one pending item to survive, got %d", pending)
	}
}

func TestUpdatePayloadShallowMerge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.Enqueue(ctx, queue.EnqueueRequest{
		Payload: queue.VoiceActivityPayload{
			FarmID:   "farm-1",
			ClientID: "client-1",
			AudioRef: "audio/rec-1.m4a",
		},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := store.UpdatePayload(ctx, item.ID, map[string]any{"animal_id": "goat-3"}); err != nil {
		t.Fatalf("UpdatePayload: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	payload := updated.Payload.(queue.VoiceActivityPayload)
	if payload.AnimalID != "goat-3" {
		t.Fatalf("expected merged animal id, got %q", payload.AnimalID)
	}
	if payload.AudioRef != "audio/rec-1.m4a" {
		t.Fatalf("expected audio ref untouched, got %q", payload.AudioRef)
	}

	if err := store.UpdatePayload(ctx, 9999, map[string]any{"x": 1}); err != nil {
		t.Fatalf("expected silent no-op for unknown id, got %v", err)
	}
}

func TestTranscriptionConfirmationFlow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.Enqueue(ctx, queue.EnqueueRequest{
		Payload: queue.VoiceActivityPayload{
			FarmID:   "farm-1",
			ClientID: "client-1",
			AudioRef: "audio/rec-2.m4a",
		},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := store.IncrementRetries(ctx, item.ID); err != nil {
		t.Fatalf("IncrementRetries: %v", err)
	}

	if err := store.SetAwaitingConfirmation(ctx, item.ID, "pinakain ang kambing"); err != nil {
		t.Fatalf("SetAwaitingConfirmation: %v", err)
	}

	waiting, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if waiting.Status != queue.StatusAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation, got %s", waiting.Status)
	}
	if waiting.Retries != 0 {
		t.Fatalf("expected retries reset, got %d", waiting.Retries)
	}
	draft := waiting.Payload.(queue.VoiceActivityPayload)
	if draft.Transcription != "pinakain ang kambing" {
		t.Fatalf("expected draft transcription stored, got %q", draft.Transcription)
	}
	if draft.TranscriptionConfirmed {
		t.Fatal("expected draft to be unconfirmed")
	}

	if err := store.ConfirmTranscription(ctx, item.ID, "pinakain ang kambing ng dayami"); err != nil {
		t.Fatalf("ConfirmTranscription: %v", err)
	}

	confirmed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if confirmed.Status != queue.StatusPending {
		t.Fatalf("expected pending after confirmation, got %s", confirmed.Status)
	}
	payload := confirmed.Payload.(queue.VoiceActivityPayload)
	if !payload.TranscriptionConfirmed {
		t.Fatal("expected transcription marked confirmed")
	}
	if payload.Transcription != "pinakain ang kambing ng dayami" {
		t.Fatalf("expected confirmed text stored, got %q", payload.Transcription)
	}
}

func TestListPendingReturnsCreationOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		item := testsupport.EnqueueMilk(t, store, "farm-1", fmt.Sprintf("cow-%d", i))
		ids = append(ids, item.ID)
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending items, got %d", len(pending))
	}
	for i, item := range pending {
		if item.ID != ids[i] {
			t.Fatalf("expected creation order, got %v", pending)
		}
	}
}

func TestHealthAggregatesStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.EnqueueMilk(t, store, "farm-1", "cow-a")
	testsupport.EnqueueMilk(t, store, "farm-1", "cow-b")
	if err := store.SetStatus(ctx, a.ID, queue.StatusFailed, "boom"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}
