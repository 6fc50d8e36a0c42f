package testsupport

import (
	"context"
	"testing"
	"time"

	"corral/internal/config"
	"corral/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueMilk enqueues a single-milk item for tests using the provided store.
func EnqueueMilk(t testing.TB, store *queue.Store, farmID, animalID string) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), queue.EnqueueRequest{
		Payload: queue.SingleMilkPayload{
			FarmID: farmID,
			Record: queue.MilkRecord{
				ClientID:      "client-" + animalID,
				AnimalID:      animalID,
				RecordedAt:    time.Now().UTC(),
				MorningLiters: 4.5,
				EveningLiters: 3.8,
			},
		},
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
