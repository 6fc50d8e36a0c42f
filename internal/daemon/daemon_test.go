package daemon_test

import (
	"context"
	"testing"
	"time"

	"corral/internal/config"
	"corral/internal/conflict"
	"corral/internal/daemon"
	"corral/internal/monitor"
	"corral/internal/queue"
	"corral/internal/remote"
	"corral/internal/syncer"
	"corral/internal/testsupport"
)

type stubAPI struct{}

func (stubAPI) InsertRecords(context.Context, string, string, []remote.Record) error { return nil }
func (stubAPI) UpdateRecord(context.Context, string, string, string, remote.Record) error {
	return nil
}
func (stubAPI) FetchRecord(context.Context, string, string, string) (remote.Record, error) {
	return nil, nil
}
func (stubAPI) Transcribe(context.Context, string, string) (string, error) { return "", nil }
func (stubAPI) Healthz(context.Context) error                              { return nil }

func newDaemon(t *testing.T, cfg *config.Config, store *queue.Store) *daemon.Daemon {
	t.Helper()

	api := stubAPI{}
	detector := conflict.NewDetector(store, api, nil)
	s := syncer.New(store, api, detector, nil, cfg, nil)
	m := monitor.New(store, cfg, nil)
	d, err := daemon.New(cfg, store, s, m, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, cfg, store)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon start to fail while lock is held")
	}
}

func TestStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d := newDaemon(t, cfg, store)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	again := newDaemon(t, cfg, store)
	if err := again.Start(context.Background()); err != nil {
		t.Fatalf("expected restart after Stop, got %v", err)
	}
	again.Stop()
}

func TestEnqueueWakesSyncLoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	// Long poll interval so only the wake trigger can explain a sync.
	cfg.Sync.PollInterval = 3600
	store := testsupport.MustOpenStore(t, cfg)

	d := newDaemon(t, cfg, store)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	// The startup pass may run first; wait for an idle queue before
	// enqueueing.
	deadline := time.Now().Add(5 * time.Second)
	item := testsupport.EnqueueMilk(t, store, "farm-1", "cow-1")
	for {
		current, err := store.GetByID(context.Background(), item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status == queue.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("item never synced; status %s", current.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStatusReportsQueueHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d := newDaemon(t, cfg, store)
	testsupport.EnqueueMilk(t, store, "farm-1", "cow-1")

	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("expected not running before Start")
	}
	if status.Queue.Pending != 1 {
		t.Fatalf("expected one pending item, got %+v", status.Queue)
	}
	if status.QueueDBPath != cfg.QueueDBPath() {
		t.Fatalf("unexpected db path %q", status.QueueDBPath)
	}
}
