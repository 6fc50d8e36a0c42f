package monitor_test

import (
	"context"
	"testing"
	"time"

	"corral/internal/monitor"
	"corral/internal/queue"
	"corral/internal/testsupport"
)

func TestCheckStuckItemsAgeRule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	old := testsupport.EnqueueMilk(t, store, "farm-1", "cow-old")
	testsupport.EnqueueMilk(t, store, "farm-1", "cow-fresh")
	testsupport.BackdateItem(t, cfg, old.ID, time.Now().Add(-2*time.Hour))

	m := monitor.New(store, cfg, nil)
	stuck, err := m.CheckStuckItems(ctx, "")
	if err != nil {
		t.Fatalf("CheckStuckItems: %v", err)
	}
	if len(stuck) != 1 {
		t.Fatalf("expected one stuck item, got %d", len(stuck))
	}
	if stuck[0].Item.ID != old.ID {
		t.Fatalf("expected the backdated item, got %d", stuck[0].Item.ID)
	}
	if stuck[0].AgeMinutes < 115 {
		t.Fatalf("expected age around 120 minutes, got %d", stuck[0].AgeMinutes)
	}
}

func TestCheckStuckItemsFailedRetriesRule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	exhausted := testsupport.EnqueueMilk(t, store, "farm-1", "cow-a")
	for i := 0; i < cfg.Queue.MaxRetries; i++ {
		if _, err := store.IncrementRetries(ctx, exhausted.ID); err != nil {
			t.Fatalf("IncrementRetries: %v", err)
		}
	}
	if err := store.SetStatus(ctx, exhausted.ID, queue.StatusFailed, "timeout"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	// A failed item below the retry cap is not stuck.
	early := testsupport.EnqueueMilk(t, store, "farm-1", "cow-b")
	if _, err := store.IncrementRetries(ctx, early.ID); err != nil {
		t.Fatalf("IncrementRetries: %v", err)
	}
	if err := store.SetStatus(ctx, early.ID, queue.StatusFailed, "timeout"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	m := monitor.New(store, cfg, nil)
	stuck, err := m.CheckStuckItems(ctx, "")
	if err != nil {
		t.Fatalf("CheckStuckItems: %v", err)
	}
	if len(stuck) != 1 || stuck[0].Item.ID != exhausted.ID {
		t.Fatalf("expected only the exhausted item, got %+v", stuck)
	}
}

func TestCheckStuckItemsFarmFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	a := testsupport.EnqueueMilk(t, store, "farm-a", "cow-1")
	b := testsupport.EnqueueMilk(t, store, "farm-b", "cow-2")
	testsupport.BackdateItem(t, cfg, a.ID, time.Now().Add(-2*time.Hour))
	testsupport.BackdateItem(t, cfg, b.ID, time.Now().Add(-2*time.Hour))

	m := monitor.New(store, cfg, nil)
	stuck, err := m.CheckStuckItems(context.Background(), "farm-a")
	if err != nil {
		t.Fatalf("CheckStuckItems: %v", err)
	}
	if len(stuck) != 1 || stuck[0].Item.FarmID != "farm-a" {
		t.Fatalf("expected only farm-a items, got %+v", stuck)
	}

	count, err := m.StuckItemsCount(context.Background())
	if err != nil {
		t.Fatalf("StuckItemsCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected global count 2, got %d", count)
	}
}

func TestGenerateSyncAlertsSeverity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	m := monitor.New(store, cfg, nil)

	alerts, err := m.GenerateSyncAlerts(ctx, "")
	if err != nil {
		t.Fatalf("GenerateSyncAlerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts on a healthy queue, got %+v", alerts)
	}

	for i := 0; i < cfg.Queue.AlertCriticalThreshold-1; i++ {
		item := testsupport.EnqueueMilk(t, store, "farm-1", "cow")
		testsupport.BackdateItem(t, cfg, item.ID, time.Now().Add(-2*time.Hour))
	}

	alerts, err = m.GenerateSyncAlerts(ctx, "")
	if err != nil {
		t.Fatalf("GenerateSyncAlerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %+v", alerts)
	}
	if alerts[0].Severity != monitor.SeverityWarning {
		t.Fatalf("expected warning below threshold, got %s", alerts[0].Severity)
	}

	item := testsupport.EnqueueMilk(t, store, "farm-1", "cow-more")
	testsupport.BackdateItem(t, cfg, item.ID, time.Now().Add(-2*time.Hour))

	alerts, err = m.GenerateSyncAlerts(ctx, "")
	if err != nil {
		t.Fatalf("GenerateSyncAlerts: %v", err)
	}
	if alerts[0].Severity != monitor.SeverityCritical {
		t.Fatalf("expected critical at threshold, got %s", alerts[0].Severity)
	}

	active, err := m.HasActiveAlerts(ctx, "")
	if err != nil {
		t.Fatalf("HasActiveAlerts: %v", err)
	}
	if !active {
		t.Fatal("expected active alerts")
	}
}

func TestGenerateSyncAlertsAggregatesErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	messages := []string{"timeout", "timeout", "bad gateway"}
	for _, msg := range messages {
		item := testsupport.EnqueueMilk(t, store, "farm-1", "cow")
		for i := 0; i < cfg.Queue.MaxRetries; i++ {
			if _, err := store.IncrementRetries(ctx, item.ID); err != nil {
				t.Fatalf("IncrementRetries: %v", err)
			}
		}
		if err := store.SetStatus(ctx, item.ID, queue.StatusFailed, msg); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
	}

	m := monitor.New(store, cfg, nil)
	alerts, err := m.GenerateSyncAlerts(ctx, "")
	if err != nil {
		t.Fatalf("GenerateSyncAlerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected stuck-count and error alerts, got %+v", alerts)
	}
	errorAlert := alerts[1]
	if errorAlert.Count != 2 {
		t.Fatalf("expected two distinct error messages, got %d", errorAlert.Count)
	}
	if errorAlert.Message != "bad gateway; timeout" {
		t.Fatalf("unexpected aggregated message %q", errorAlert.Message)
	}
}

func TestSeverityColor(t *testing.T) {
	if monitor.SeverityColor(monitor.SeverityCritical) != "red" {
		t.Fatal("expected red for critical")
	}
	if monitor.SeverityColor(monitor.SeverityWarning) != "yellow" {
		t.Fatal("expected yellow for warning")
	}
	if monitor.SeverityColor(monitor.Severity("other")) != "white" {
		t.Fatal("expected white fallback")
	}
}
