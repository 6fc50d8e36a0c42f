package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"corral/internal/config"
	"corral/internal/queue"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = ""

[remote]
base_url = "https://farm.example.com"
farm_id = "farm-test"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append(args, "--config", configPath))
	err := cmd.Execute()
	return out.String(), err
}

func seedItem(t *testing.T, configPath string) *queue.Item {
	t.Helper()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	item, err := store.Enqueue(context.Background(), queue.EnqueueRequest{
		Payload: queue.BulkFeedPayload{FarmID: "farm-test"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return item
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "queue is empty") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueListShowsItems(t *testing.T) {
	configPath := writeTestConfig(t)
	item := seedItem(t, configPath)

	out, err := runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "bulk_feed") || !strings.Contains(out, "farm-test") {
		t.Fatalf("expected item row in output: %s", out)
	}

	out, err = runCommand(t, configPath, "queue", "list", "--status", "completed")
	if err != nil {
		t.Fatalf("queue list --status: %v", err)
	}
	if !strings.Contains(out, "queue is empty") {
		t.Fatalf("expected empty filtered listing, got: %s", out)
	}

	if _, err := runCommand(t, configPath, "queue", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to error")
	}

	_ = item
}

func TestQueueRemove(t *testing.T) {
	configPath := writeTestConfig(t)
	item := seedItem(t, configPath)

	out, err := runCommand(t, configPath, "queue", "remove", fmt.Sprint(item.ID))
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	if !strings.Contains(out, "removed") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err = runCommand(t, configPath, "queue", "remove", "9999")
	if err != nil {
		t.Fatalf("queue remove missing: %v", err)
	}
	if !strings.Contains(out, "not found") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueRetryRequiresTarget(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t, configPath, "queue", "retry"); err == nil {
		t.Fatal("expected error without id or --all")
	}

	out, err := runCommand(t, configPath, "queue", "retry", "--all")
	if err != nil {
		t.Fatalf("queue retry --all: %v", err)
	}
	if !strings.Contains(out, "reset 0 failed items") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConflictsListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "conflicts", "list")
	if err != nil {
		t.Fatalf("conflicts list: %v", err)
	}
	if !strings.Contains(out, "no unresolved conflicts") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestAlertsEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "alerts")
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if !strings.Contains(out, "no active alerts") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConfigShowPrintsTOML(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "base_url") || !strings.Contains(out, "farm-test") {
		t.Fatalf("expected rendered config, got: %s", out)
	}
}
