package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"corral/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "https://farm.example.com"
farm_id = "farm-1"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if cfg.Queue.MaxItems != 500 {
		t.Fatalf("expected default max_items 500, got %d", cfg.Queue.MaxItems)
	}
	if cfg.Queue.MaxRetries != 3 {
		t.Fatalf("expected default max_retries 3, got %d", cfg.Queue.MaxRetries)
	}
	if cfg.Sync.PollInterval != 30 {
		t.Fatalf("expected default poll_interval 30, got %d", cfg.Sync.PollInterval)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRequiresRemoteBaseURL(t *testing.T) {
	path := writeConfig(t, `
[remote]
farm_id = "farm-1"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error when remote.base_url missing")
	}
}

func TestLoadRequiresFarmID(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "https://farm.example.com"
`)

	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "farm_id") {
		t.Fatalf("expected farm_id error, got %v", err)
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := writeConfig(t, `
[remote]
base_url = "https://farm.example.com"
farm_id = "farm-1"

[logging]
format = "yaml"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	path := writeConfig(t, `
[paths]
data_dir = "~/corral-data"

[remote]
base_url = "https://farm.example.com"
farm_id = "farm-1"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.HasPrefix(cfg.Paths.DataDir, "~") {
		t.Fatalf("expected tilde expansion, got %q", cfg.Paths.DataDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	if cfg.Paths.DataDir != filepath.Join(home, "corral-data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("CORRAL_API_KEY", "env-secret")
	path := writeConfig(t, `
[remote]
base_url = "https://farm.example.com"
farm_id = "farm-1"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Remote.APIKey != "env-secret" {
		t.Fatalf("expected API key from environment, got %q", cfg.Remote.APIKey)
	}
}
