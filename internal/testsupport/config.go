package testsupport

import (
	"path/filepath"
	"testing"

	"corral/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Remote.BaseURL = "https://farm.example.com"
	cfg.Remote.FarmID = "farm-test"
	cfg.Sync.TranscriptionDelaySeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxQueueItems overrides the queue capacity on the test config.
func WithMaxQueueItems(max int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.MaxItems = max
	}
}

// WithRemoteBaseURL points the config at a test server.
func WithRemoteBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.BaseURL = url
	}
}
