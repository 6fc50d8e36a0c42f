package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"corral/internal/config"
	"corral/internal/queue"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	httpClient *http.Client
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withStore opens the queue database directly. Reads are always safe next to
// a running daemon; writers rely on SQLite's WAL locking.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) apiBase() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return "http://" + strings.TrimSpace(*c.apiFlag)
	}
	if cfg := c.configValue(); cfg != nil && strings.TrimSpace(cfg.Paths.APIBind) != "" {
		return "http://" + strings.TrimSpace(cfg.Paths.APIBind)
	}
	return ""
}

func (c *commandContext) getJSON(path string, out any) error {
	base := c.apiBase()
	if base == "" {
		return errors.New("daemon api address not configured")
	}
	resp, err := c.httpClient.Get(base + path)
	if err != nil {
		return wrapDialError(err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *commandContext) postJSON(path string, body, out any) error {
	base := c.apiBase()
	if base == "" {
		return errors.New("daemon api address not configured")
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	resp, err := c.httpClient.Post(base+path, "application/json", reader)
	if err != nil {
		return wrapDialError(err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// daemonReachable probes the API without surfacing connection errors;
// commands use it to pick between daemon and direct modes.
func (c *commandContext) daemonReachable() bool {
	base := c.apiBase()
	if base == "" {
		return false
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base + "/api/status")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
			return fmt.Errorf("daemon: %s", envelope.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func wrapDialError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: connection refused; start the daemon with `corrald`")
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
