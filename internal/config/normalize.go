package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRemote()
	c.normalizeQueue()
	c.normalizeSync()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeRemote() {
	if c.Remote.APIKey == "" {
		if value, ok := os.LookupEnv("CORRAL_API_KEY"); ok {
			c.Remote.APIKey = value
		}
	}
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	c.Remote.FarmID = strings.TrimSpace(c.Remote.FarmID)
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRemoteTimeout
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.MaxItems <= 0 {
		c.Queue.MaxItems = defaultQueueMaxItems
	}
	if c.Queue.MaxRetries <= 0 {
		c.Queue.MaxRetries = defaultQueueMaxRetries
	}
	if c.Queue.StuckAfterMinutes <= 0 {
		c.Queue.StuckAfterMinutes = defaultStuckAfterMinutes
	}
	if c.Queue.AlertCriticalThreshold <= 0 {
		c.Queue.AlertCriticalThreshold = defaultAlertCriticalThreshold
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = defaultPollInterval
	}
	if c.Sync.ErrorRetryInterval <= 0 {
		c.Sync.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Sync.TranscriptionDelaySeconds < 0 {
		c.Sync.TranscriptionDelaySeconds = defaultTranscriptionDelay
	}
	if c.Sync.MonitorInterval <= 0 {
		c.Sync.MonitorInterval = defaultMonitorInterval
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
