package config

const (
	defaultDataDir                = "~/.local/share/corral"
	defaultLogDir                 = "~/.local/share/corral/logs"
	defaultAPIBind                = "127.0.0.1:7519"
	defaultRemoteTimeout          = 30
	defaultQueueMaxItems          = 500
	defaultQueueMaxRetries        = 3
	defaultStuckAfterMinutes      = 60
	defaultAlertCriticalThreshold = 5
	defaultPollInterval           = 30
	defaultErrorRetryInterval     = 10
	defaultTranscriptionDelay     = 2
	defaultMonitorInterval        = 300
	defaultNotifyTimeout          = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Remote: Remote{
			RequestTimeout: defaultRemoteTimeout,
		},
		Queue: Queue{
			MaxItems:               defaultQueueMaxItems,
			MaxRetries:             defaultQueueMaxRetries,
			StuckAfterMinutes:      defaultStuckAfterMinutes,
			AlertCriticalThreshold: defaultAlertCriticalThreshold,
		},
		Sync: Sync{
			PollInterval:              defaultPollInterval,
			ErrorRetryInterval:        defaultErrorRetryInterval,
			TranscriptionDelaySeconds: defaultTranscriptionDelay,
			MonitorInterval:           defaultMonitorInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			SyncSummary:    true,
			StuckItems:     true,
			Conflicts:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
