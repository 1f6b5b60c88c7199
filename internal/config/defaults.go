package config

const (
	defaultDataDir          = "~/.local/share/facegate"
	defaultLogDir           = "~/.local/share/facegate/logs"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14

	defaultBackendRequestTimeout = 5
	defaultBackendHealthTimeout  = 3

	defaultVisionCommand      = "facegate-vision"
	defaultVisionMaxFaces     = 5
	defaultVisionRestartPause = 3

	defaultVerifyWindow         = 3
	defaultVerifyQuorum         = 2
	defaultRecognitionThreshold = 0.80
	defaultVerifyTimeoutSeconds = 2.0
	defaultTrackExpirySeconds   = 1.5

	defaultInUntil         = "13:00"
	defaultCooldownSeconds = 14400
	defaultGreetingIn      = "Welcome, %s!"
	defaultGreetingOut     = "Goodbye, %s!"
	defaultUnknownText     = "Face not recognized"

	defaultSyncInterval       = 15
	defaultSyncMaxAttempts    = 8
	defaultBackoffBaseSeconds = 2
	defaultBackoffCapSeconds  = 60
	defaultSyncRetentionDays  = 7
	defaultStallThreshold     = 50

	defaultOnlineProbeSeconds  = 30
	defaultOfflineProbeSeconds = 5
	defaultProbeTimeoutSeconds = 3

	defaultAPIBind = "127.0.0.1:7410"

	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Backend: Backend{
			RequestTimeoutSeconds: defaultBackendRequestTimeout,
			HealthTimeoutSeconds:  defaultBackendHealthTimeout,
		},
		Vision: Vision{
			Command:             defaultVisionCommand,
			MaxFaces:            defaultVisionMaxFaces,
			RestartPauseSeconds: defaultVisionRestartPause,
		},
		Tracker: Tracker{
			VerifyWindow:         defaultVerifyWindow,
			VerifyQuorum:         defaultVerifyQuorum,
			RecognitionThreshold: defaultRecognitionThreshold,
			VerifyTimeoutSeconds: defaultVerifyTimeoutSeconds,
			TrackExpirySeconds:   defaultTrackExpirySeconds,
		},
		Attendance: Attendance{
			InUntil:         defaultInUntil,
			CooldownSeconds: defaultCooldownSeconds,
			GreetingIn:      defaultGreetingIn,
			GreetingOut:     defaultGreetingOut,
			UnknownText:     defaultUnknownText,
		},
		Sync: Sync{
			IntervalSeconds:    defaultSyncInterval,
			MaxAttempts:        defaultSyncMaxAttempts,
			BackoffBaseSeconds: defaultBackoffBaseSeconds,
			BackoffCapSeconds:  defaultBackoffCapSeconds,
			RetentionDays:      defaultSyncRetentionDays,
			StallThreshold:     defaultStallThreshold,
		},
		Connectivity: Connectivity{
			OnlineProbeSeconds:  defaultOnlineProbeSeconds,
			OfflineProbeSeconds: defaultOfflineProbeSeconds,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		API: API{
			Enabled: true,
			Bind:    defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Lifecycle:      true,
			Rejections:     true,
			SyncStalled:    true,
			Camera:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
