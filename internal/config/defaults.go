package config

const (
	defaultStagingDir  = "~/.local/share/forecast/staging"
	defaultOutputDir   = "~/share/198k"
	defaultScanDir     = "~/.local/share/forecast/scans"
	defaultLogDir      = "~/.local/share/forecast/logs"
	defaultTemplateWAV = "~/share/198k/anthem_template.wav"

	defaultFrequencyKHz   = 198.0
	defaultMode           = "am"
	defaultRecorderBinary = "kiwirecorder"
	defaultConnectTimeout = 7

	defaultScreenSeconds        = 8
	defaultDeepSeconds          = 20
	defaultDeepTopK             = 20
	defaultDeepRepetitions      = 2
	defaultScanWorkers          = 15
	defaultTargetCount          = 100
	defaultQualityFloorDB       = -65.0
	defaultPhaseSlackSeconds    = 30
	defaultMaxSnapshotAgeMins   = 18 * 60
	defaultMinExpectedReceivers = 5

	defaultDurationSeconds   = 15 * 60
	defaultMarginSeconds     = 60
	defaultFreshCheckSeconds = 6
	defaultMaxAttempts       = 3

	defaultSearchOffsetSeconds = 10 * 60
	defaultSearchFraction      = 0.75
	defaultLeadOffsetSeconds   = 0.0
	defaultMinPeakRatio        = 1.4
	defaultMinPeakValue        = 0.35

	defaultFadeSeconds = 10.0
	defaultTailSeconds = 2.0

	defaultPublishMaxRetries     = 3
	defaultPublishTimeoutSeconds = 120
	defaultNotifyRequestTimeout  = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:  defaultStagingDir,
			OutputDir:   defaultOutputDir,
			ScanDir:     defaultScanDir,
			LogDir:      defaultLogDir,
			TemplateWAV: defaultTemplateWAV,
		},
		Receiver: Receiver{
			FrequencyKHz: defaultFrequencyKHz,
			Mode:         defaultMode,
			SeedHosts: []string{
				"norfolk.george-smart.co.uk:8073",
				"fordham.george-smart.co.uk:8073",
				"kiwisdr.g0dub.uk:8073",
				"websdr.uk:8073",
			},
			LocationKeywords: []string{
				"United Kingdom", "England", "Scotland", "Wales",
				"Northern Ireland", "Isle of Man", "Ireland",
				"Belgium", "Netherlands", "France",
			},
			HostHints:      []string{".uk", ".ie", ".je", ".gg", ".im", ".nl", ".be", ".fr"},
			AllowedPorts:   []int{8073, 8074},
			RecorderBinary: defaultRecorderBinary,
			ConnectTimeout: defaultConnectTimeout,
		},
		Scan: Scan{
			ScreenSeconds:        defaultScreenSeconds,
			DeepSeconds:          defaultDeepSeconds,
			DeepTopK:             defaultDeepTopK,
			DeepRepetitions:      defaultDeepRepetitions,
			Workers:              defaultScanWorkers,
			TargetCount:          defaultTargetCount,
			QualityFloorDB:       defaultQualityFloorDB,
			PhaseSlackSeconds:    defaultPhaseSlackSeconds,
			MaxSnapshotAgeMins:   defaultMaxSnapshotAgeMins,
			MinExpectedReceivers: defaultMinExpectedReceivers,
		},
		Recording: Recording{
			DurationSeconds:   defaultDurationSeconds,
			MarginSeconds:     defaultMarginSeconds,
			FreshCheckSeconds: defaultFreshCheckSeconds,
			MaxAttempts:       defaultMaxAttempts,
		},
		Detection: Detection{
			SearchOffsetSeconds: defaultSearchOffsetSeconds,
			SearchFraction:      defaultSearchFraction,
			LeadOffsetSeconds:   defaultLeadOffsetSeconds,
			MinPeakRatio:        defaultMinPeakRatio,
			MinPeakValue:        defaultMinPeakValue,
		},
		Trim: Trim{
			FadeSeconds: defaultFadeSeconds,
			TailSeconds: defaultTailSeconds,
		},
		Publish: Publish{
			WriteSidecar:   true,
			MaxRetries:     defaultPublishMaxRetries,
			TimeoutSeconds: defaultPublishTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Scan:           true,
			Recording:      true,
			Review:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
