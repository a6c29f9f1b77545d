package config

const (
	defaultWorkDir              = "~/.local/share/whittle/work"
	defaultCaseDB               = "~/.local/share/whittle/case.db"
	defaultLogDir               = "~/.local/share/whittle/logs"
	defaultSpoolDir             = "~/.local/share/whittle/spool"
	defaultEngineTimeoutSeconds = 3600
	defaultFilterMode           = FilterOff
	defaultWorkers              = 4
	defaultStaleAfterHours      = 24
	defaultSpoolSettleSeconds   = 2
	defaultSpoolBatchSeconds    = 5
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			CaseDB:   defaultCaseDB,
			LogDir:   defaultLogDir,
			SpoolDir: defaultSpoolDir,
		},
		Engine: Engine{
			TimeoutSeconds: defaultEngineTimeoutSeconds,
			FilterMode:     defaultFilterMode,
		},
		Carving: Carving{
			Workers:         defaultWorkers,
			StaleAfterHours: defaultStaleAfterHours,
		},
		Spool: Spool{
			SettleSeconds: defaultSpoolSettleSeconds,
			BatchSeconds:  defaultSpoolBatchSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobEvents:      true,
			UnitErrors:     true,
			DeviceEvents:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
