package config

const (
	defaultDataDir            = "~/.local/share/cadastra"
	defaultLogDir             = "~/.local/share/cadastra/logs"
	defaultClaimRetryAttempts = 3
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Engine: Engine{
			ClaimRetryAttempts: defaultClaimRetryAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
