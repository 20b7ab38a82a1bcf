package config

const (
	defaultConfigPath          = "~/.config/imgferry/config.toml"
	defaultDataDir             = "~/.local/share/imgferry"
	defaultScratchDir          = "~/.local/share/imgferry/scratch"
	defaultLogDir              = "~/.local/share/imgferry/logs"
	defaultBind                = "127.0.0.1:7630"
	defaultFetchTimeoutSeconds = 30
	defaultFetchUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultFetchMaxBytes       = 25 << 20
	defaultMaxDimension        = 1920
	defaultJPEGQuality         = 85
	defaultWebPQuality         = 85
	defaultArchiveMaxBytes     = 100 << 20
	defaultArchiveMaxEntries   = 500
	defaultCleanupDelaySeconds = 60
	defaultOrphanMaxAgeSeconds = 3600
	defaultBatchSize           = 10
	defaultBatchPauseMS        = 1000
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			Bind: defaultBind,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			UserAgent:      defaultFetchUserAgent,
			MaxBytes:       defaultFetchMaxBytes,
		},
		Normalize: Normalize{
			MaxDimension: defaultMaxDimension,
			JPEGQuality:  defaultJPEGQuality,
			WebPQuality:  defaultWebPQuality,
		},
		Archive: Archive{
			MaxBytes:            defaultArchiveMaxBytes,
			MaxEntries:          defaultArchiveMaxEntries,
			CleanupDelaySeconds: defaultCleanupDelaySeconds,
			OrphanMaxAgeSeconds: defaultOrphanMaxAgeSeconds,
		},
		Migration: Migration{
			BatchSize:    defaultBatchSize,
			BatchPauseMS: defaultBatchPauseMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
