package config

const (
	defaultDataDir          = "~/.local/share/garland"
	defaultLogDir           = "~/.local/share/garland/logs"
	defaultPlanDir          = "~/.local/share/garland/plans"
	defaultTMDBBaseURL      = "https://api.themoviedb.org/3"
	defaultTMDBLanguage     = "en-US"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultConcurrency      = 3
	defaultRequestTimeout   = 10
	defaultSearchCacheTTL   = 300
	defaultRateLimitRetries = 3

	maxImportConcurrency = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			PlanDir: defaultPlanDir,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		Import: Import{
			Concurrency:      defaultConcurrency,
			RequestTimeout:   defaultRequestTimeout,
			SearchCacheTTL:   defaultSearchCacheTTL,
			RateLimitRetries: defaultRateLimitRetries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
