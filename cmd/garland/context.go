package main

import (
	"log/slog"
	"strings"
	"sync"

	"garland/internal/catalog"
	"garland/internal/config"
	"garland/internal/importer"
	"garland/internal/logging"
	"garland/internal/services"
	"garland/internal/tmdb"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "prepare directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg)
}

// withStore opens the catalogue for the duration of one command.
func (c *commandContext) withStore(fn func(*catalog.Store) error) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) newSearcher() (tmdb.Searcher, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithTimeout(cfg.Import.RequestTimeoutDuration()),
		tmdb.WithRateLimitRetries(cfg.Import.RateLimitRetries))
	if err != nil {
		return nil, err
	}
	return importer.NewCachedSearcher(client, cfg.Import.SearchCacheTTLDuration()), nil
}

func (c *commandContext) newReconciler(store *catalog.Store, opts ...importer.Option) (*importer.Reconciler, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	searcher, err := c.newSearcher()
	if err != nil {
		return nil, err
	}
	base := []importer.Option{
		importer.WithLogger(logging.NewComponentLogger(logger, "import")),
		importer.WithConcurrency(cfg.Import.Concurrency),
	}
	return importer.NewReconciler(searcher, store, append(base, opts...)...)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
