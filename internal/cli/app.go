package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/gigfinder/gigfinder/internal/catalog"
	"github.com/gigfinder/gigfinder/internal/config"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/metrics"
	"github.com/gigfinder/gigfinder/internal/publish"
	"github.com/gigfinder/gigfinder/internal/search"
	"github.com/gigfinder/gigfinder/internal/skiddle"
	"github.com/gigfinder/gigfinder/internal/storage"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg       *config.Config
	store     storage.Store
	publisher publish.Publisher
	metrics   *metrics.Metrics
}

// loadConfig reads configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, errs := config.Load(flagConfig)
	if cfg == nil {
		return nil, errors.Join(errs...)
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagVerbose {
		cfg.LogLevel = string(logger.LevelDebug)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(logger.New(level, os.Stderr))
	return cfg, nil
}

// newApp loads configuration and opens the store.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var pub publish.Publisher = publish.Nop{}
	if cfg.RabbitMQURL != "" {
		rmq, err := publish.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			store.Close()
			return nil, err
		}
		pub = rmq
	}

	return &app{cfg: cfg, store: store, publisher: pub, metrics: metrics.NewMetrics()}, nil
}

// openStore opens Postgres when a database URL is configured, else the
// file store.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		logger.Debug("Opening Postgres store", nil)
		return storage.OpenPostgres(cfg.DatabaseURL, storage.DefaultPool)
	}
	logger.Debug("Opening file store", logger.Fields{"data_dir": cfg.DataDir})
	return storage.NewFile(cfg.DataDir)
}

func (a *app) searchService() *search.Service {
	var external search.ExternalSource
	if a.cfg.Skiddle.Enabled() {
		external = skiddle.NewClient(a.cfg.Skiddle.APIKey, a.cfg.Skiddle.BaseURL, a.cfg.Skiddle.Timeout)
	} else {
		logger.Info("No events API key configured, searching stored gigs only", nil)
	}
	return search.NewService(a.store, external, search.Options{
		ExternalName:    "skiddle",
		ExternalTimeout: a.cfg.Skiddle.Timeout,
		DefaultRadius:   a.cfg.Skiddle.RadiusMiles,
		FallbackImage:   a.cfg.ImageFallbackURL,
		Metrics:         a.metrics,
	})
}

func (a *app) catalogService() *catalog.Service {
	return catalog.NewService(a.store, a.publisher)
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		logger.Warn("Failed to close publisher", nil, err)
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close store", nil, err)
	}
}
