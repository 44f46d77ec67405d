package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/logger"
)

// Factory creates DataSource implementations based on configuration
type Factory struct {
	logger *logrus.Logger
}

// NewFactory creates a new data source factory
func NewFactory(log *logrus.Logger) *Factory {
	return &Factory{logger: logger.OrDiscard(log)}
}

// httpConfigFor applies a source's rate and timeout settings over the defaults
func httpConfigFor(cfg config.DataSourceConfig) HTTPClientConfig {
	httpCfg := DefaultHTTPClientConfig()
	if cfg.RequestsPerSecond > 0 {
		httpCfg.RateLimit = float64(cfg.RequestsPerSecond)
	}
	if cfg.TimeoutSeconds > 0 {
		httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return httpCfg
}

// NewDataSource creates a new DataSource based on the provided configuration
func (f *Factory) NewDataSource(cfg config.DataSourceConfig) (DataSource, error) {
	switch cfg.Name {
	case RacingAPISourceName:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("racing API key is required")
		}
		httpClient := NewRateLimitedHTTPClient(httpConfigFor(cfg), f.logger)
		return NewRacingAPIClient(httpClient, cfg.BaseURL, cfg.APIKey, cfg.Enabled, f.logger), nil

	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.Name)
	}
}

// NewDataSources creates all enabled data sources from configuration
func (f *Factory) NewDataSources(dataCfg config.DataIngestionConfig) ([]DataSource, error) {
	var sources []DataSource

	for _, srcCfg := range dataCfg.Sources {
		if !srcCfg.Enabled {
			f.logger.WithField("source", srcCfg.Name).Info("Skipping disabled data source")
			continue
		}

		source, err := f.NewDataSource(srcCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create data source %s: %w", srcCfg.Name, err)
		}

		sources = append(sources, source)
		f.logger.WithField("source", srcCfg.Name).Info("Created data source")
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no enabled data sources configured")
	}

	return sources, nil
}
