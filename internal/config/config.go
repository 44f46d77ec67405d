// Package config provides configuration management for the Trackside services.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app" validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database" validate:"required"`
	Redis         RedisConfig         `mapstructure:"redis" validate:"required"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	API           APIConfig           `mapstructure:"api" validate:"required"`
	Tickets       TicketsConfig       `mapstructure:"tickets" validate:"required"`
	DataIngestion DataIngestionConfig `mapstructure:"data_ingestion" validate:"required"`
	Metrics       MetricsConfig       `mapstructure:"metrics" validate:"required"`
	Health        HealthConfig        `mapstructure:"health" validate:"required"`
	Secrets       SecretsConfig       `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// RedisConfig represents the redis instance carrying horse list updates
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0,lte=15"`
	Channel  string `mapstructure:"channel" validate:"required"`
}

// KafkaConfig represents the ticket submission topic. Submissions are only
// logged when Enabled is false.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic" validate:"required_if=Enabled true"`
}

// APIConfig represents the HTTP API server
type APIConfig struct {
	Port                int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds  int      `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
}

// TicketsConfig represents ticket building sessions
type TicketsConfig struct {
	SessionTTLMinutes      int `mapstructure:"session_ttl_minutes" validate:"required,gt=0"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes" validate:"required,gt=0"`
}

// DataIngestionConfig represents data ingestion configuration
type DataIngestionConfig struct {
	Sources  []DataSourceConfig `mapstructure:"sources" validate:"required,min=1,dive"`
	Schedule ScheduleConfig     `mapstructure:"schedule" validate:"required"`
}

// DataSourceConfig represents a single data source configuration
type DataSourceConfig struct {
	Name              string `mapstructure:"name" validate:"required"`
	Enabled           bool   `mapstructure:"enabled"`
	BaseURL           string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey            string `mapstructure:"api_key"`
	RequestsPerSecond int    `mapstructure:"requests_per_second" validate:"omitempty,gt=0"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" validate:"omitempty,gt=0"`
}

// ScheduleConfig represents data ingestion scheduling
type ScheduleConfig struct {
	CardSync                   string `mapstructure:"card_sync" validate:"required"`
	ResultsSync                string `mapstructure:"results_sync" validate:"required"`
	LivePollingIntervalSeconds int    `mapstructure:"live_polling_interval_seconds" validate:"required,gt=0"`
	CardDaysAhead              int    `mapstructure:"card_days_ahead" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health check server
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret
type SecretsConfig struct {
	AWSRegion  string `mapstructure:"aws_region" validate:"required_with=SecretName"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SessionTTL returns how long an untouched ticket session lives
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Tickets.SessionTTLMinutes) * time.Minute
}

// SessionCleanupInterval returns how often expired ticket sessions are purged
func (c *Config) SessionCleanupInterval() time.Duration {
	return time.Duration(c.Tickets.CleanupIntervalMinutes) * time.Minute
}

// LivePollingInterval returns the live odds polling period
func (c *Config) LivePollingInterval() time.Duration {
	return time.Duration(c.DataIngestion.Schedule.LivePollingIntervalSeconds) * time.Second
}

// Source returns the named data source configuration
func (c *Config) Source(name string) (DataSourceConfig, bool) {
	for _, s := range c.DataIngestion.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return DataSourceConfig{}, false
}
