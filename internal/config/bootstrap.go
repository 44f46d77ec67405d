package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadForService is the startup path shared by the binaries: an optional .env
// file, the YAML config (TRACKSIDE_CONFIG_PATH overrides configPath), the AWS
// secret overlay and validation.
func LoadForService(ctx context.Context, configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath = envPath
	}

	cfg, err := LoadWithDefaults(configPath)
	if err != nil {
		return nil, err
	}

	if err := LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := ValidateEnvironment(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
