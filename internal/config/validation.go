package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails on empty tags or nil funcs
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if _, err := cronParser.Parse(cfg.DataIngestion.Schedule.CardSync); err != nil {
		return fmt.Errorf("invalid card_sync schedule: %w", err)
	}
	if _, err := cronParser.Parse(cfg.DataIngestion.Schedule.ResultsSync); err != nil {
		return fmt.Errorf("invalid results_sync schedule: %w", err)
	}

	enabled := 0
	for _, s := range cfg.DataIngestion.Sources {
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one data source must be enabled")
	}

	ports := map[int]string{cfg.API.Port: "api"}
	for name, port := range map[string]int{"health": cfg.Health.Port, "metrics": cfg.Metrics.Port} {
		if other, ok := ports[port]; ok {
			return fmt.Errorf("%s port %d conflicts with %s port", name, port, other)
		}
		ports[port] = name
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()

		switch tag {
		case "required", "required_if", "required_with":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "min", "gt", "gte":
			fmt.Fprintf(&b, "- Field '%s' must be at least %s\n", field, fieldError.Param())
		case "max", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' must be at most %s\n", field, fieldError.Param())
		case "oneof", "environment", "loglevel":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, fieldError.Value())
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}

// ValidateEnvironment validates environment-specific requirements
func ValidateEnvironment(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
		}
		for _, s := range cfg.DataIngestion.Sources {
			if s.Enabled && isTestCredential(s.APIKey) {
				return fmt.Errorf("production environment should not use test credentials for source %s", s.Name)
			}
		}
	}

	return nil
}

var testCredentialPattern = regexp.MustCompile(`(?i)test|demo|example|placeholder|YOUR_`)

// isTestCredential checks if a credential looks like a test credential
func isTestCredential(credential string) bool {
	return testCredentialPattern.MatchString(credential)
}
