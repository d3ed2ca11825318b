package config

import (
	"os"
	"strconv"

	domainconfig "blocklens/domain/config"
	"blocklens/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Environment string `validate:"required,oneof=development production test"`

	// Dataset layout
	// Directory holding the per-page network logs (one JSON file per page)
	TrafficDir string `validate:"required"`
	// JSON file mapping page keys to resource->attempt-count tables
	AttributionFile string `validate:"omitempty"`
	// JSON file with the pre-parsed list of blocked resource URLs
	BlockedFile string `validate:"required"`
	// Directory the aggregated results are written to
	ResultsDir string `validate:"required"`

	// Name of the evaluated experiment, used in the results file name
	Experiment string `validate:"required"`

	// Tree reconstruction
	DuplicatePolicy string `validate:"oneof=upper_bound lower_bound"`

	// Logging
	LogLevel string `validate:"oneof=debug info warn error"`

	// Reporting
	ProgressInterval int `validate:"gte=0,lte=100"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:      getEnv("ENVIRONMENT", "development"),
		TrafficDir:       getEnv("TRAFFIC_DIR", "./traffic"),
		AttributionFile:  getEnv("ATTRIBUTION_FILE", ""),
		BlockedFile:      getEnv("BLOCKED_FILE", "./blocked.json"),
		ResultsDir:       getEnv("RESULTS_DIR", "./results"),
		Experiment:       getEnv("EXPERIMENT", "experiment"),
		DuplicatePolicy:  getEnv("DUPLICATE_POLICY", string(domainconfig.UpperBound)),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ProgressInterval: getEnvInt("PROGRESS_INTERVAL", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	return utils.ValidateStruct(c)
}

// DomainConfig derives the reconstruction rules from the app configuration
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	cfg := domainconfig.LoadDomainConfig(domainconfig.DuplicatePolicy(c.DuplicatePolicy))
	cfg.ProgressInterval = c.ProgressInterval
	return cfg
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
