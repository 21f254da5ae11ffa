package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"hypogate/domain/experiment"
	"hypogate/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine    Engine
	Database  DatabaseConfig
	Server    ServerConfig
	Data      DataConfig
	LLM       LLMConfig
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string
	URL    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DataConfig points at the dataset catalog used by dataset access
type DataConfig struct {
	CatalogPath string
}

// LLMConfig holds generation collaborator settings. An empty BaseURL
// disables the HTTP generator.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMemory   = "memory"
)

// Load reads configuration from environment variables and validates it.
// Malformed values are reported together as one CONFIGURATION_ERROR.
func Load() (*Config, error) {
	env := &envReader{}
	def := DefaultEngine()

	cfg := &Config{
		Engine: Engine{
			Strictness: experiment.Strictness{
				RealDataMandatory:      env.getEnvBoolOrDefault("REAL_DATA_MANDATORY", false),
				SyntheticDataForbidden: env.getEnvBoolOrDefault("SYNTHETIC_DATA_FORBIDDEN", false),
			},
			AcceptThreshold:       env.getEnvFloatOrDefault("ACCEPT_THRESHOLD", def.AcceptThreshold),
			Weights:               def.Weights,
			SNRFloorDB:            env.getEnvFloatOrDefault("SNR_FLOOR_DB", def.SNRFloorDB),
			DetectabilitySpreadDB: env.getEnvFloatOrDefault("DETECTABILITY_SPREAD_DB", def.DetectabilitySpreadDB),
			ConsistencyTolerance:  env.getEnvFloatOrDefault("CONSISTENCY_TOLERANCE", def.ConsistencyTolerance),
			RetryLimit:            env.getEnvIntOrDefault("PHASE_RETRY_LIMIT", def.RetryLimit),
			MaxConcurrent:         env.getEnvIntOrDefault("MAX_CONCURRENT_EXPERIMENTS", def.MaxConcurrent),
			CollaboratorTimeout:   env.getEnvDurationOrDefault("COLLABORATOR_TIMEOUT", def.CollaboratorTimeout),
			GenerationTimeout:     env.getEnvDurationOrDefault("GENERATION_TIMEOUT", def.GenerationTimeout),
			ClassifierFloor:       env.getEnvFloatOrDefault("CLASSIFIER_CONFIDENCE_FLOOR", def.ClassifierFloor),
			MagnitudeCeiling:      def.MagnitudeCeiling,
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(env.getEnvOrDefault("DATABASE_DRIVER", DriverMemory)),
			URL:    env.getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port: env.getEnvOrDefault("PORT", "8080"),
		},
		Data: DataConfig{
			CatalogPath: env.getEnvOrDefault("DATASET_CATALOG", ""),
		},
		LLM: LLMConfig{
			BaseURL:     env.getEnvOrDefault("LLM_BASE_URL", ""),
			APIKey:      env.getEnvOrDefault("LLM_API_KEY", ""),
			Model:       env.getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:   env.getEnvIntOrDefault("LLM_MAX_TOKENS", 4000),
			Temperature: env.getEnvFloatOrDefault("LLM_TEMPERATURE", 0.7),
		},
		LogLevel:  env.getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFormat: env.getEnvOrDefault("LOG_FORMAT", "console"),
	}

	if len(env.problems) > 0 {
		return nil, errors.ConfigInvalidf("malformed environment: %s", strings.Join(env.problems, "; "))
	}
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := cfg.Engine.Validate(); err != nil {
		return err
	}
	switch cfg.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if cfg.Database.URL == "" {
			return errors.ConfigInvalidf("DATABASE_URL is required for driver %s", cfg.Database.Driver)
		}
	default:
		return errors.ConfigInvalidf("unsupported DATABASE_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.LLM.BaseURL != "" && cfg.LLM.APIKey == "" {
		return errors.ConfigInvalid("LLM_API_KEY is required when LLM_BASE_URL is set")
	}
	return nil
}

// envReader wraps the env helpers and records unparsable values.
type envReader struct {
	problems []string
}

func (r *envReader) bad(key, value string, err error) {
	r.problems = append(r.problems, fmt.Sprintf("%s=%q: %v", key, value, err))
}

// Helper functions for environment variable parsing
func (r *envReader) getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (r *envReader) getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
		r.bad(key, value, err)
	}
	return defaultValue
}

func (r *envReader) getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return floatValue
		}
		r.bad(key, value, err)
	}
	return defaultValue
}

func (r *envReader) getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
		r.bad(key, value, err)
	}
	return defaultValue
}

func (r *envReader) getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			return duration
		}
		r.bad(key, value, err)
	}
	return defaultValue
}
