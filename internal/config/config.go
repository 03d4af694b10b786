// Package config loads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Settings is the complete process configuration.
type Settings struct {
	Storage  StorageSettings
	Registry RegistrySettings
	Server   ServerSettings
	Logging  LoggingSettings
}

// StorageSettings selects and configures the blob store.
type StorageSettings struct {
	Backend          string `validate:"required,oneof=local azure memory"`
	LocalRoot        string `validate:"required_if=Backend local"`
	ConnectionString string
	AccountURL       string `validate:"omitempty,url"`
	Container        string `validate:"required_if=Backend azure"`
	CreateContainer  bool
	RateLimit        float64 `validate:"gte=0"`
	RateBurst        int     `validate:"gte=1"`
	MaxRetries       int     `validate:"gte=0,lte=10"`
	Timeout          time.Duration
}

// RegistrySettings selects where the model registry keeps its index.
type RegistrySettings struct {
	Backend     string `validate:"required,oneof=blob postgres"`
	DatabaseURL string `validate:"required_if=Backend postgres"`
}

// ServerSettings configures the HTTP service.
type ServerSettings struct {
	Addr        string `validate:"required"`
	MetricsAddr string
}

// LoggingSettings configures the default slog logger.
type LoggingSettings struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads settings from the environment. When envFile is non-empty it
// is loaded first without overriding variables already set; a missing
// default .env file is not an error.
func Load(envFile string) (*Settings, error) {
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	s := &Settings{
		Storage: StorageSettings{
			Backend:          strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", "local")),
			LocalRoot:        getEnvOrDefault("LOCAL_STORAGE_ROOT", "./artifacts"),
			ConnectionString: os.Getenv("AZURE_STORAGE_CONNECTION_STRING"),
			AccountURL:       os.Getenv("AZURE_STORAGE_ACCOUNT_URL"),
			Container:        os.Getenv("AZURE_STORAGE_CONTAINER_NAME"),
			CreateContainer:  getEnvBoolOrDefault("AZURE_STORAGE_CREATE_CONTAINER", false),
			RateLimit:        getEnvFloatOrDefault("STORAGE_RATE_LIMIT", 50),
			RateBurst:        getEnvIntOrDefault("STORAGE_RATE_BURST", 10),
			MaxRetries:       getEnvIntOrDefault("STORAGE_MAX_RETRIES", 3),
			Timeout:          getEnvDurationOrDefault("STORAGE_TIMEOUT", 30*time.Second),
		},
		Registry: RegistrySettings{
			Backend:     strings.ToLower(getEnvOrDefault("REGISTRY_BACKEND", "blob")),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerSettings{
			Addr:        getEnvOrDefault("HTTP_ADDR", ":8080"),
			MetricsAddr: os.Getenv("METRICS_ADDR"),
		},
		Logging: LoggingSettings{
			Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
		},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks field constraints and the cross-field rules validator
// tags cannot express.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return ports.NewConfigError(envName(verrs[0].StructNamespace()), err)
		}
		return ports.NewConfigError("settings", err)
	}
	if s.Storage.Backend == "azure" && s.Storage.ConnectionString == "" && s.Storage.AccountURL == "" {
		return ports.NewConfigError("AZURE_STORAGE_CONNECTION_STRING",
			fmt.Errorf("azure storage needs a connection string or an account url: %w", ports.ErrConfigNotFound))
	}
	return nil
}

var envNames = map[string]string{
	"Settings.Storage.Backend":      "STORAGE_BACKEND",
	"Settings.Storage.LocalRoot":    "LOCAL_STORAGE_ROOT",
	"Settings.Storage.AccountURL":   "AZURE_STORAGE_ACCOUNT_URL",
	"Settings.Storage.Container":    "AZURE_STORAGE_CONTAINER_NAME",
	"Settings.Storage.RateLimit":    "STORAGE_RATE_LIMIT",
	"Settings.Storage.RateBurst":    "STORAGE_RATE_BURST",
	"Settings.Storage.MaxRetries":   "STORAGE_MAX_RETRIES",
	"Settings.Registry.Backend":     "REGISTRY_BACKEND",
	"Settings.Registry.DatabaseURL": "DATABASE_URL",
	"Settings.Server.Addr":          "HTTP_ADDR",
	"Settings.Logging.Level":        "LOG_LEVEL",
	"Settings.Logging.Format":       "LOG_FORMAT",
}

func envName(namespace string) string {
	if name, ok := envNames[namespace]; ok {
		return name
	}
	return namespace
}

// Helper functions for environment variable parsing.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
