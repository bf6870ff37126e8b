package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
)

// Remote providers.
const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

// OCR fallback modes.
const (
	OCRFallbackNone   = "none"
	OCRFallbackVision = "vision"
)

type Config struct {
	// Server Configuration
	Port               int
	CORSAllowedOrigins []string

	// Remote Extraction Configuration
	UseGPT         bool
	RemoteProvider string
	OpenAIAPIKey   string
	PrimaryModel   string
	FallbackModel  string
	RemoteTimeout  time.Duration

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	OCRFallback           string

	// Usage Configuration
	UsageDBPath string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogRingSize   int
}

func Load() (*Config, error) {
	config := &Config{
		Port:                  getEnvInt("PORT", 10000),
		CORSAllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		UseGPT:                getEnvBool("USE_GPT", false),
		RemoteProvider:        strings.ToLower(getEnv("REMOTE_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		PrimaryModel:          getEnv("PRIMARY_MODEL", "gpt-4o-mini"),
		FallbackModel:         getEnv("FALLBACK_MODEL", "gpt-5-mini"),
		RemoteTimeout:         time.Duration(getEnvInt("REMOTE_TIMEOUT_SECONDS", 60)) * time.Second,
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us-central1"),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		OCRFallback:           strings.ToLower(getEnv("OCR_FALLBACK", OCRFallbackNone)),
		UsageDBPath:           getEnv("USAGE_DB_PATH", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
		LogRingSize:           getEnvInt("LOG_RING_SIZE", 200),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	switch c.RemoteProvider {
	case ProviderOpenAI, ProviderVertex:
	default:
		return fmt.Errorf("REMOTE_PROVIDER must be %q or %q", ProviderOpenAI, ProviderVertex)
	}
	switch c.OCRFallback {
	case OCRFallbackNone, OCRFallbackVision:
	default:
		return fmt.Errorf("OCR_FALLBACK must be %q or %q", OCRFallbackNone, OCRFallbackVision)
	}
	if c.PrimaryModel == "" {
		return fmt.Errorf("PRIMARY_MODEL cannot be empty")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT_SECONDS must be positive")
	}
	if c.LogRingSize <= 0 {
		return fmt.Errorf("LOG_RING_SIZE must be positive")
	}
	return nil
}

// HasRemoteCredential reports whether the selected provider has what it
// needs to authenticate. Without it the remote path is always skipped.
func (c *Config) HasRemoteCredential() bool {
	switch c.RemoteProvider {
	case ProviderVertex:
		return c.GoogleCloudProject != "" && c.GoogleCloudLocation != ""
	default:
		return c.OpenAIAPIKey != ""
	}
}

// RemoteEnabled reports whether remote completion can run at all.
func (c *Config) RemoteEnabled() bool {
	return c.UseGPT && c.HasRemoteCredential()
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		RingSize:   c.LogRingSize,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool accepts only "true" (any case) as true, matching how the
// service has always read USE_GPT.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
