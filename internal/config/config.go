package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"

	"factures/internal/extract"
	"factures/internal/logger"
	"factures/internal/normalize"
)

type Config struct {
	// OpenAI Configuration
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float32

	// Extraction
	ExtractEngine     string // openai or documentai
	ExtractMaxRetries int
	ExtractTimeout    time.Duration

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string
	GoogleCredentialsFile      string
	GoogleCredentialsJSON      string

	// Normalization
	DefaultDueDays          int
	IBANStrictChecksum      bool
	ForceDueDateConsistency bool

	// Batch and Google Sheets Configuration
	BatchWorkers         int
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Only malformed values
// fail here; whether a key is required depends on the command, see the
// Validate* methods.
func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:              getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ExtractEngine:              strings.ToLower(getEnv("EXTRACT_ENGINE", extract.EngineOpenAI)),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", getEnv("GOOGLE_PROJECT_ID", "")),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", getEnv("GOOGLE_LOCATION", "us")),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", getEnv("GOOGLE_PROCESSOR_ID", "")),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleCredentialsFile:      getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentialsJSON:      getEnv("GOOGLE_CREDENTIALS", ""),
		DefaultDueDays:             positiveOrZero(getEnv("DEFAULT_DUE_DAYS", "")),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Factures"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.OpenAITemperature, err = getFloat32("OPENAI_TEMPERATURE", 0); err != nil {
		return nil, err
	}
	if config.ExtractMaxRetries, err = getInt("EXTRACT_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	timeoutSeconds, err := getInt("EXTRACT_TIMEOUT_SECONDS", 120)
	if err != nil {
		return nil, err
	}
	config.ExtractTimeout = time.Duration(timeoutSeconds) * time.Second
	if config.BatchWorkers, err = getInt("BATCH_WORKERS", 4); err != nil {
		return nil, err
	}
	if config.IBANStrictChecksum, err = getBool("IBAN_STRICT_CHECKSUM", false); err != nil {
		return nil, err
	}
	if config.ForceDueDateConsistency, err = getBool("DUE_DATE_FORCE_CONSISTENCY", false); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.ExtractEngine {
	case extract.EngineOpenAI, extract.EngineDocumentAI:
	default:
		return fmt.Errorf("EXTRACT_ENGINE must be %q or %q, got %q", extract.EngineOpenAI, extract.EngineDocumentAI, c.ExtractEngine)
	}
	if c.ExtractMaxRetries < 1 {
		return fmt.Errorf("EXTRACT_MAX_RETRIES must be at least 1")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

// ValidateEngine checks the keys the selected extraction engine needs.
func (c *Config) ValidateEngine(engine string) error {
	switch engine {
	case extract.EngineOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case extract.EngineDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
		}
	default:
		return fmt.Errorf("unknown extraction engine %q", engine)
	}
	return nil
}

// ValidateSheets checks the keys the Google Sheets sink needs.
func (c *Config) ValidateSheets() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS is required")
	}
	return nil
}

// NormalizeOptions returns the options for the normalization pipeline.
func (c *Config) NormalizeOptions() normalize.Options {
	return normalize.Options{
		DefaultDueDays:          c.DefaultDueDays,
		StrictIBAN:              c.IBANStrictChecksum,
		ForceDueDateConsistency: c.ForceDueDateConsistency,
	}
}

// OpenAIConfig returns the OpenAI engine configuration.
func (c *Config) OpenAIConfig() extract.OpenAIConfig {
	cfg := extract.DefaultOpenAIConfig()
	cfg.APIKey = c.OpenAIAPIKey
	cfg.BaseURL = c.OpenAIBaseURL
	cfg.Model = c.OpenAIModel
	cfg.Temperature = c.OpenAITemperature
	cfg.MaxRetries = c.ExtractMaxRetries
	return cfg
}

// DocumentAIConfig returns the Document AI engine configuration.
func (c *Config) DocumentAIConfig() extract.DocumentAIConfig {
	return extract.DocumentAIConfig{
		ProjectID:        c.GoogleCloudProject,
		Location:         c.GoogleCloudLocation,
		ProcessorID:      c.DocumentAIProcessorID,
		ProcessorVersion: c.DocumentAIProcessorVersion,
		Timeout:          c.ExtractTimeout,
	}
}

// GoogleCredentials returns the service-account JSON, read from
// GOOGLE_APPLICATION_CREDENTIALS when GOOGLE_CREDENTIALS is not set.
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	if c.GoogleCredentialsFile != "" {
		data, err := os.ReadFile(c.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, nil
	}
	return nil, nil
}

// GoogleClientOptions returns client options carrying explicit credentials.
// With none configured the Google clients fall back to application default
// credentials.
func (c *Config) GoogleClientOptions() []option.ClientOption {
	switch {
	case c.GoogleCredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.GoogleCredentialsJSON))}
	case c.GoogleCredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(c.GoogleCredentialsFile)}
	default:
		return nil
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getFloat32(key string, defaultValue float32) (float32, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return float32(f), nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}

// positiveOrZero parses DEFAULT_DUE_DAYS; anything but a positive integer
// disables the fallback.
func positiveOrZero(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
