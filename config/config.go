// Package config loads the AgroNix configuration from a YAML file, an
// optional .env file and AGRONIX_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agronix/logging"
)

// Model providers.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Calendar store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config is the complete application configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Crop      CropConfig      `yaml:"crop"`
	Assistant AssistantConfig `yaml:"assistant"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig selects and configures the language model.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// CalendarConfig selects the event store.
type CalendarConfig struct {
	Store string `yaml:"store"`
	DSN   string `yaml:"dsn"`
}

// CropConfig configures the snapshot cache.
type CropConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AssistantConfig configures the conversation orchestrator.
type AssistantConfig struct {
	MaxModelCalls int           `yaml:"max_model_calls"`
	ModelTimeout  time.Duration `yaml:"model_timeout"`
	CropName      string        `yaml:"crop_name"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	AddSource  bool   `yaml:"add_source"`
}

// Default returns the configuration used when nothing else is set: the mock
// model, the in-memory calendar and info level text logs.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    ProviderMock,
			Temperature: 0.7,
			MaxTokens:   1024,
		},
		Calendar: CalendarConfig{Store: StoreMemory},
		Crop:     CropConfig{CacheTTL: 300 * time.Second},
		Assistant: AssistantConfig{
			MaxModelCalls: 8,
			ModelTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadOptions configure Load.
type LoadOptions struct {
	// EnvFiles are loaded with godotenv when present. Variables already set
	// in the environment win.
	EnvFiles []string
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the env files and the environment. The result is validated.
func Load(path string, optFns ...func(o *LoadOptions)) (*Config, error) {
	opts := LoadOptions{EnvFiles: []string{".env"}}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	for _, f := range opts.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("AGRONIX_MODEL_PROVIDER", &c.Model.Provider)
	str("AGRONIX_MODEL_NAME", &c.Model.Name)
	str("AGRONIX_MODEL_BASE_URL", &c.Model.BaseURL)
	str("AGRONIX_CALENDAR_STORE", &c.Calendar.Store)
	str("AGRONIX_CALENDAR_DSN", &c.Calendar.DSN)
	str("AGRONIX_CROP_NAME", &c.Assistant.CropName)
	str("AGRONIX_LOG_LEVEL", &c.Logging.Level)
	str("AGRONIX_LOG_FORMAT", &c.Logging.Format)
	str("AGRONIX_LOG_FILE", &c.Logging.File)

	if c.Model.APIKey == "" {
		switch strings.ToLower(c.Model.Provider) {
		case ProviderOpenAI:
			str("OPENAI_API_KEY", &c.Model.APIKey)
		case ProviderAnthropic:
			str("ANTHROPIC_API_KEY", &c.Model.APIKey)
		}
	}
	str("AGRONIX_MODEL_API_KEY", &c.Model.APIKey)

	if v := strings.TrimSpace(getenv("AGRONIX_MAX_MODEL_CALLS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AGRONIX_MAX_MODEL_CALLS: %w", err)
		}
		c.Assistant.MaxModelCalls = n
	}

	for key, dst := range map[string]*time.Duration{
		"AGRONIX_MODEL_TIMEOUT": &c.Assistant.ModelTimeout,
		"AGRONIX_CACHE_TTL":     &c.Crop.CacheTTL,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	switch c.Model.Provider {
	case ProviderMock:
	case ProviderOpenAI, ProviderAnthropic:
		if c.Model.APIKey == "" {
			errs = append(errs, fmt.Errorf("model.api_key is required for provider %q", c.Model.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("model.provider %q is not one of mock, openai, anthropic", c.Model.Provider))
	}

	c.Calendar.Store = strings.ToLower(strings.TrimSpace(c.Calendar.Store))
	switch c.Calendar.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.Calendar.DSN == "" {
			errs = append(errs, errors.New("calendar.dsn is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("calendar.store %q is not one of memory, sqlite", c.Calendar.Store))
	}

	if c.Assistant.MaxModelCalls <= 0 {
		errs = append(errs, errors.New("assistant.max_model_calls must be positive"))
	}
	if c.Assistant.ModelTimeout <= 0 {
		errs = append(errs, errors.New("assistant.model_timeout must be positive"))
	}
	if c.Crop.CacheTTL <= 0 {
		errs = append(errs, errors.New("crop.cache_ttl must be positive"))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// LoggerConfig converts the logging section for logging.NewLogger.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}

	lc := &logging.LoggerConfig{
		Level:     level,
		Format:    c.Logging.Format,
		Output:    os.Stderr,
		AddSource: c.Logging.AddSource,
		Component: "agronix",
	}
	if c.Logging.File != "" {
		lc.File = &logging.FileConfig{
			Path:       c.Logging.File,
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAgeDays,
			Compress:   c.Logging.Compress,
		}
		lc.Output = nil
	}

	return lc
}
