// Package config loads researchcrew settings from an optional .env file, an
// optional YAML file and environment variable overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when the selected provider has no key.
var ErrMissingAPIKey = errors.New("config: missing API key")

// Supported LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config is the complete application configuration.
type Config struct {
	LLM   LLMConfig   `yaml:"llm"`
	Web   WebConfig   `yaml:"web"`
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
	Crew  CrewConfig  `yaml:"crew"`
}

// LLMConfig selects the model provider and its generation settings.
type LLMConfig struct {
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int64   `yaml:"max_tokens"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	BaseURL         string  `yaml:"base_url"`
}

// APIKey returns the key of the selected provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

// WebConfig is the listen address of the web UI.
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (c WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig selects the report archive. An empty Path keeps reports in memory.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the log level (debug, info, warn, error) and format (text, json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CrewConfig bounds a single research run.
type CrewConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxModelCalls int           `yaml:"max_model_calls"`
	Streaming     bool          `yaml:"streaming"`
}

func defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    ProviderAnthropic,
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Web: WebConfig{
			Port: 8080,
		},
		Store: StoreConfig{
			Path: "data/researchcrew.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Crew: CrewConfig{
			Timeout:       10 * time.Minute,
			MaxModelCalls: 20,
			Streaming:     true,
		},
	}
}

// Load reads the configuration. The .env file (RESEARCHCREW_ENV_FILE, default
// ".env") and the YAML file (RESEARCHCREW_CONFIG, default
// "config/researchcrew.yaml") are both optional. Variables already present
// in the environment win over .env entries.
func Load() (*Config, error) {
	envFile := os.Getenv("RESEARCHCREW_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := defaults()

	path := os.Getenv("RESEARCHCREW_CONFIG")
	if path == "" {
		path = "config/researchcrew.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIAPIKey = v
	}
	if v := os.Getenv("RESEARCHCREW_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("RESEARCHCREW_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("RESEARCHCREW_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("RESEARCHCREW_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
	if v, ok := os.LookupEnv("RESEARCHCREW_STORE_PATH"); ok {
		cfg.Store.Path = v
	}
	if v := os.Getenv("RESEARCHCREW_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RESEARCHCREW_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// Validate checks provider, API key and numeric ranges.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.APIKey() == "" {
		return fmt.Errorf("%w for provider %s", ErrMissingAPIKey, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config: temperature %.2f out of range [0, 2]", c.LLM.Temperature)
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("config: invalid web port %d", c.Web.Port)
	}
	if c.Crew.MaxModelCalls < 0 {
		return fmt.Errorf("config: max_model_calls must not be negative")
	}
	return nil
}
