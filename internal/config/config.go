// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Store drivers.
const (
	StoreSQLite  = "sqlite"
	StoreSurreal = "surrealdb"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       slog.Level
	LogFile        string

	StoreDriver string
	DBPath      string
	Surreal     SurrealConfig

	LLM        LLMConfig
	Transcript TranscriptConfig
}

// SurrealConfig holds SurrealDB connection settings.
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// LLMConfig selects and authenticates the model provider.
type LLMConfig struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	OllamaHost      string
}

// TranscriptConfig controls the NDJSON conversation transcript.
type TranscriptConfig struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadStore reads configuration but validates only the store settings.
// Tools that never call the model use it.
func LoadStore() (*Config, error) {
	cfg := fromEnv()
	if err := cfg.ValidateStore(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Port:           getEnv("PORT", "3000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
		LogFile:        getEnv("LOG_FILE", ""),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		DBPath:         getEnv("DB_PATH", "./data/chat.db"),
		Surreal: SurrealConfig{
			URL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
			Namespace: getEnv("SURREALDB_NAMESPACE", "chat"),
			Database:  getEnv("SURREALDB_DATABASE", "chatdb"),
			Username:  getEnv("SURREALDB_USER", "root"),
			Password:  getEnv("SURREALDB_PASS", "root"),
		},
		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			Model:           getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		},
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_ENABLED", true),
			Path:      getEnv("TRANSCRIPT_PATH", "./data/transcript.ndjson"),
			QueueSize: getEnvInt("TRANSCRIPT_QUEUE_SIZE", 256),
		},
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %s", c.LLM.Provider)
		}
	case ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %s", c.LLM.Provider)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.Transcript.Enabled {
		if c.Transcript.Path == "" {
			return fmt.Errorf("TRANSCRIPT_PATH cannot be empty")
		}
		if c.Transcript.QueueSize <= 0 {
			return fmt.Errorf("TRANSCRIPT_QUEUE_SIZE must be > 0")
		}
	}
	return nil
}

// ValidateStore checks the store selection and its connection settings.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case StoreSurreal:
		if c.Surreal.URL == "" {
			return fmt.Errorf("SURREALDB_URL cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
