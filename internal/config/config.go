// Package config provides configuration management for TableTalk.
// It loads settings from environment variables with the TABLETALK_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the TableTalk application.
type Config struct {
	Server    ServerConfig
	Datastore DatastoreConfig
	LLM       LLMConfig
	Chat      ChatConfig
	Security  SecurityConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int      // Server port (default: 7380)
	Host           string   // Server host (default: 127.0.0.1)
	AllowedOrigins []string // CORS origins for the browser frontend
}

// DatastoreConfig selects and configures the tabular query backend.
type DatastoreConfig struct {
	Engine string // Query engine: sqlite, postgres (default: sqlite)
	DSN    string // Connection string / file path (default: ./data/tabletalk.db)
}

// LLMConfig contains the generative-fallback provider configuration.
type LLMConfig struct {
	Provider     string // LLM provider: ollama, openai (default: ollama)
	OllamaURL    string // Ollama API URL (default: http://localhost:11434)
	OllamaModel  string // Ollama model name (default: qwen2.5:7b)
	OpenAIAPIKey string // OpenAI API key
	OpenAIModel  string // OpenAI model name (default: gpt-4o-mini)
}

// ChatConfig contains the conversational pipeline tuning knobs.
type ChatConfig struct {
	MaxTurns     int           // Logical exchanges kept in session memory (default: 10)
	MaxRetries   int           // Generative fallback attempts (default: 3)
	RetryBackoff time.Duration // Wait between rate-limited attempts (default: 2s)
	PatternsPath string        // Optional YAML pattern library override
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the TABLETALK_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("TABLETALK_PORT", 7380),
			Host:           getEnv("TABLETALK_HOST", "127.0.0.1"),
			AllowedOrigins: []string{getEnv("TABLETALK_ALLOWED_ORIGIN", "http://localhost:3000")},
		},
		Datastore: DatastoreConfig{
			Engine: getEnv("TABLETALK_DATASTORE_ENGINE", "sqlite"),
			DSN:    getEnv("TABLETALK_DATASTORE_DSN", "./data/tabletalk.db"),
		},
		LLM: LLMConfig{
			Provider:     getEnv("TABLETALK_LLM_PROVIDER", "ollama"),
			OllamaURL:    getEnv("TABLETALK_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:  getEnv("TABLETALK_OLLAMA_MODEL", "qwen2.5:7b"),
			OpenAIAPIKey: getEnv("TABLETALK_OPENAI_API_KEY", ""),
			OpenAIModel:  getEnv("TABLETALK_OPENAI_MODEL", "gpt-4o-mini"),
		},
		Chat: ChatConfig{
			MaxTurns:     getEnvInt("TABLETALK_MAX_TURNS", 10),
			MaxRetries:   getEnvInt("TABLETALK_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("TABLETALK_RETRY_BACKOFF", 2*time.Second),
			PatternsPath: getEnv("TABLETALK_PATTERNS_PATH", ""),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("TABLETALK_SECURITY_MODE", "development"),
			APIToken:     getEnv("TABLETALK_API_TOKEN", ""),
		},
	}
	return cfg, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (e.g. "500ms", "2s")
// or returns a default value when unset or unparseable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
