// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	MessageLimit   int
	RequestTimeout time.Duration
	Gemini         GeminiConfig
	Qdrant         QdrantConfig
}

// GeminiConfig holds generation and embedding backend settings. An empty
// APIKey disables AI features; the server still serves history and clear.
type GeminiConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
}

// QdrantConfig holds vector store connection settings.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	UseTLS     bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	timeout := getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)
	if timeout <= 0 {
		timeout = 10
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/coach.db"),
		MessageLimit:   getEnvInt("MESSAGE_LIMIT", 10),
		RequestTimeout: time.Duration(timeout) * time.Second,
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
		},
		Qdrant: QdrantConfig{
			Host:       getEnv("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "coaching_scenarios"),
			UseTLS:     getEnvBool("QDRANT_USE_TLS", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MessageLimit <= 0 {
		return fmt.Errorf("MESSAGE_LIMIT must be > 0")
	}
	if c.Gemini.APIKey != "" && c.Qdrant.Collection == "" {
		return fmt.Errorf("QDRANT_COLLECTION cannot be empty when AI is enabled")
	}
	return nil
}

// AIEnabled returns true if the generation backend is configured.
func (c *Config) AIEnabled() bool {
	return c.Gemini.APIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
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
