package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"chat-backend/internal/repository"
	"chat-backend/internal/services"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	StorageType string
	DatabaseURL string
	SQLitePath  string

	// Redis (optional)
	RedisURL string

	// Completion provider
	CompletionProvider    string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	GeminiAPIKey          string
	AnthropicAPIKey       string
	CompletionModel       string
	CompletionMaxTokens   int
	CompletionTimeout     time.Duration
	CompletionConcurrency int

	// Opt-in cap on message sends per client IP per minute; 0 (default) disables it
	MessageRateLimit int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		StorageType:           getEnvOrDefault("STORAGE_TYPE", repository.StorageMemory),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SQLitePath:            getEnvOrDefault("SQLITE_PATH", "./chat.db"),
		RedisURL:              os.Getenv("REDIS_URL"),
		CompletionProvider:    getEnvOrDefault("COMPLETION_PROVIDER", services.ProviderOpenAI),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey:       os.Getenv("ANTHROPIC_API_KEY"),
		CompletionModel:       os.Getenv("COMPLETION_MODEL"),
		CompletionMaxTokens:   getEnvAsIntOrDefault("COMPLETION_MAX_TOKENS", 8192),
		CompletionTimeout:     getEnvAsDurationOrDefault("COMPLETION_TIMEOUT", 60*time.Second),
		CompletionConcurrency: getEnvAsIntOrDefault("COMPLETION_CONCURRENCY", 5),
		MessageRateLimit:      getEnvAsIntOrDefault("MESSAGE_RATE_LIMIT", 0),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	if cfg.StorageType == repository.StoragePostgres {
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	}

	return cfg
}

// Validate rejects unknown storage and provider names.
func (c *Config) Validate() error {
	if err := repository.ValidStorageType(c.StorageType); err != nil {
		return err
	}
	return services.ValidProviderName(c.CompletionProvider)
}

// ProviderOptions returns the settings of the selected completion provider.
// APIKey is empty when that provider has no credential configured.
func (c *Config) ProviderOptions() services.ProviderOptions {
	opts := services.ProviderOptions{
		Name:      c.CompletionProvider,
		Model:     c.CompletionModel,
		MaxTokens: c.CompletionMaxTokens,
	}
	switch c.CompletionProvider {
	case services.ProviderOpenAI:
		opts.APIKey = c.OpenAIAPIKey
		opts.BaseURL = c.OpenAIBaseURL
	case services.ProviderGemini:
		opts.APIKey = c.GeminiAPIKey
	case services.ProviderAnthropic:
		opts.APIKey = c.AnthropicAPIKey
	}
	return opts
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
