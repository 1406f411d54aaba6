package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal time.Duration
		expected   time.Duration
	}{
		{"parses duration", "TEST_DUR_1", "90s", time.Minute, 90 * time.Second},
		{"uses default for empty", "TEST_DUR_2", "", time.Minute, time.Minute},
		{"uses default for invalid", "TEST_DUR_3", "soon", time.Minute, time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			result := getEnvAsDurationOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, result)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_TYPE", "COMPLETION_PROVIDER", "COMPLETION_TIMEOUT", "OPENAI_API_KEY", "MESSAGE_RATE_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %q", cfg.Port)
	}
	if cfg.StorageType != "memory" {
		t.Errorf("Expected memory storage, got %q", cfg.StorageType)
	}
	if cfg.CompletionProvider != "openai" {
		t.Errorf("Expected openai provider, got %q", cfg.CompletionProvider)
	}
	if cfg.CompletionTimeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %s", cfg.CompletionTimeout)
	}
	if cfg.MessageRateLimit != 0 {
		t.Errorf("Expected message rate limit disabled by default, got %d", cfg.MessageRateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "")

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when DATABASE_URL is missing for postgres storage")
		}
	}()
	Load()
}

func TestValidate_RejectsUnknownNames(t *testing.T) {
	cfg := &Config{StorageType: "mongo", CompletionProvider: "openai"}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown storage type")
	}

	cfg = &Config{StorageType: "sqlite", CompletionProvider: "llama"}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown completion provider")
	}
}

func TestProviderOptions_SelectsCredential(t *testing.T) {
	cfg := &Config{
		CompletionProvider:  "gemini",
		OpenAIAPIKey:        "sk-openai",
		GeminiAPIKey:        "gemini-key",
		AnthropicAPIKey:     "anthropic-key",
		CompletionModel:     "gemini-2.5-pro",
		CompletionMaxTokens: 1024,
	}

	opts := cfg.ProviderOptions()
	if opts.Name != "gemini" || opts.APIKey != "gemini-key" {
		t.Errorf("Expected gemini credentials, got %+v", opts)
	}
	if opts.Model != "gemini-2.5-pro" || opts.MaxTokens != 1024 {
		t.Errorf("Unexpected model settings: %+v", opts)
	}

	cfg.CompletionProvider = "anthropic"
	if got := cfg.ProviderOptions().APIKey; got != "anthropic-key" {
		t.Errorf("Expected anthropic key, got %q", got)
	}
}

func TestLoad_MessageRateLimitOptIn(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("MESSAGE_RATE_LIMIT", "20")

	cfg := Load()
	if cfg.MessageRateLimit != 20 {
		t.Errorf("Expected message rate limit 20, got %d", cfg.MessageRateLimit)
	}
}
