package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	OpenAIKey         string
	OpenAIEndpoint    string
	OpenAIModel       string
	ExportDir         string
	Port              string
	LogLevel          string
	Env               string
	CompletionTimeout time.Duration
}

// Load reads configuration from the environment, providing sensible defaults.
func Load() (Config, error) {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_API_ENDPOINT", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("EXPORT_DIR", ".")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("COMPLETION_TIMEOUT", 2*time.Minute)
	// Empty variables count as unset, so defaults still apply.
	v.AutomaticEnv()

	cfg := Config{
		OpenAIKey:         v.GetString("OPENAI_API_KEY"),
		OpenAIEndpoint:    v.GetString("OPENAI_API_ENDPOINT"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		ExportDir:         v.GetString("EXPORT_DIR"),
		Port:              v.GetString("PORT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		Env:               v.GetString("APP_ENV"),
		CompletionTimeout: v.GetDuration("COMPLETION_TIMEOUT"),
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = 2 * time.Minute
	}

	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure export dir %s: %w", cfg.ExportDir, err)
	}

	return cfg, nil
}
