package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Load environment variables and handle errors

func LoadEnv() {
	err := godotenv.Load()

	if err != nil {
		Logger.Warn("Error loading .env file, will use environment variables instead:", err)
		// Don't call Fatal here - continue execution
	}
}

// applyEnv overrides file values with any environment variables that are set.
func applyEnv(cfg *Config) {
	if v := env("ASSISTANT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := env("ASSISTANT_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := env("SUPABASE_KEY"); v != "" {
		cfg.Supabase.Key = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
