package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type SupabaseConfig struct {
	URL string `toml:"url"`
	Key string `toml:"key"`
}

type CalendarConfig struct {
	PollIntervalSeconds    int `toml:"poll_interval_seconds"`
	ConnectTimeoutSeconds  int `toml:"connect_timeout_seconds"`
	RefreshIntervalMinutes int `toml:"refresh_interval_minutes"`
}

type Config struct {
	APIURL                string         `toml:"api_url"`
	TokenFile             string         `toml:"token_file"`
	LogLevel              string         `toml:"log_level"`
	RequestTimeoutSeconds int            `toml:"request_timeout_seconds"`
	SessionlessFallback   bool           `toml:"sessionless_fallback"`
	Calendar              CalendarConfig `toml:"calendar"`
	Supabase              SupabaseConfig `toml:"supabase"`
}

func Default() Config {
	dataDir := DefaultDataDir()
	return Config{
		APIURL:                DefaultAPIURL,
		TokenFile:             filepath.Join(dataDir, "credentials.json"),
		LogLevel:              "info",
		RequestTimeoutSeconds: int(RequestTimeout / time.Second),
		SessionlessFallback:   true,
		Calendar: CalendarConfig{
			PollIntervalSeconds:    int(CalendarPollInterval / time.Second),
			ConnectTimeoutSeconds:  int(CalendarConnectTimeout / time.Second),
			RefreshIntervalMinutes: int(MeetingsRefreshInterval / time.Minute),
		},
	}
}

// LoadOrCreate reads path, writing the defaults there first if it does not exist.
// Environment variables win over file values.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return cfg, err
		}
		out, err := toml.Marshal(cfg)
		if err != nil {
			return cfg, err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return cfg, err
		}
	case err != nil:
		return cfg, err
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.normalize()
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.TokenFile = expandPath(c.TokenFile)

	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = int(RequestTimeout / time.Second)
	}
	if c.Calendar.PollIntervalSeconds <= 0 {
		c.Calendar.PollIntervalSeconds = int(CalendarPollInterval / time.Second)
	}
	if c.Calendar.ConnectTimeoutSeconds <= 0 {
		c.Calendar.ConnectTimeoutSeconds = int(CalendarConnectTimeout / time.Second)
	}
	if c.Calendar.RefreshIntervalMinutes <= 0 {
		c.Calendar.RefreshIntervalMinutes = int(MeetingsRefreshInterval / time.Minute)
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Calendar.PollIntervalSeconds) * time.Second
}

func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Calendar.ConnectTimeoutSeconds) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Calendar.RefreshIntervalMinutes) * time.Minute
}

// DirectStore reports whether sessions should be read from Supabase instead of the API.
func (c Config) DirectStore() bool {
	return c.Supabase.URL != "" && c.Supabase.Key != ""
}

func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "agent-client")
	}
	return ".agent-client"
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
