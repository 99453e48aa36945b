package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full runtime configuration: a TOML file under the state
// dir, overridden by environment variables. Secrets come only from the
// environment (or .env), never from the file.
type Config struct {
	Mode           string  `toml:"mode"`
	PrimaryModel   string  `toml:"primary_model"`
	UtilityModel   string  `toml:"utility_model"`
	UtilityBaseURL string  `toml:"utility_base_url"`
	RequestTimeout float64 `toml:"request_timeout_seconds"`
	EnableTools    bool    `toml:"enable_tools"`
	HistoryLimit   int     `toml:"history_limit"`
	MessageLimit   int     `toml:"message_limit"`
	StateDir       string  `toml:"state_dir"`

	AnthropicKey string `toml:"-"`
	OpenAIKey    string `toml:"-"`
	Source       string `toml:"-"`
}

func Default() Config {
	return Config{
		Mode:           "primary",
		PrimaryModel:   "claude-sonnet-4-20250514",
		UtilityModel:   "gpt-4o-mini",
		RequestTimeout: 120,
		EnableTools:    true,
		HistoryLimit:   20,
		MessageLimit:   4096,
	}
}

func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".homebot"
	}
	return filepath.Join(home, ".homebot")
}

func DefaultPath() string {
	return filepath.Join(DefaultStateDir(), "config.toml")
}

// Load reads the TOML file (missing is fine) and applies environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 4096
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&cfg.OpenAIKey, "OPENAI_API_KEY")
	setString(&cfg.UtilityBaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Mode, "HOMEBOT_MODE")
	setString(&cfg.PrimaryModel, "HOMEBOT_PRIMARY_MODEL")
	setString(&cfg.UtilityModel, "HOMEBOT_UTILITY_MODEL")
	setString(&cfg.StateDir, "HOMEBOT_STATE_DIR")

	if v := strings.TrimSpace(os.Getenv("HOMEBOT_ENABLE_TOOLS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableTools = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("HOMEBOT_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HOMEBOT_REQUEST_TIMEOUT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RequestTimeout = f
		}
	}
}

// RequestTimeoutDuration is the per-model-call deadline.
func (c Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout * float64(time.Second))
}

// Path helpers keep all persisted state under one directory.

func (c Config) RateLimitPath() string { return filepath.Join(c.StateDir, "rate_limits.json") }
func (c Config) FactsPath() string     { return filepath.Join(c.StateDir, "facts.jsonl") }
func (c Config) HistoryDir() string    { return filepath.Join(c.StateDir, "history") }
func (c Config) CronPath() string      { return filepath.Join(c.StateDir, "cron_jobs.json") }
func (c Config) LogPath() string       { return filepath.Join(c.StateDir, "logs", "homebot.log") }
