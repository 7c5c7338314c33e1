// Package config loads bridge configuration from an optional YAML file,
// a .env file and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "10m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds everything the bridge needs at startup. Secrets only ever
// arrive through the environment or the config file, never source code.
type Config struct {
	TelegramToken   string   `yaml:"telegram_token"`
	WebhookBaseURL  string   `yaml:"webhook_base_url"`
	Host            string   `yaml:"host"`
	Port            string   `yaml:"port"`
	DatabasePath    string   `yaml:"database_path"`
	AccountsBaseURL string   `yaml:"accounts_base_url"`
	CRMBaseURL      string   `yaml:"crm_base_url"`
	RefreshInterval Duration `yaml:"refresh_interval"`
}

// Load assembles the configuration. A missing YAML or .env file is fine;
// a missing Telegram token is not.
func Load(yamlPath string) (*Config, error) {
	// .env is a development convenience, absence is expected in production.
	_ = godotenv.Load()

	cfg := &Config{
		Host:            "0.0.0.0",
		Port:            "3000",
		DatabasePath:    "bridge.db",
		RefreshInterval: Duration(10 * time.Minute),
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// optional file
		case err != nil:
			return nil, fmt.Errorf("read config file %s: %w", yamlPath, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", yamlPath, err)
			}
		}
	}

	applyEnv(cfg)

	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN is required")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfPresent(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setIfPresent(&cfg.WebhookBaseURL, "WEBHOOK_URL")
	setIfPresent(&cfg.Host, "HOST")
	setIfPresent(&cfg.Port, "PORT")
	setIfPresent(&cfg.DatabasePath, "DATABASE_PATH")
	setIfPresent(&cfg.AccountsBaseURL, "ZOHO_ACCOUNTS_URL")
	setIfPresent(&cfg.CRMBaseURL, "ZOHO_CRM_URL")

	if v := os.Getenv("TOKEN_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshInterval = Duration(d)
		}
	}
}

func setIfPresent(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}
