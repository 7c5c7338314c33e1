package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "bot-token")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "3000" || cfg.Host != "0.0.0.0" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.DatabasePath != "bridge.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.RefreshInterval != Duration(10*time.Minute) {
		t.Errorf("refresh interval = %s", time.Duration(cfg.RefreshInterval))
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("addr = %q", cfg.Addr())
	}
}

func TestLoad_MissingTokenFails(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error without TELEGRAM_TOKEN")
	}
}

func TestLoad_YAMLFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	content := "telegram_token: from-yaml\nport: \"8080\"\ndatabase_path: yaml.db\nrefresh_interval: 5m\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("PORT", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TelegramToken != "from-yaml" || cfg.Port != "8080" || cfg.DatabasePath != "yaml.db" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.RefreshInterval != Duration(5*time.Minute) {
		t.Errorf("refresh interval = %s", time.Duration(cfg.RefreshInterval))
	}

	// Environment beats the file.
	t.Setenv("TELEGRAM_TOKEN", "from-env")
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_REFRESH_INTERVAL", "2m")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.TelegramToken != "from-env" || cfg.Port != "9090" {
		t.Errorf("env did not override file: %+v", cfg)
	}
	if cfg.RefreshInterval != Duration(2*time.Minute) {
		t.Errorf("refresh interval = %s", time.Duration(cfg.RefreshInterval))
	}
}

func TestLoad_BadRefreshIntervalKeepsDefault(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "bot-token")
	t.Setenv("TOKEN_REFRESH_INTERVAL", "often")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RefreshInterval != Duration(10*time.Minute) {
		t.Errorf("refresh interval = %s, want default", time.Duration(cfg.RefreshInterval))
	}
}
