package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  bot_username: "@PlaceAndPlayBot"
upstream:
  base_url: "https://api.example.com/PlaceAndPlay/api/"
  timeout: 5s
rate_limit:
  sweep_schedule: "@every 10m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll || cfg.Telegram.DeliveryTimeout != 10*time.Second {
		t.Errorf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Telegram.BotUsername != "PlaceAndPlayBot" {
		t.Errorf("bot username = %q", cfg.Telegram.BotUsername)
	}
	if cfg.Upstream.BaseURL != "https://api.example.com/PlaceAndPlay/api" || cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("upstream = %+v", cfg.Upstream)
	}
	if cfg.RateLimit.MaxAttempts != 5 || cfg.RateLimit.Window() != 600*time.Second {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.SweepSchedule != "@every 10m" {
		t.Errorf("sweep = %q", cfg.RateLimit.SweepSchedule)
	}
	if cfg.Support.Username != "@abramov_1" || cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("support/logging = %+v %+v", cfg.Support, cfg.Logging)
	}
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe: %v", err)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-yaml"
upstream:
  base_url: "https://yaml.example.com"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("PLACE_AND_PLAY_API_BASE_URL", "https://env.example.com")
	t.Setenv("PLACE_AND_PLAY_LOGIN_EMAIL", "bot@example.com")
	t.Setenv("PLACE_AND_PLAY_LOGIN_PASSWORD", "pw")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/verify")
	t.Setenv("API_KEY_HASH", "$2a$10$abc")
	t.Setenv("TELEGRAM_ADMIN_IDS", "1,2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Upstream.BaseURL != "https://env.example.com" || cfg.Upstream.LoginEmail != "bot@example.com" || cfg.Upstream.LoginPassword != "pw" {
		t.Errorf("upstream = %+v", cfg.Upstream)
	}
	if cfg.Session.Secret != "s3cret" {
		t.Errorf("secret = %q", cfg.Session.Secret)
	}
	if cfg.Database.URL != "postgres://localhost/verify" || cfg.API.KeyHash != "$2a$10$abc" {
		t.Errorf("database/api = %+v %+v", cfg.Database, cfg.API)
	}
	if !cfg.IsAdmin(2) || cfg.IsAdmin(3) {
		t.Errorf("admins = %v", cfg.Telegram.AdminIDs)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("PLACE_AND_PLAY_API_BASE_URL", "http://localhost:8080/api")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("ValidateServe without token should fail")
	}
}

func TestNormalizeErrors(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Upstream.BaseURL = "https://api.example.com"
		return c
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no base url", func(c *Config) { c.Upstream.BaseURL = "" }, "base_url is required"},
		{"bad scheme", func(c *Config) { c.Upstream.BaseURL = "ftp://x" }, "http(s)"},
		{"bad run mode", func(c *Config) { c.Telegram.RunMode = "push" }, "invalid telegram.run_mode"},
		{"webhook without url", func(c *Config) { c.Telegram.RunMode = "webhook" }, "webhook.url"},
		{"bad webhook secret", func(c *Config) {
			c.Telegram.RunMode = "webhook"
			c.Webhook.URL = "https://verify.example.com/telegram/webhook"
			c.Webhook.SecretToken = "not allowed!"
		}, "webhook.secret_token"},
		{"negative attempts", func(c *Config) { c.RateLimit.MaxAttempts = -1 }, "rate_limit"},
		{"alerts without host", func(c *Config) { c.Alerts.Enabled = true }, "alerts.smtp_host"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			err := Normalize(c)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestNormalizeRunModeAlias(t *testing.T) {
	c := &Config{}
	c.Upstream.BaseURL = "https://api.example.com"
	c.Telegram.RunMode = " Polling "
	c.Webhook.Path = "hook"
	if err := Normalize(c); err != nil {
		t.Fatal(err)
	}
	if c.Telegram.RunMode != RunModeLongpoll || c.Webhook.Path != "/hook" {
		t.Fatalf("run mode %q path %q", c.Telegram.RunMode, c.Webhook.Path)
	}
}

func TestAddr(t *testing.T) {
	c := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 9000}}
	if got := c.Addr(); got != "127.0.0.1:9000" {
		t.Fatalf("Addr = %q", got)
	}
}
