package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Допустимый алфавит secret_token в setWebhook.
var webhookSecretRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

type ServerConfig struct {
	Host string `yaml:"host" envconfig:"HOST"`
	Port int    `yaml:"port" envconfig:"PORT"`
}

// TelegramConfig: бот и доставка сообщений. Токен: TELEGRAM_BOT_TOKEN.
type TelegramConfig struct {
	Token                  string        `yaml:"token" envconfig:"BOT_TOKEN"`
	BotUsername            string        `yaml:"bot_username" envconfig:"BOT_USERNAME"`
	RunMode                string        `yaml:"run_mode" envconfig:"RUN_MODE"`
	LongPollTimeoutSeconds int           `yaml:"longpoll_timeout_seconds"`
	DeliveryTimeout        time.Duration `yaml:"delivery_timeout"`
	// Banner: URL или путь к картинке, отправляемой перед кодом.
	Banner   string  `yaml:"banner" envconfig:"BANNER"`
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"ADMIN_IDS"`
	Debug    bool    `yaml:"debug"`
}

type WebhookConfig struct {
	URL  string `yaml:"url" envconfig:"URL"`
	Path string `yaml:"path"`
	// SecretToken: ожидаемое значение X-Telegram-Bot-Api-Secret-Token.
	// Пусто: генерируется при запуске и передаётся в setWebhook.
	SecretToken string `yaml:"secret_token" envconfig:"SECRET_TOKEN"`
}

// UpstreamConfig: API Place&Play. Переменные PLACE_AND_PLAY_*.
type UpstreamConfig struct {
	BaseURL       string        `yaml:"base_url" envconfig:"API_BASE_URL"`
	LoginEmail    string        `yaml:"login_email" envconfig:"LOGIN_EMAIL"`
	LoginPassword string        `yaml:"login_password" envconfig:"LOGIN_PASSWORD"`
	LoginLanguage string        `yaml:"login_language"`
	CodeLanguage  string        `yaml:"code_language"`
	Timeout       time.Duration `yaml:"timeout"`
}

// SessionConfig: секрет подписи ссылок (JWT_SECRET). Если пусто, случайный на время процесса.
type SessionConfig struct {
	Secret string `yaml:"secret" envconfig:"SECRET"`
}

type RateLimitConfig struct {
	MaxAttempts   int `yaml:"max_attempts"`
	WindowSeconds int `yaml:"window_seconds"`
	// SweepSchedule: cron-выражение очистки пустых окон; пусто, не чистим.
	SweepSchedule string `yaml:"sweep_schedule"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// DatabaseConfig: журнал верификаций. Без URL журнал хранится в памяти.
type DatabaseConfig struct {
	URL             string `yaml:"url" envconfig:"URL"`
	JournalCapacity int    `yaml:"journal_capacity"`
}

type AlertsConfig struct {
	Enabled      bool     `yaml:"enabled"`
	SMTPHost     string   `yaml:"smtp_host" envconfig:"SMTP_HOST"`
	SMTPPort     int      `yaml:"smtp_port" envconfig:"SMTP_PORT"`
	SMTPUser     string   `yaml:"smtp_user" envconfig:"SMTP_USER"`
	SMTPPassword string   `yaml:"smtp_password" envconfig:"SMTP_PASSWORD"`
	From         string   `yaml:"from"`
	To           []string `yaml:"to"`
	QueueSize    int      `yaml:"queue_size"`
}

// APIConfig: защита /api/v1. KeyHash, bcrypt-хэш ключа (API_KEY_HASH).
type APIConfig struct {
	KeyHash string `yaml:"key_hash" envconfig:"KEY_HASH"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

type SupportConfig struct {
	Username string `yaml:"username"`
	AppName  string `yaml:"app_name"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Upstream  UpstreamConfig  `yaml:"upstream" envconfig:"PLACE_AND_PLAY"`
	Session   SessionConfig   `yaml:"session" envconfig:"JWT"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Support   SupportConfig   `yaml:"support"`
}

// Load читает YAML (если файл есть) и накладывает переменные окружения.
// Проверку делает Normalize/Validate.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// только окружение
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize проставляет значения по умолчанию и проверяет то, что нужно
// любой команде. Требования запуска сервиса: в ValidateServe.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch rm {
	case "", "polling":
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.SecretToken != "" && !webhookSecretRe.MatchString(cfg.Webhook.SecretToken) {
			return fmt.Errorf("webhook.secret_token must be 1-256 characters of A-Z, a-z, 0-9, _ and -")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	if cfg.Telegram.LongPollTimeoutSeconds == 0 {
		cfg.Telegram.LongPollTimeoutSeconds = 60
	}
	if cfg.Telegram.DeliveryTimeout <= 0 {
		cfg.Telegram.DeliveryTimeout = 10 * time.Second
	}
	cfg.Telegram.BotUsername = strings.TrimPrefix(strings.TrimSpace(cfg.Telegram.BotUsername), "@")
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = "/telegram/webhook"
	}
	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		cfg.Webhook.Path = "/" + cfg.Webhook.Path
	}

	cfg.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Upstream.BaseURL), "/")
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required (PLACE_AND_PLAY_API_BASE_URL)")
	}
	if !strings.HasPrefix(cfg.Upstream.BaseURL, "http://") && !strings.HasPrefix(cfg.Upstream.BaseURL, "https://") {
		return fmt.Errorf("upstream.base_url must be an http(s) URL, got %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Timeout <= 0 {
		cfg.Upstream.Timeout = 30 * time.Second
	}

	if cfg.RateLimit.MaxAttempts == 0 {
		cfg.RateLimit.MaxAttempts = 5
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 600
	}
	if cfg.RateLimit.MaxAttempts < 0 || cfg.RateLimit.WindowSeconds < 0 {
		return fmt.Errorf("rate_limit.max_attempts and rate_limit.window_seconds must be > 0")
	}

	if cfg.Database.JournalCapacity <= 0 {
		cfg.Database.JournalCapacity = 1000
	}

	if cfg.Alerts.Enabled {
		if cfg.Alerts.SMTPHost == "" || len(cfg.Alerts.To) == 0 {
			return fmt.Errorf("alerts.smtp_host and alerts.to are required when alerts are enabled")
		}
		if cfg.Alerts.SMTPPort == 0 {
			cfg.Alerts.SMTPPort = 587
		}
		if cfg.Alerts.From == "" {
			cfg.Alerts.From = cfg.Alerts.SMTPUser
		}
		if cfg.Alerts.QueueSize <= 0 {
			cfg.Alerts.QueueSize = 64
		}
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", cfg.Logging.Level)
	}
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	switch cfg.Logging.Format {
	case "":
		cfg.Logging.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q; allowed: text, json", cfg.Logging.Format)
	}

	if cfg.Support.Username == "" {
		cfg.Support.Username = "@abramov_1"
	}
	if !strings.HasPrefix(cfg.Support.Username, "@") {
		cfg.Support.Username = "@" + cfg.Support.Username
	}
	if cfg.Support.AppName == "" {
		cfg.Support.AppName = "Place&Play"
	}
	return nil
}

// ValidateServe: то, без чего нельзя запускать бота.
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required (TELEGRAM_BOT_TOKEN)")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
