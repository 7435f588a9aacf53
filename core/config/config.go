package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN" validate:"required"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS" validate:"gte=0"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level   string `yaml:"level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format  string `yaml:"format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=json kv text pretty"`
	Dir     string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile string `yaml:"bot_file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for per-user inbound rate limiting; 0 disables it.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS" validate:"gte=0"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST" validate:"required"`
	Port           string `yaml:"port" envconfig:"DB_PORT" validate:"required,numeric"`
	User           string `yaml:"user" envconfig:"DB_USER" validate:"required"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME" validate:"required"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS" validate:"gte=0"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// ExpensesConfig points at the expense recording gRPC service.
type ExpensesConfig struct {
	Target         string `yaml:"target" envconfig:"EXPENSES_GRPC_TARGET" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"EXPENSES_TIMEOUT_SECONDS" validate:"gte=0"`
}

// EventsConfig configures the notification event stream consumer.
type EventsConfig struct {
	Enabled    bool   `yaml:"enabled" envconfig:"EVENTS_ENABLED"`
	URL        string `yaml:"url" envconfig:"AMQP_URL" validate:"required_if=Enabled true"`
	Exchange   string `yaml:"exchange" envconfig:"EVENTS_EXCHANGE"`
	Queue      string `yaml:"queue" envconfig:"EVENTS_QUEUE"`
	RoutingKey string `yaml:"routing_key" envconfig:"EVENTS_ROUTING_KEY"`
	Prefetch   int    `yaml:"prefetch" envconfig:"EVENTS_PREFETCH" validate:"gte=0"`
}

// DispatchConfig tunes inbound and outbound message processing.
type DispatchConfig struct {
	// MailboxSize bounds queued messages per chat.
	MailboxSize int `yaml:"mailbox_size" envconfig:"DISPATCH_MAILBOX_SIZE" validate:"gte=0"`
	// SendWorkers is the number of outbound send workers.
	SendWorkers int `yaml:"send_workers" envconfig:"DISPATCH_SEND_WORKERS" validate:"gte=0"`
	SendRetries int `yaml:"send_retries" envconfig:"DISPATCH_SEND_RETRIES" validate:"gte=0"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Defaults applied by Normalize.
const (
	DefaultMailboxSize    = 16
	DefaultSendWorkers    = 4
	DefaultSendRetries    = 2
	DefaultExpenseTimeout = 10
	DefaultEventsExchange = "notifications"
	DefaultEventsQueue    = "telegram-bot.notifications"
	DefaultRoutingKey     = "notification.new"
	DefaultPrefetch       = 10
	DefaultMigrationsDir  = "migrations"
)

// Config aggregates the process configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Expenses  ExpensesConfig  `yaml:"expenses"`
	Events    EventsConfig    `yaml:"events"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize validates struct tags and cross-field rules, then fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config field %s: failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("validate config: %w", err)
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 5
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = DefaultMigrationsDir
	}
	if cfg.Expenses.TimeoutSeconds == 0 {
		cfg.Expenses.TimeoutSeconds = DefaultExpenseTimeout
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = DefaultEventsExchange
	}
	if cfg.Events.Queue == "" {
		cfg.Events.Queue = DefaultEventsQueue
	}
	if cfg.Events.RoutingKey == "" {
		cfg.Events.RoutingKey = DefaultRoutingKey
	}
	if cfg.Events.Prefetch == 0 {
		cfg.Events.Prefetch = DefaultPrefetch
	}
	if cfg.Dispatch.MailboxSize == 0 {
		cfg.Dispatch.MailboxSize = DefaultMailboxSize
	}
	if cfg.Dispatch.SendWorkers == 0 {
		cfg.Dispatch.SendWorkers = DefaultSendWorkers
	}
	if cfg.Dispatch.SendRetries == 0 {
		cfg.Dispatch.SendRetries = DefaultSendRetries
	}
	return nil
}
