package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // checkout flow state TTL
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type CashfreeConfig struct {
	AppID         string `yaml:"app_id"`
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Sandbox       bool   `yaml:"sandbox"`
	ReturnURL     string `yaml:"return_url"`
	NotifyURL     string `yaml:"notify_url"`
}

type EmailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	FromAddress  string `yaml:"from_address"`
	SupportEmail string `yaml:"support_email"`
	SupportPhone string `yaml:"support_phone"`
}

type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
}

type AdminConfig struct {
	APIKey     string        `yaml:"api_key"` // exchanged for a session at /api/admin/auth/login
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type WorkersConfig struct {
	EmailPollInterval time.Duration `yaml:"email_poll_interval"`
	EmailBatchSize    int           `yaml:"email_batch_size"`
	EmailWorkers      int           `yaml:"email_workers"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ReconcileStale    time.Duration `yaml:"reconcile_stale"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Cashfree CashfreeConfig `yaml:"cashfree"`
	Email    EmailConfig    `yaml:"email"`
	Site     SiteConfig     `yaml:"site"`
	Admin    AdminConfig    `yaml:"admin"`
	Workers  WorkersConfig  `yaml:"workers"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads and validates the YAML config. Configuration errors are
// fatal by design: nothing here is recoverable at runtime without operator
// action, so the caller should exit on error.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 30 * time.Minute
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Workers.EmailPollInterval <= 0 {
		cfg.Workers.EmailPollInterval = 30 * time.Second
	}
	if cfg.Workers.EmailBatchSize <= 0 {
		cfg.Workers.EmailBatchSize = 50
	}
	if cfg.Workers.EmailWorkers <= 0 {
		cfg.Workers.EmailWorkers = 4
	}
	if cfg.Workers.ReconcileInterval <= 0 {
		cfg.Workers.ReconcileInterval = time.Minute
	}
	if cfg.Workers.ReconcileStale <= 0 {
		cfg.Workers.ReconcileStale = 10 * time.Minute
	}
	if cfg.Email.FromAddress == "" {
		cfg.Email.FromAddress = "Trading Academy <noreply@tradingacademy.in>"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Email.ResendAPIKey == "" {
		return nil, errors.New("email.resend_api_key is required")
	}
	stripeOK := cfg.Stripe.SecretKey != "" && cfg.Stripe.WebhookSecret != ""
	cashfreeOK := cfg.Cashfree.AppID != "" && cfg.Cashfree.SecretKey != "" && cfg.Cashfree.WebhookSecret != ""
	if !stripeOK && !cashfreeOK {
		return nil, errors.New("at least one payment provider must be fully configured (stripe or cashfree)")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
