// Package config содержит логику чтения конфигурации сайта wellnessreal.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrMissingWebhookSecret возвращается, когда карточные платежи включены без секрета webhook.
var ErrMissingWebhookSecret = errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	BaseURL     string `env:"BASE_URL"`

	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	Stripe  StripeConfig
	SMTP    SMTPConfig
	Storage StorageConfig

	ContactRecipients []string `env:"CONTACT_RECIPIENTS" envSeparator:","`

	MailerLiteAPIKey string `env:"MAILERLITE_API_KEY"`
	MailerLiteURL    string `env:"MAILERLITE_URL" envDefault:"https://connect.mailerlite.com"`

	RedisURL string `env:"REDIS_URL"`
}

// StripeConfig содержит ключи Stripe.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency      string `env:"STRIPE_CURRENCY" envDefault:"eur"`
	APIURL        string `env:"STRIPE_API_URL"`
}

// SMTPConfig содержит параметры почтового релея.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	FromName string `env:"MAIL_FROM_NAME" envDefault:"WellnessReal"`
}

// StorageConfig содержит параметры S3-совместимого хранилища.
type StorageConfig struct {
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"media"`
	Region    string `env:"STORAGE_REGION"`
	PublicURL string `env:"STORAGE_PUBLIC_URL"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envBaseURL := cfg.BaseURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.BaseURL, "b", "http://localhost:3000", "public base URL of the site")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envBaseURL != "" {
		cfg.BaseURL = envBaseURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Stripe.SecretKey != "" && cfg.Stripe.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	return cfg, nil
}

// SecureCookies сообщает, что сайт обслуживается по HTTPS и cookie сессии нужно помечать Secure.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// Recipients возвращает непустые адреса получателей писем администратору.
func (c *Config) Recipients() []string {
	res := make([]string, 0, len(c.ContactRecipients))
	for _, r := range c.ContactRecipients {
		if r = strings.TrimSpace(r); r != "" {
			res = append(res, r)
		}
	}
	return res
}
