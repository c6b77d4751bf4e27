package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MercadoPagoAccessToken   string `env:"MERCADOPAGO_ACCESS_TOKEN,required" validate:"required"`
	MercadoPagoWebhookSecret string `env:"MERCADOPAGO_WEBHOOK_SECRET"`
	MercadoPagoBaseURL       string `env:"MERCADOPAGO_BASE_URL" envDefault:"https://api.mercadopago.com" validate:"required,url"`

	ShippingConfigPath string `env:"SHIPPING_CONFIG_PATH"`

	StockLedgerProvider string `env:"STOCK_LEDGER_PROVIDER" envDefault:"postgres" validate:"omitempty,oneof=postgres memory"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	EmailProvider string `env:"EMAIL_PROVIDER" validate:"omitempty,oneof=resend postmark"`
	EmailAPIKey   string `env:"EMAIL_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"omitempty"`

	ShopName    string `env:"SHOP_NAME" envDefault:"Modashop"`
	ShopBaseURL string `env:"SHOP_BASE_URL" validate:"omitempty,url"`

	// AdminAPIToken guards the admin endpoints. When empty the admin
	// surface is disabled entirely.
	AdminAPIToken string `env:"ADMIN_API_TOKEN"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasEmailProvider := strings.TrimSpace(c.EmailProvider) != ""
	hasEmailKey := strings.TrimSpace(c.EmailAPIKey) != ""
	hasEmailFrom := strings.TrimSpace(c.EmailFrom) != ""
	if hasEmailProvider && (!hasEmailKey || !hasEmailFrom) {
		return fmt.Errorf("EMAIL_API_KEY and EMAIL_FROM are required when EMAIL_PROVIDER is set")
	}
	if !hasEmailProvider && (hasEmailKey || hasEmailFrom) {
		return fmt.Errorf("EMAIL_PROVIDER is required when email credentials are set")
	}

	return nil
}

// WebhookSignatureEnforced reports whether inbound webhook signatures are
// verified. Running without a secret is a degraded mode and is logged at
// startup.
func (c *Config) WebhookSignatureEnforced() bool {
	return strings.TrimSpace(c.MercadoPagoWebhookSecret) != ""
}
