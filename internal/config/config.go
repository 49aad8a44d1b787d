package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/subbot/core/config"
	coredatabase "github.com/m3rciful/subbot/core/database"
)

// SubscriptionConfig holds the paid-channel settings: tariffs, payment
// instructions, and the expiry sweep schedule.
type SubscriptionConfig struct {
	ChannelInviteLink string `yaml:"channel_invite_link" envconfig:"CHANNEL_INVITE_LINK"`
	PaymentDetails    string `yaml:"payment_details" envconfig:"PAYMENT_DETAILS"`
	TariffMonthly     int    `yaml:"tariff_monthly" envconfig:"TARIFF_MONTHLY"`
	TariffLifetime    int    `yaml:"tariff_lifetime" envconfig:"TARIFF_LIFETIME"`
	MonthlyDays       int    `yaml:"monthly_days" envconfig:"MONTHLY_DAYS"`
	// SweepAt is the local time of day ("HH:MM") for the daily expiry sweep.
	SweepAt       string `yaml:"sweep_at" envconfig:"SWEEP_AT"`
	SweepDisabled bool   `yaml:"sweep_disabled" envconfig:"SWEEP_DISABLED"`
	// NotifyRetries bounds transient-failure retries for expiry notices.
	NotifyRetries int `yaml:"notify_retries" envconfig:"NOTIFY_RETRIES"`
	// NotifyBackoffSeconds is the linear backoff base between retries.
	NotifyBackoffSeconds int `yaml:"notify_backoff_seconds" envconfig:"NOTIFY_BACKOFF_SECONDS"`
}

// Config aggregates the core bot configuration with the subscription
// domain settings and database connection.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database     coredatabase.Config `yaml:"database"`
	Subscription SubscriptionConfig  `yaml:"subscription"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads configuration from a YAML file and environment variables.
// Invalid or missing required settings are fatal: the process must not
// start on a broken configuration.
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

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required subscription settings and applies defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}

	sub := &cfg.Subscription
	if sub.ChannelInviteLink == "" {
		return fmt.Errorf("subscription.channel_invite_link is required")
	}
	if sub.PaymentDetails == "" {
		return fmt.Errorf("subscription.payment_details is required")
	}
	if sub.TariffMonthly <= 0 {
		return fmt.Errorf("subscription.tariff_monthly must be > 0")
	}
	if sub.TariffLifetime <= 0 {
		return fmt.Errorf("subscription.tariff_lifetime must be > 0")
	}
	if sub.MonthlyDays == 0 {
		sub.MonthlyDays = 30
	}
	if sub.MonthlyDays < 0 {
		return fmt.Errorf("subscription.monthly_days must be > 0")
	}
	if sub.SweepAt == "" {
		sub.SweepAt = "12:00"
	}
	if _, err := ParseTimeOfDay(sub.SweepAt); err != nil {
		return fmt.Errorf("subscription.sweep_at: %w", err)
	}
	if sub.NotifyRetries == 0 {
		sub.NotifyRetries = 3
	}
	if sub.NotifyRetries < 0 {
		return fmt.Errorf("subscription.notify_retries must be > 0")
	}
	if sub.NotifyBackoffSeconds == 0 {
		sub.NotifyBackoffSeconds = 2
	}
	if sub.NotifyBackoffSeconds < 0 {
		return fmt.Errorf("subscription.notify_backoff_seconds must be > 0")
	}
	return nil
}
