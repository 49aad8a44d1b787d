package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.AdminID = 99
	cfg.Subscription = SubscriptionConfig{
		ChannelInviteLink: "https://t.me/+invite",
		PaymentDetails:    "card 1234",
		TariffMonthly:     500,
		TariffLifetime:    5000,
	}
	return cfg
}

func TestValidateAppliesDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 30, cfg.Subscription.MonthlyDays)
	assert.Equal(t, "12:00", cfg.Subscription.SweepAt)
	assert.Equal(t, 3, cfg.Subscription.NotifyRetries)
	assert.Equal(t, 2, cfg.Subscription.NotifyBackoffSeconds)
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Subscription.MonthlyDays = 14
	cfg.Subscription.SweepAt = "03:30"
	cfg.Subscription.NotifyRetries = 5
	cfg.Subscription.NotifyBackoffSeconds = 1

	require.NoError(t, Validate(cfg))
	assert.Equal(t, 14, cfg.Subscription.MonthlyDays)
	assert.Equal(t, "03:30", cfg.Subscription.SweepAt)
	assert.Equal(t, 5, cfg.Subscription.NotifyRetries)
	assert.Equal(t, 1, cfg.Subscription.NotifyBackoffSeconds)
}

func TestValidateRequiredFields(t *testing.T) {
	mutations := map[string]func(*Config){
		"admin id":    func(c *Config) { c.Telegram.AdminID = 0 },
		"invite link": func(c *Config) { c.Subscription.ChannelInviteLink = "" },
		"payment details": func(c *Config) {
			c.Subscription.PaymentDetails = ""
		},
		"monthly tariff":  func(c *Config) { c.Subscription.TariffMonthly = 0 },
		"lifetime tariff": func(c *Config) { c.Subscription.TariffLifetime = -1 },
		"monthly days":    func(c *Config) { c.Subscription.MonthlyDays = -5 },
		"sweep at":        func(c *Config) { c.Subscription.SweepAt = "25:00" },
		"retries":         func(c *Config) { c.Subscription.NotifyRetries = -1 },
		"backoff":         func(c *Config) { c.Subscription.NotifyBackoffSeconds = -1 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}

	assert.Error(t, Validate(nil))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("12:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 12}, tod)

	tod, err = ParseTimeOfDay(" 03:07 ")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 3, Minute: 7}, tod)
	assert.Equal(t, "03:07", tod.String())

	for _, bad := range []string{"", "12", "12:", "12:60", "24:00", "-1:30", "ab:cd", "12:00:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, "input %q must not parse", bad)
	}
}
