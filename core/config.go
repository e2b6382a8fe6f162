package core

import (
	"fmt"
	"strings"
	"time"
)

type WizardConfig struct {
	// StaleAfter is the retention window for the durable progress snapshot.
	// Snapshots older than this are discarded on resume.
	StaleAfter time.Duration `koanf:"stale_after" mapstructure:"stale_after"`
}

type LinkingConfig struct {
	CodeTTL       time.Duration `koanf:"code_ttl" mapstructure:"code_ttl"`
	PollInterval  time.Duration `koanf:"poll_interval" mapstructure:"poll_interval"`
	CountdownTick time.Duration `koanf:"countdown_tick" mapstructure:"countdown_tick"`
}

type GatewayConfig struct {
	MaxAttempts int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	RetryDelay  time.Duration `koanf:"retry_delay" mapstructure:"retry_delay"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Wizard      WizardConfig  `koanf:"wizard" mapstructure:"wizard"`
	Linking     LinkingConfig `koanf:"linking" mapstructure:"linking"`
	Gateway     GatewayConfig `koanf:"gateway" mapstructure:"gateway"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "onboarding",
		Wizard: WizardConfig{
			StaleAfter: 7 * 24 * time.Hour,
		},
		Linking: LinkingConfig{
			CodeTTL:       10 * time.Minute,
			PollInterval:  3 * time.Second,
			CountdownTick: time.Second,
		},
		Gateway: GatewayConfig{
			MaxAttempts: 3,
			RetryDelay:  time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Wizard.StaleAfter < 0 {
		return fmt.Errorf("core: wizard.stale_after must not be negative")
	}
	if c.Linking.CodeTTL < 0 {
		return fmt.Errorf("core: linking.code_ttl must not be negative")
	}
	if c.Linking.PollInterval < 0 {
		return fmt.Errorf("core: linking.poll_interval must not be negative")
	}
	if c.Gateway.MaxAttempts < 1 && c.Gateway.MaxAttempts != 0 {
		return fmt.Errorf("core: gateway.max_attempts must be at least 1")
	}
	return nil
}
