package driveauth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envConfig mirrors the Config fields that deployments commonly override.
// Zero values mean "not set"; the defaults stand.
type envConfig struct {
	BaseURL            string        `env:"DRIVEAUTH_API_BASE_URL"`
	APITimeout         time.Duration `env:"DRIVEAUTH_API_TIMEOUT"`
	Inactivity         time.Duration `env:"DRIVEAUTH_INACTIVITY_THRESHOLD"`
	SweepInactivity    time.Duration `env:"DRIVEAUTH_SWEEP_INACTIVITY_THRESHOLD"`
	ActivityThrottle   time.Duration `env:"DRIVEAUTH_ACTIVITY_THROTTLE"`
	RenewalWindow      time.Duration `env:"DRIVEAUTH_RENEWAL_WINDOW"`
	RevalidateEvery    time.Duration `env:"DRIVEAUTH_REVALIDATE_INTERVAL"`
	InactivitySweep    time.Duration `env:"DRIVEAUTH_INACTIVITY_SWEEP_INTERVAL"`
	AdminPathPrefix    string        `env:"DRIVEAUTH_ADMIN_PATH_PREFIX"`
	SessionExpiredPath string        `env:"DRIVEAUTH_SESSION_EXPIRED_PATH"`
	RedisPrefix        string        `env:"DRIVEAUTH_SIGNAL_PREFIX"`
}

// ConfigFromEnv returns the default configuration with any DRIVEAUTH_*
// environment overrides applied. A .env file in the working directory is
// loaded first when present; its absence is not an error.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg := defaultConfig()
	if ec.BaseURL != "" {
		cfg.API.BaseURL = ec.BaseURL
	}
	if ec.APITimeout > 0 {
		cfg.API.Timeout = ec.APITimeout
	}
	if ec.Inactivity > 0 {
		cfg.Thresholds.Inactivity = ec.Inactivity
	}
	if ec.SweepInactivity > 0 {
		cfg.Thresholds.SweepInactivity = ec.SweepInactivity
	}
	if ec.ActivityThrottle > 0 {
		cfg.Thresholds.ActivityThrottle = ec.ActivityThrottle
	}
	if ec.RenewalWindow > 0 {
		cfg.Thresholds.RenewalWindow = ec.RenewalWindow
	}
	if ec.RevalidateEvery > 0 {
		cfg.Timers.RevalidateEvery = ec.RevalidateEvery
	}
	if ec.InactivitySweep > 0 {
		cfg.Timers.InactivitySweepEvery = ec.InactivitySweep
	}
	if ec.AdminPathPrefix != "" {
		cfg.Policy.AdminPathPrefix = ec.AdminPathPrefix
	}
	if ec.SessionExpiredPath != "" {
		cfg.Policy.SessionExpiredPath = ec.SessionExpiredPath
	}
	if ec.RedisPrefix != "" {
		cfg.Signal.RedisPrefix = ec.RedisPrefix
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
