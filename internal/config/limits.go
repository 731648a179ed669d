package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type LimitsConfig struct {
	RetryMaxAttempts     int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"4"`
	RetryInitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"500ms"`
	RetryMaxInterval     time.Duration `env:"RETRY_MAX_INTERVAL" envDefault:"10s"`
	RetryMultiplier      float64       `env:"RETRY_MULTIPLIER" envDefault:"2"`
	RetryJitter          bool          `env:"RETRY_JITTER" envDefault:"true"`

	// AudienceBatchSize is the provider's cap on members per upload request.
	AudienceBatchSize int `env:"AUDIENCE_BATCH_SIZE" envDefault:"10000"`
}

func LoadLimits() (LimitsConfig, error) {
	var cfg LimitsConfig
	err := env.Parse(&cfg)
	return cfg, err
}
