package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ProviderConfig struct {
	GraphBaseURL string        `env:"GRAPH_BASE_URL" envDefault:"https://graph.facebook.com"`
	GraphVersion string        `env:"GRAPH_VERSION" envDefault:"v23.0"`
	HTTPTimeout  time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"30s"`
}

func LoadProvider() (ProviderConfig, error) {
	var cfg ProviderConfig
	err := env.Parse(&cfg)
	return cfg, err
}
