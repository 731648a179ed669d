package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type AuthConfig struct {
	// SessionSecret signs the gateway's own JWT session tokens.
	SessionSecret string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"1440h"`

	AppID       string   `env:"ADS_APP_ID,required,notEmpty"`
	AppSecret   string   `env:"ADS_APP_SECRET,required,notEmpty"`
	RedirectURL string   `env:"OAUTH_REDIRECT_URL,required,notEmpty"`
	Scopes      []string `env:"OAUTH_SCOPES" envDefault:"ads_management,ads_read"`
	AuthURL     string   `env:"OAUTH_AUTH_URL" envDefault:"https://www.facebook.com/v23.0/dialog/oauth"`
	TokenURL    string   `env:"OAUTH_TOKEN_URL" envDefault:"https://graph.facebook.com/v23.0/oauth/access_token"`

	// RefreshSkew refreshes a provider token this long before its reported
	// expiry, checked lazily at point of use.
	RefreshSkew time.Duration `env:"TOKEN_REFRESH_SKEW" envDefault:"10m"`
}

func LoadAuth() (AuthConfig, error) {
	var cfg AuthConfig
	err := env.Parse(&cfg)
	return cfg, err
}
