package session

import (
	"errors"
	"time"
)

var (
	ErrNoSession = errors.New("no session")
	ErrNoTokens  = errors.New("no provider tokens")
)

// UserSession is the gateway's own record of a logged-in user. Its lifetime
// is bounded by the store TTL; LastUsed is informational sliding metadata
// and never extends that ceiling.
type UserSession struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	ProviderUserID string    `json:"provider_user_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastUsed       time.Time `json:"last_used"`
}

// UserTokens is the provider credential record. Keyed and expiring
// independently from the session: re-authentication is expensive, so a
// valid token may outlive its session.
type UserTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	Scope        []string  `json:"scope,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

// expiresAt returns the token's expiry, or zero when the provider reported
// no lifetime.
func (t *UserTokens) expiresAt() time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return t.ObtainedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Credentials is the opaque per-call credential holder handed to the API
// client. Tool handlers never see raw token records.
type Credentials struct {
	userID      string
	accessToken string
}

func (c *Credentials) UserID() string      { return c.userID }
func (c *Credentials) AccessToken() string { return c.accessToken }
