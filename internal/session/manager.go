// Package session owns the two credential lifecycles: the gateway's own
// short-lived JWT login sessions and the upstream provider's OAuth tokens.
// Everything is keyed strictly by user id; there is no shared credential
// state for concurrent requests to leak through.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"ads-gateway/internal/config"
	"ads-gateway/internal/kvstore"
	"ads-gateway/internal/retry"
)

const (
	sessionKeyPrefix = "session:"
	tokensKeyPrefix  = "tokens:"
	stateKeyPrefix   = "oauthstate:"

	loginStateTTL = 10 * time.Minute
)

type Manager struct {
	kv    kvstore.Store
	cfg   config.AuthConfig
	oauth *oauth2.Config
	retry retry.Policy

	now func() time.Time
}

type Option func(*Manager)

// WithRetryPolicy overrides the backoff schedule for token-endpoint calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(m *Manager) { m.retry = p }
}

func NewManager(kv kvstore.Store, cfg config.AuthConfig, opts ...Option) *Manager {
	m := &Manager{
		kv:  kv,
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		retry: retry.DefaultPolicy(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) StoreUserSession(ctx context.Context, s UserSession) error {
	if s.UserID == "" {
		return errors.New("session has no user id")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.kv.Set(ctx, sessionKeyPrefix+s.UserID, b, m.cfg.SessionTTL)
}

// GetUserSession looks up the session and refreshes LastUsed in place. The
// rewrite keeps the key's original TTL: the store expiry is the hard
// ceiling, LastUsed is advisory.
func (m *Manager) GetUserSession(ctx context.Context, userID string) (*UserSession, error) {
	b, err := m.kv.Get(ctx, sessionKeyPrefix+userID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	var s UserSession
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}

	s.LastUsed = m.now()
	if updated, err := json.Marshal(s); err == nil {
		_ = m.kv.Set(ctx, sessionKeyPrefix+userID, updated, kvstore.KeepTTL)
	}
	return &s, nil
}

func (m *Manager) DeleteUserSession(ctx context.Context, userID string) error {
	return m.kv.Delete(ctx, sessionKeyPrefix+userID)
}

func (m *Manager) StoreUserTokens(ctx context.Context, userID string, t UserTokens) error {
	if userID == "" {
		return errors.New("tokens have no user id")
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return m.kv.Set(ctx, tokensKeyPrefix+userID, b, m.cfg.TokenTTL)
}

func (m *Manager) GetUserTokens(ctx context.Context, userID string) (*UserTokens, error) {
	b, err := m.kv.Get(ctx, tokensKeyPrefix+userID)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoTokens
	}
	if err != nil {
		return nil, fmt.Errorf("token lookup: %w", err)
	}
	var t UserTokens
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("token decode: %w", err)
	}
	return &t, nil
}

func (m *Manager) DeleteUserTokens(ctx context.Context, userID string) error {
	return m.kv.Delete(ctx, tokensKeyPrefix+userID)
}

// CreateUserAuthManager resolves the per-call credential holder for a user.
// This is the seam the API client uses; it fails with ErrNoTokens when the
// user has no provider token record.
func (m *Manager) CreateUserAuthManager(ctx context.Context, userID string) (*Credentials, error) {
	t, err := m.GetUserTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Credentials{userID: userID, accessToken: t.AccessToken}, nil
}

// SaveLoginState records a one-time OAuth state nonce for CSRF protection
// on the callback.
func (m *Manager) SaveLoginState(ctx context.Context, state string) error {
	return m.kv.Set(ctx, stateKeyPrefix+state, []byte("1"), loginStateTTL)
}

// ConsumeLoginState validates and burns a state nonce. Valid exactly once.
func (m *Manager) ConsumeLoginState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	_, err := m.kv.Get(ctx, stateKeyPrefix+state)
	if err != nil {
		return false
	}
	_ = m.kv.Delete(ctx, stateKeyPrefix+state)
	return true
}
