package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/kvstore"
	"ads-gateway/internal/retry"
)

func fastRetry() retry.Policy {
	return retry.Policy{
		MaxAttempts:     4,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
	}
}

func newOAuthManager(t *testing.T, handler http.Handler) *Manager {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testAuthConfig()
	cfg.TokenURL = srv.URL + "/oauth/access_token"
	return NewManager(kvstore.NewMemory(), cfg, WithRetryPolicy(fastRetry()))
}

func writeTokenResponse(w http.ResponseWriter, accessToken string, expiresIn int64) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   expiresIn,
	})
}

func TestExchangeCodeForTokens(t *testing.T) {
	var gotGrant, gotCode atomic.Value
	m := newOAuthManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotGrant.Store(r.FormValue("grant_type"))
		gotCode.Store(r.FormValue("code"))
		writeTokenResponse(w, "long-lived-token", 5183944)
	}))

	tokens, err := m.ExchangeCodeForTokens(context.Background(), "auth-code-1")
	require.NoError(t, err)
	require.Equal(t, "long-lived-token", tokens.AccessToken)
	require.Equal(t, []string{"ads_management", "ads_read"}, tokens.Scope)
	require.InDelta(t, 5183944, tokens.ExpiresIn, 5)
	require.Equal(t, "authorization_code", gotGrant.Load())
	require.Equal(t, "auth-code-1", gotCode.Load())
}

func TestExchangeRetriesTokenEndpointOutage(t *testing.T) {
	// The token endpoint is just another provider endpoint: 500 twice then
	// 200 means three total attempts and a success.
	var calls atomic.Int64
	m := newOAuthManager(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"service unavailable","code":2}}`))
			return
		}
		writeTokenResponse(w, "recovered-token", 3600)
	}))

	tokens, err := m.ExchangeCodeForTokens(context.Background(), "code")
	require.NoError(t, err)
	require.Equal(t, "recovered-token", tokens.AccessToken)
	require.EqualValues(t, 3, calls.Load())
}

func TestExchangeFatalOnInvalidCode(t *testing.T) {
	var calls atomic.Int64
	m := newOAuthManager(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid verification code","code":100}}`))
	}))

	_, err := m.ExchangeCodeForTokens(context.Background(), "bad-code")
	require.ErrorIs(t, err, fbapi.ErrValidation)
	require.EqualValues(t, 1, calls.Load())
}

func TestRefreshUserTokenViaExchange(t *testing.T) {
	// No refresh token stored: renewal goes through the provider's
	// exchange-for-long-lived-token grant.
	var gotGrant, gotExchanged atomic.Value
	m := newOAuthManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotGrant.Store(q.Get("grant_type"))
		gotExchanged.Store(q.Get("fb_exchange_token"))
		writeTokenResponse(w, "renewed-token", 5183944)
	}))
	ctx := context.Background()

	require.NoError(t, m.StoreUserTokens(ctx, "user-1", UserTokens{
		AccessToken: "stale-token",
		TokenType:   "bearer",
		Scope:       []string{"ads_read"},
		ObtainedAt:  m.now(),
	}))

	ok, err := m.RefreshUserToken(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "fb_exchange_token", gotGrant.Load())
	require.Equal(t, "stale-token", gotExchanged.Load())

	stored, err := m.GetUserTokens(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "renewed-token", stored.AccessToken)
	require.Equal(t, []string{"ads_read"}, stored.Scope, "scope carried over from previous record")
}

func TestRefreshUserTokenNoRecord(t *testing.T) {
	m := newOAuthManager(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no token endpoint call expected")
	}))

	ok, err := m.RefreshUserToken(context.Background(), "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRefreshIfNeeded(t *testing.T) {
	var calls atomic.Int64
	m := newOAuthManager(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeTokenResponse(w, "fresh-token", 5183944)
	}))
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	// Far from expiry: no refresh.
	require.NoError(t, m.StoreUserTokens(ctx, "user-1", UserTokens{
		AccessToken: "current",
		ExpiresIn:   3600,
		ObtainedAt:  base,
	}))
	require.NoError(t, m.RefreshIfNeeded(ctx, "user-1"))
	require.EqualValues(t, 0, calls.Load())

	// Within the skew window: refresh fires.
	m.now = func() time.Time { return base.Add(55 * time.Minute) }
	require.NoError(t, m.RefreshIfNeeded(ctx, "user-1"))
	require.EqualValues(t, 1, calls.Load())

	stored, err := m.GetUserTokens(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "fresh-token", stored.AccessToken)
}

func TestRefreshIfNeededNoExpiryReported(t *testing.T) {
	m := newOAuthManager(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no refresh expected for tokens without expiry")
	}))
	ctx := context.Background()

	require.NoError(t, m.StoreUserTokens(ctx, "user-1", UserTokens{AccessToken: "no-expiry", ObtainedAt: m.now()}))
	require.NoError(t, m.RefreshIfNeeded(ctx, "user-1"))
}

func TestLoginURLCarriesState(t *testing.T) {
	m := NewManager(kvstore.NewMemory(), testAuthConfig())
	u := m.LoginURL("state-123")
	require.Contains(t, u, "state=state-123")
	require.Contains(t, u, "client_id=app-id")
	require.Contains(t, u, testAuthConfig().AuthURL)
}

func TestClassifyTokenEndpointErrNetwork(t *testing.T) {
	err := classifyTokenEndpointErr(errors.New("dial tcp: connection refused"))
	require.ErrorIs(t, err, fbapi.ErrNetwork)
}
