package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/retry"
)

// LoginURL builds the provider consent URL for a state nonce.
func (m *Manager) LoginURL(state string) string {
	return m.oauth.AuthCodeURL(state)
}

// ExchangeCodeForTokens redeems an authorization code at the provider's
// token endpoint. The endpoint is just another provider endpoint: failures
// are classified and retried exactly like data calls.
func (m *Manager) ExchangeCodeForTokens(ctx context.Context, code string) (*UserTokens, error) {
	return retry.Do(ctx, m.retry, fbapi.IsRetryable, "oauth exchange", func(ctx context.Context) (*UserTokens, error) {
		tok, err := m.oauth.Exchange(ctx, code)
		if err != nil {
			return nil, classifyTokenEndpointErr(err)
		}
		return m.tokensFromOAuth(tok), nil
	})
}

// RefreshUserToken renews the stored provider token: with a refresh token
// through the standard grant, without one through the provider's
// exchange-for-long-lived-token flow. Returns false when the user has no
// token record to refresh.
func (m *Manager) RefreshUserToken(ctx context.Context, userID string) (bool, error) {
	current, err := m.GetUserTokens(ctx, userID)
	if errors.Is(err, ErrNoTokens) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	refreshed, err := retry.Do(ctx, m.retry, fbapi.IsRetryable, "oauth refresh", func(ctx context.Context) (*UserTokens, error) {
		if current.RefreshToken != "" {
			src := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken})
			tok, err := src.Token()
			if err != nil {
				return nil, classifyTokenEndpointErr(err)
			}
			return m.tokensFromOAuth(tok), nil
		}
		return m.exchangeForLongLived(ctx, current.AccessToken)
	})
	if err != nil {
		return false, err
	}

	if refreshed.Scope == nil {
		refreshed.Scope = current.Scope
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = current.RefreshToken
	}
	if err := m.StoreUserTokens(ctx, userID, *refreshed); err != nil {
		return false, err
	}
	return true, nil
}

// RefreshIfNeeded lazily checks token validity at point of use and renews
// when the reported expiry is within the configured skew. A failed check
// surfaces to this request only.
func (m *Manager) RefreshIfNeeded(ctx context.Context, userID string) error {
	t, err := m.GetUserTokens(ctx, userID)
	if err != nil {
		return err
	}
	exp := t.expiresAt()
	if exp.IsZero() || m.now().Add(m.cfg.RefreshSkew).Before(exp) {
		return nil
	}
	_, err = m.RefreshUserToken(ctx, userID)
	return err
}

func (m *Manager) tokensFromOAuth(tok *oauth2.Token) *UserTokens {
	t := &UserTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scope:        m.cfg.Scopes,
		ObtainedAt:   m.now(),
	}
	if !tok.Expiry.IsZero() {
		t.ExpiresIn = int64(tok.Expiry.Sub(m.now()).Seconds())
	}
	return t
}

// exchangeForLongLived trades a short-lived access token for a long-lived
// one via the provider's fb_exchange_token grant.
func (m *Manager) exchangeForLongLived(ctx context.Context, accessToken string) (*UserTokens, error) {
	q := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {m.cfg.AppID},
		"client_secret":     {m.cfg.AppSecret},
		"fb_exchange_token": {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.TokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := oauth2.NewClient(ctx, nil).Do(req)
	if err != nil {
		return nil, fbapi.NetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fbapi.NetworkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fbapi.ClassifyResponse(resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("token exchange decode: %w", err)
	}
	return &UserTokens{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresIn:   payload.ExpiresIn,
		ObtainedAt:  m.now(),
	}, nil
}

// classifyTokenEndpointErr routes oauth2 transport failures through the same
// taxonomy as data-endpoint failures.
func classifyTokenEndpointErr(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		retryAfter := ""
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
			retryAfter = rerr.Response.Header.Get("Retry-After")
		}
		return fbapi.ClassifyResponse(status, rerr.Body, retryAfter)
	}
	return fbapi.NetworkError(err)
}
