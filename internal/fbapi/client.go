// Package fbapi is the resilient access layer for the provider's Graph-style
// REST API. Every logical operation goes through the same path: resolve the
// target account, pass the rate limiter's admission check, execute inside
// the retry engine, and classify any failure exactly once at the HTTP
// boundary.
package fbapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"ads-gateway/internal/config"
	"ads-gateway/internal/ratelimit"
	"ads-gateway/internal/retry"
)

const maxResponseBytes = 8 << 20

// CredentialSource yields the bearer token for one call. Implemented by
// session.Credentials; handlers never touch raw token records.
type CredentialSource interface {
	AccessToken() string
}

// StaticToken adapts a bare access token, e.g. right after an OAuth
// exchange before any session exists.
type StaticToken string

func (t StaticToken) AccessToken() string { return string(t) }

// Request describes one logical provider call. Path is relative to the
// versioned API root, e.g. "act_123/campaigns" or "120211234567/insights".
type Request struct {
	Method string
	Path   string
	// AccountID scopes the call for rate limiting. When empty it is derived
	// from the Path's leading "act_" segment; calls with no resolvable
	// account skip admission entirely, since not every endpoint is
	// account-scoped.
	AccountID string
	Params    map[string]any
}

// Client is the API orchestrator. The rate limiter is an injected,
// explicitly-owned value, so tests get isolated instances.
//
// Retry contract: GET calls are naturally idempotent. POST and DELETE are
// retried too, relying on the provider's documented per-resource-id
// idempotence for create/update/delete.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
	limiter    *ratelimit.Limiter
	retry      retry.Policy
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) { c.retry = p }
}

func NewClient(limiter *ratelimit.Limiter, cfg config.ProviderConfig, opts ...ClientOption) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.GraphBaseURL, "/"),
		version:    cfg.GraphVersion,
		limiter:    limiter,
		retry:      retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes one logical call and returns the raw response body. Each
// retry attempt re-runs the admission check, so a blocked account waits out
// its budget instead of hammering the provider.
func (c *Client) Do(ctx context.Context, creds CredentialSource, req Request) ([]byte, error) {
	accountID := c.resolveAccountID(req)
	isWrite := req.Method != http.MethodGet
	label := req.Method + " " + req.Path

	return retry.Do(ctx, c.retry, retryable, label, func(ctx context.Context) ([]byte, error) {
		if accountID != "" {
			if err := c.limiter.Check(accountID, isWrite); err != nil {
				return nil, err
			}
		}
		return c.dispatch(ctx, creds, req)
	})
}

// Get is a convenience for read calls.
func (c *Client) Get(ctx context.Context, creds CredentialSource, path string, params map[string]any) ([]byte, error) {
	return c.Do(ctx, creds, Request{Method: http.MethodGet, Path: path, Params: params})
}

// Post is a convenience for create/update calls.
func (c *Client) Post(ctx context.Context, creds CredentialSource, path string, params map[string]any) ([]byte, error) {
	return c.Do(ctx, creds, Request{Method: http.MethodPost, Path: path, Params: params})
}

// Delete is a convenience for delete calls.
func (c *Client) Delete(ctx context.Context, creds CredentialSource, path string, params map[string]any) ([]byte, error) {
	return c.Do(ctx, creds, Request{Method: http.MethodDelete, Path: path, Params: params})
}

// List executes a read call and parses the cursor-paginated envelope. The
// caller advances by re-invoking with the returned after-cursor; List never
// fetches more than one page.
func (c *Client) List(ctx context.Context, creds CredentialSource, req Request) (Page[json.RawMessage], error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	raw, err := c.Do(ctx, creds, req)
	if err != nil {
		return Page[json.RawMessage]{}, err
	}
	return ParsePage[json.RawMessage](raw)
}

// UserProfile is the provider's record of the authenticated user.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CurrentUser fetches the profile behind a credential. Not account-scoped,
// so it bypasses rate limiting.
func (c *Client) CurrentUser(ctx context.Context, creds CredentialSource) (*UserProfile, error) {
	raw, err := c.Get(ctx, creds, "me", map[string]any{"fields": "id,name,email"})
	if err != nil {
		return nil, err
	}
	var p UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) resolveAccountID(req Request) string {
	if req.AccountID != "" {
		return req.AccountID
	}
	seg := req.Path
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if strings.HasPrefix(seg, "act_") {
		return seg
	}
	return ""
}

func (c *Client) dispatch(ctx context.Context, creds CredentialSource, req Request) ([]byte, error) {
	values, err := EncodeParams(req.Params)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/" + c.version + "/" + strings.TrimLeft(req.Path, "/")

	var httpReq *http.Request
	if req.Method == http.MethodPost {
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		u := endpoint
		if encoded := values.Encode(); encoded != "" {
			u += "?" + encoded
		}
		httpReq, err = http.NewRequestWithContext(ctx, req.Method, u, nil)
		if err != nil {
			return nil, err
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NetworkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ClassifyResponse(resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}
	return body, nil
}

// retryable treats limiter rejections and transient provider failures as
// retryable; everything else propagates on the first attempt.
func retryable(err error) bool {
	var rlErr *ratelimit.Error
	if errors.As(err, &rlErr) {
		return true
	}
	return IsRetryable(err)
}
