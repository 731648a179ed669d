package fbapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sentinel categories for classified provider failures. Tool handlers and
// the retry engine match on these; the concrete *APIError keeps the
// provider's original code/subcode for caller-side remediation.
var (
	ErrAuth       = errors.New("authentication_error")
	ErrPermission = errors.New("permission_error")
	ErrValidation = errors.New("validation_error")
	ErrRateLimit  = errors.New("rate_limit_error")
	ErrServer     = errors.New("server_error")
	ErrNetwork    = errors.New("network_error")
	ErrNotFound   = errors.New("not_found")
)

// Graph API error codes that matter for classification.
const (
	codeAPIUnknown      = 1
	codeAPIService      = 2
	codeTooManyCalls    = 4
	codeUserTooManyCall = 17
	codePermission      = 10
	codeParam           = 100
	codeOAuth           = 190
	codePageRateLimit   = 32
	codeCustomRateLimit = 613
	codeUnsupportedGet  = 803

	subcodeTokenExpired = 463
)

// APIError is the classified form of the provider's JSON error envelope
// {"error":{"message","type","code","error_subcode","fbtrace_id"}}. The
// envelope is parsed exactly once, at the HTTP boundary; nothing downstream
// re-parses stringified errors.
type APIError struct {
	category   error
	Message    string
	Type       string
	Code       int
	Subcode    int
	TraceID    string
	HTTPStatus int
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.HTTPStatus)
	}
	if e.Code != 0 {
		if e.Subcode != 0 {
			return fmt.Sprintf("%s: %s (code %d, subcode %d)", e.category, msg, e.Code, e.Subcode)
		}
		return fmt.Sprintf("%s: %s (code %d)", e.category, msg, e.Code)
	}
	return fmt.Sprintf("%s: %s (http %d)", e.category, msg, e.HTTPStatus)
}

func (e *APIError) Unwrap() error { return e.category }

// RetryAfterHint exposes a provider-supplied wait to the retry engine.
func (e *APIError) RetryAfterHint() (time.Duration, bool) {
	if e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// TokenExpired reports the specific expired-access-token signal (code 190
// subcode 463) that callers use to trigger re-authentication.
func (e *APIError) TokenExpired() bool {
	return e.Code == codeOAuth && e.Subcode == subcodeTokenExpired
}

type errorEnvelope struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// ClassifyResponse turns a non-2xx provider response into a typed error.
// retryAfterHeader is the raw Retry-After header value, if any.
func ClassifyResponse(status int, body []byte, retryAfterHeader string) error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env) // tolerate non-JSON bodies; classify by status

	apiErr := &APIError{
		Message:    env.Error.Message,
		Type:       env.Error.Type,
		Code:       env.Error.Code,
		Subcode:    env.Error.ErrorSubcode,
		TraceID:    env.Error.FBTraceID,
		HTTPStatus: status,
	}
	if secs, err := strconv.Atoi(retryAfterHeader); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	apiErr.category = categorize(status, apiErr)
	return apiErr
}

func categorize(status int, e *APIError) error {
	switch e.Code {
	case codeOAuth:
		return ErrAuth
	case codePermission:
		return ErrPermission
	case codeTooManyCalls, codeUserTooManyCall, codePageRateLimit, codeCustomRateLimit:
		return ErrRateLimit
	case codeParam:
		return ErrValidation
	case codeUnsupportedGet:
		return ErrNotFound
	case codeAPIUnknown, codeAPIService:
		return ErrServer
	}
	// Permission errors occupy a code range rather than a single code.
	if e.Code >= 200 && e.Code <= 299 {
		return ErrPermission
	}
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuth
	case status == http.StatusForbidden:
		return ErrPermission
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

// NetworkError wraps a transport-level failure (dial, timeout, broken
// connection) so it classifies as retryable.
func NetworkError(err error) error {
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// IsRetryable reports whether the retry engine may attempt the call again.
// Rate limits, server errors and network failures are transient; auth,
// permission, validation and not-found failures are fatal.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrNetwork)
}
