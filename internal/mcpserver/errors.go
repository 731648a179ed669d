package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/ratelimit"
	"ads-gateway/internal/session"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

// rawResult re-exposes a provider response body as structured content.
func rawResult(body []byte) *mcp.CallToolResult {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return toolError("internal_error", "unreadable provider response")
	}
	return toolResult(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

// mapDomainError translates classified access-layer failures into tool
// errors. APIError messages already carry the provider's code/subcode, so
// callers keep enough detail for their own remediation logic.
func mapDomainError(err error) *mcp.CallToolResult {
	var rlErr *ratelimit.Error
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.As(err, &rlErr):
		return toolError("rate_limit", fmt.Sprintf("%s; retry after %s", rlErr.Error(), rlErr.RetryAfter.Round(time.Second)))
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrNoTokens):
		return toolError("unauthorized", "not signed in, call get_login_link first")
	case errors.Is(err, fbapi.ErrAuth):
		return toolError("authentication_error", err.Error())
	case errors.Is(err, fbapi.ErrPermission):
		return toolError("permission_error", err.Error())
	case errors.Is(err, fbapi.ErrValidation):
		return toolError("invalid_request", err.Error())
	case errors.Is(err, fbapi.ErrNotFound):
		return toolError("not_found", err.Error())
	case errors.Is(err, fbapi.ErrRateLimit):
		return toolError("rate_limit", err.Error())
	case errors.Is(err, fbapi.ErrServer), errors.Is(err, fbapi.ErrNetwork):
		return toolError("upstream_error", err.Error())
	default:
		return toolError("internal_error", err.Error())
	}
}
