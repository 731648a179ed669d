// Package mcpserver exposes the advertising API to tool-calling clients
// over MCP. Handlers stay thin: argument extraction, session resolution,
// one orchestrator call. All resilience lives below in fbapi.
package mcpserver

import (
	"context"
	"net/http"
	"strings"

	"ads-gateway/internal/config"
	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultPageLimit = 25
	maxPageLimit     = 100
)

type Server struct {
	sessions *session.Manager
	api      *fbapi.Client

	audienceBatchSize int

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(sessions *session.Manager, api *fbapi.Client, limits config.LimitsConfig) *Server {
	mcpSrv := server.NewMCPServer(
		"ads-gateway",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s := &Server{
		sessions:          sessions,
		api:               api,
		audienceBatchSize: limits.AudienceBatchSize,
		mcpServer:         mcpSrv,
	}
	s.httpServer = server.NewStreamableHTTPServer(
		mcpSrv,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(bearerTokenContext),
	)
	s.registerAuthTools()
	s.registerAccountTools()
	s.registerCampaignTools()
	s.registerAudienceTools()
	s.registerInsightTools()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

type ctxKey int

const sessionTokenKey ctxKey = iota

// bearerTokenContext lifts the inbound Authorization header into the tool
// call context; tools never see the raw header.
func bearerTokenContext(ctx context.Context, r *http.Request) context.Context {
	auth := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer"))
	return context.WithValue(ctx, sessionTokenKey, token)
}

// authUser resolves the caller's provider credentials: verify the session
// token, touch the session, lazily refresh the provider token, then hand
// back the opaque credential holder. Every failure collapses to an
// unauthorized tool error so callers cannot probe why a token was
// rejected.
func (s *Server) authUser(ctx context.Context) (*session.Credentials, *mcp.CallToolResult) {
	raw, _ := ctx.Value(sessionTokenKey).(string)
	userID, ok := s.sessions.VerifySessionToken(raw)
	if !ok {
		return nil, toolError("unauthorized", "missing or invalid session token, call get_login_link to sign in")
	}
	if _, err := s.sessions.GetUserSession(ctx, userID); err != nil {
		return nil, toolError("unauthorized", "session expired, call get_login_link to sign in again")
	}
	if err := s.sessions.RefreshIfNeeded(ctx, userID); err != nil {
		return nil, mapDomainError(err)
	}
	creds, err := s.sessions.CreateUserAuthManager(ctx, userID)
	if err != nil {
		return nil, toolError("unauthorized", "no provider credentials on file, call get_login_link to sign in again")
	}
	return creds, nil
}

func clampPageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

// splitCSV parses a comma separated argument into trimmed non-empty parts.
func splitCSV(raw string) []string {
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// pageParams builds the provider's cursor pagination parameters from tool
// arguments.
func pageParams(request mcp.CallToolRequest) map[string]any {
	params := map[string]any{
		"limit": clampPageLimit(request.GetInt("limit", defaultPageLimit)),
	}
	if after := request.GetString("after", ""); after != "" {
		params["after"] = after
	}
	if before := request.GetString("before", ""); before != "" {
		params["before"] = before
	}
	return params
}
