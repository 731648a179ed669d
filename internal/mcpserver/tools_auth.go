package mcpserver

import (
	"context"

	"ads-gateway/internal/ids"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAuthTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_login_link",
			mcp.WithDescription("Get a provider login URL to authorize the gateway"),
		),
		s.handleGetLoginLink,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"logout",
			mcp.WithDescription("Delete the current session and stored provider credentials"),
		),
		s.handleLogout,
	)
}

func (s *Server) handleGetLoginLink(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := ids.New()
	if err := s.sessions.SaveLoginState(ctx, state); err != nil {
		return toolError("internal_error", "could not start login flow"), nil
	}
	return toolResult(map[string]any{
		"login_url": s.sessions.LoginURL(state),
		"note":      "open the URL in a browser; the callback returns a session token to pass as a bearer credential",
	}), nil
}

func (s *Server) handleLogout(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, _ := ctx.Value(sessionTokenKey).(string)
	userID, ok := s.sessions.VerifySessionToken(raw)
	if !ok {
		return toolError("unauthorized", "missing or invalid session token"), nil
	}
	_ = s.sessions.DeleteUserSession(ctx, userID)
	_ = s.sessions.DeleteUserTokens(ctx, userID)
	return toolResult(map[string]any{"logged_out": true}), nil
}
