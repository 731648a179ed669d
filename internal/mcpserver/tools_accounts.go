package mcpserver

import (
	"context"

	"ads-gateway/internal/fbapi"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAccountTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_ad_accounts",
			mcp.WithDescription("List ad accounts the signed-in user can operate"),
			mcp.WithNumber("limit", mcp.Description("Page size, default 25, max 100")),
			mcp.WithString("after", mcp.Description("Cursor from a previous page")),
			mcp.WithString("before", mcp.Description("Cursor from a previous page")),
		),
		s.handleGetAdAccounts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_account_info",
			mcp.WithDescription("Get one ad account by id"),
			mcp.WithString("account_id", mcp.Required(), mcp.Description("Ad account id, e.g. act_123")),
		),
		s.handleGetAccountInfo,
	)
}

func (s *Server) handleGetAdAccounts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	params := pageParams(request)
	params["fields"] = "id,name,account_status,currency,timezone_name"

	page, err := s.api.List(ctx, creds, fbapi.Request{Path: "me/adaccounts", Params: params})
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(page), nil
}

func (s *Server) handleGetAccountInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	accountID, err := request.RequireString("account_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}

	body, apiErr := s.api.Get(ctx, creds, accountID, map[string]any{
		"fields": "id,name,account_status,currency,timezone_name,amount_spent",
	})
	if apiErr != nil {
		return mapDomainError(apiErr), nil
	}
	return rawResult(body), nil
}
