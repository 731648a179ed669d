package mcpserver

import (
	"context"

	"ads-gateway/internal/fbapi"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerInsightTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_insights",
			mcp.WithDescription("Get performance insights for an account, campaign, ad set or ad"),
			mcp.WithString("object_id", mcp.Required(), mcp.Description("Id of the object to report on")),
			mcp.WithString("date_preset", mcp.Description("Reporting window, e.g. last_7d, last_30d, default last_30d")),
			mcp.WithString("level", mcp.Description("Aggregation level: account, campaign, adset or ad")),
			mcp.WithString("fields", mcp.Description("Comma separated metric fields")),
			mcp.WithString("breakdowns", mcp.Description("Comma separated breakdown dimensions")),
			mcp.WithNumber("limit", mcp.Description("Page size, default 25, max 100")),
			mcp.WithString("after", mcp.Description("Cursor from a previous page")),
			mcp.WithString("before", mcp.Description("Cursor from a previous page")),
		),
		s.handleGetInsights,
	)
}

const defaultInsightFields = "impressions,clicks,spend,reach,cpc,cpm,ctr"

func (s *Server) handleGetInsights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	objectID, err := request.RequireString("object_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}

	params := pageParams(request)
	params["date_preset"] = request.GetString("date_preset", "last_30d")
	params["fields"] = request.GetString("fields", defaultInsightFields)
	if level := request.GetString("level", ""); level != "" {
		params["level"] = level
	}
	if breakdowns := request.GetString("breakdowns", ""); breakdowns != "" {
		params["breakdowns"] = breakdowns
	}

	// AccountID left empty: insights queries address arbitrary object ids
	// and are not attributed to an account budget.
	page, apiErr := s.api.List(ctx, creds, fbapi.Request{
		Path:   objectID + "/insights",
		Params: params,
	})
	if apiErr != nil {
		return mapDomainError(apiErr), nil
	}
	return toolResult(page), nil
}
