package mcpserver

import (
	"context"

	"ads-gateway/internal/fbapi"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerCampaignTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_campaigns",
			mcp.WithDescription("List campaigns in an ad account"),
			mcp.WithString("account_id", mcp.Required(), mcp.Description("Ad account id, e.g. act_123")),
			mcp.WithString("effective_status", mcp.Description("Comma separated status filter, e.g. ACTIVE,PAUSED")),
			mcp.WithNumber("limit", mcp.Description("Page size, default 25, max 100")),
			mcp.WithString("after", mcp.Description("Cursor from a previous page")),
			mcp.WithString("before", mcp.Description("Cursor from a previous page")),
		),
		s.handleGetCampaigns,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_campaign",
			mcp.WithDescription("Create a campaign in an ad account"),
			mcp.WithString("account_id", mcp.Required(), mcp.Description("Ad account id, e.g. act_123")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Campaign name")),
			mcp.WithString("objective", mcp.Required(), mcp.Description("Campaign objective, e.g. OUTCOME_TRAFFIC")),
			mcp.WithString("status", mcp.Description("Initial status, default PAUSED")),
			mcp.WithString("special_ad_categories", mcp.Description("Comma separated special ad categories, default NONE")),
			mcp.WithNumber("daily_budget", mcp.Description("Daily budget in minor currency units")),
		),
		s.handleCreateCampaign,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"update_campaign",
			mcp.WithDescription("Update fields on an existing campaign"),
			mcp.WithString("campaign_id", mcp.Required(), mcp.Description("Campaign id")),
			mcp.WithString("name", mcp.Description("New campaign name")),
			mcp.WithString("status", mcp.Description("New status, e.g. ACTIVE or PAUSED")),
			mcp.WithNumber("daily_budget", mcp.Description("New daily budget in minor currency units")),
		),
		s.handleUpdateCampaign,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"delete_campaign",
			mcp.WithDescription("Delete a campaign"),
			mcp.WithString("campaign_id", mcp.Required(), mcp.Description("Campaign id")),
		),
		s.handleDeleteCampaign,
	)
}

func (s *Server) handleGetCampaigns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	accountID, err := request.RequireString("account_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}

	params := pageParams(request)
	params["fields"] = "id,name,objective,status,effective_status,daily_budget,created_time"
	if statuses := splitCSV(request.GetString("effective_status", "")); len(statuses) > 0 {
		params["effective_status"] = statuses
	}

	page, apiErr := s.api.List(ctx, creds, fbapi.Request{
		Path:      accountID + "/campaigns",
		AccountID: accountID,
		Params:    params,
	})
	if apiErr != nil {
		return mapDomainError(apiErr), nil
	}
	return toolResult(page), nil
}

func (s *Server) handleCreateCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	accountID, err := request.RequireString("account_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	objective, err := request.RequireString("objective")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}

	params := map[string]any{
		"name":      name,
		"objective": objective,
		"status":    request.GetString("status", "PAUSED"),
	}
	categories := splitCSV(request.GetString("special_ad_categories", ""))
	if len(categories) == 0 {
		categories = []string{"NONE"}
	}
	params["special_ad_categories"] = categories
	if budget := request.GetInt("daily_budget", 0); budget > 0 {
		params["daily_budget"] = budget
	}

	body, apiErr := s.api.Post(ctx, creds, accountID+"/campaigns", params)
	if apiErr != nil {
		return mapDomainError(apiErr), nil
	}
	return rawResult(body), nil
}

func (s *Server) handleUpdateCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	campaignID, err := request.RequireString("campaign_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}

	params := map[string]any{}
	if name := request.GetString("name", ""); name != "" {
		params["name"] = name
	}
	if status := request.GetString("status", ""); status != "" {
		params["status"] = status
	}
	if budget := request.GetInt("daily_budget", 0); budget > 0 {
		params["daily_budget"] = budget
	}
	if len(params) == 0 {
		return toolError("invalid_request", "no fields to update"), nil
	}

	body, apiErr := s.api.Post(ctx, creds, campaignID, params)
	if apiErr != nil {
		return mapDomainError(apiErr), nil
	}
	return rawResult(body), nil
}

func (s *Server) handleDeleteCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	campaignID, err := request.RequireString("campaign_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}

	body, apiErr := s.api.Delete(ctx, creds, campaignID, nil)
	if apiErr != nil {
		return mapDomainError(apiErr), nil
	}
	return rawResult(body), nil
}
