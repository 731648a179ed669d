package mcpserver

import (
	"context"
	"net/http"

	"ads-gateway/internal/fbapi"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAudienceTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_custom_audience",
			mcp.WithDescription("Create an empty custom audience in an ad account"),
			mcp.WithString("account_id", mcp.Required(), mcp.Description("Ad account id, e.g. act_123")),
			mcp.WithString("name", mcp.Required(), mcp.Description("Audience name")),
			mcp.WithString("description", mcp.Description("Audience description")),
			mcp.WithString("subtype", mcp.Description("Audience subtype, default CUSTOM")),
		),
		s.handleCreateCustomAudience,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"add_audience_members",
			mcp.WithDescription("Upload hashed member identifiers to a custom audience in provider-sized batches"),
			mcp.WithString("audience_id", mcp.Required(), mcp.Description("Custom audience id")),
			mcp.WithString("schema", mcp.Description("Identifier schema, default EMAIL_SHA256")),
			mcp.WithArray("members", mcp.Required(), mcp.Description("SHA-256 hashed identifiers"),
				mcp.Items(map[string]any{"type": "string"})),
		),
		s.handleAddAudienceMembers,
	)
}

func (s *Server) handleCreateCustomAudience(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	params := map[string]any{
		"name":                 name,
		"subtype":              request.GetString("subtype", "CUSTOM"),
		"customer_file_source": "USER_PROVIDED_ONLY",
	}
	if desc := request.GetString("description", ""); desc != "" {
		params["description"] = desc
	}

	body, apiErr := s.api.Post(ctx, creds, accountID+"/customaudiences", params)
	if apiErr != nil {
		return mapDomainError(apiErr), nil
	}
	return rawResult(body), nil
}

func (s *Server) handleAddAudienceMembers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	creds, errResp := s.authUser(ctx)
	if errResp != nil {
		return errResp, nil
	}
	audienceID, err := request.RequireString("audience_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	members := request.GetStringSlice("members", nil)
	if len(members) == 0 {
		return toolError("invalid_request", "members must contain at least one identifier"), nil
	}
	schema := request.GetString("schema", "EMAIL_SHA256")

	result := fbapi.SubmitChunked(ctx, s.api, creds, members, s.audienceBatchSize, func(chunk []string) fbapi.Request {
		rows := make([][]string, len(chunk))
		for i, m := range chunk {
			rows[i] = []string{m}
		}
		return fbapi.Request{
			Method: http.MethodPost,
			Path:   audienceID + "/users",
			Params: map[string]any{
				"payload": map[string]any{
					"schema": []string{schema},
					"data":   rows,
				},
			},
		}
	})
	return toolResult(result), nil
}
