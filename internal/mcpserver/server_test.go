package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ads-gateway/internal/config"
	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/kvstore"
	"ads-gateway/internal/ratelimit"
	"ads-gateway/internal/retry"
	"ads-gateway/internal/session"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

type testGateway struct {
	server   *Server
	sessions *session.Manager
	graph    *graphStub
}

// graphStub fakes the provider API with just enough routes for the tool
// handlers under test.
type graphStub struct {
	audienceUploads atomic.Int64
}

func (g *graphStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v23.0/")
	switch {
	case path == "me/adaccounts":
		_, _ = w.Write([]byte(`{"data":[{"id":"act_1","name":"Main","account_status":1}],"paging":{"cursors":{"after":"cur_next"}}}`))
	case path == "act_1/campaigns" && r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"data":[{"id":"c1","name":"Launch","status":"PAUSED"}],"paging":{"cursors":{"before":"cb","after":"ca"}}}`))
	case path == "act_1/campaigns" && r.Method == http.MethodPost:
		_, _ = w.Write([]byte(`{"id":"c_new"}`))
	case path == "c1" && r.Method == http.MethodPost:
		_, _ = w.Write([]byte(`{"success":true}`))
	case path == "c1" && r.Method == http.MethodDelete:
		_, _ = w.Write([]byte(`{"success":true}`))
	case path == "act_1/customaudiences":
		_, _ = w.Write([]byte(`{"id":"aud_1"}`))
	case path == "aud_1/users":
		g.audienceUploads.Add(1)
		_, _ = w.Write([]byte(`{"num_received":1}`))
	case strings.HasSuffix(path, "/insights"):
		_, _ = w.Write([]byte(`{"data":[{"impressions":"1000","spend":"12.34"}],"paging":{"cursors":{"after":""}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"unknown path","type":"GraphMethodException","code":803}}`))
	}
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	graph := &graphStub{}
	graphSrv := httptest.NewServer(graph)
	t.Cleanup(graphSrv.Close)

	limiter := ratelimit.New(ratelimit.TierStandard)
	api := fbapi.NewClient(limiter, config.ProviderConfig{
		GraphBaseURL: graphSrv.URL,
		GraphVersion: "v23.0",
		HTTPTimeout:  5 * time.Second,
	}, fbapi.WithRetryPolicy(retry.Policy{MaxAttempts: 1}))

	authCfg := config.AuthConfig{
		SessionSecret: "mcp-test-secret",
		SessionTTL:    time.Hour,
		TokenTTL:      time.Hour,
		AppID:         "app",
		AppSecret:     "secret",
		RedirectURL:   "http://localhost/auth/callback",
		Scopes:        []string{"ads_read"},
		AuthURL:       "https://provider.example/dialog/oauth",
		TokenURL:      graphSrv.URL + "/oauth/access_token",
		RefreshSkew:   10 * time.Minute,
	}
	sessions := session.NewManager(kvstore.NewMemory(), authCfg)

	return &testGateway{
		server:   New(sessions, api, config.LimitsConfig{AudienceBatchSize: 2}),
		sessions: sessions,
		graph:    graph,
	}
}

// signIn stores a session plus provider tokens and returns a bearer token
// the way the OAuth callback would.
func (g *testGateway) signIn(t *testing.T, userID string) string {
	t.Helper()
	ctx := context.Background()
	err := g.sessions.StoreUserSession(ctx, session.UserSession{UserID: userID, Name: "Test User"})
	if err != nil {
		t.Fatalf("store session: %v", err)
	}
	err = g.sessions.StoreUserTokens(ctx, userID, session.UserTokens{AccessToken: "prov-token", TokenType: "bearer"})
	if err != nil {
		t.Fatalf("store tokens: %v", err)
	}
	tok, err := g.sessions.CreateSessionToken(userID)
	if err != nil {
		t.Fatalf("create session token: %v", err)
	}
	return tok
}

func newMCPClient(t *testing.T, endpoint, bearer string) *client.Client {
	t.Helper()
	ctx := context.Background()
	var opts []transport.StreamableHTTPCOption
	if bearer != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{"Authorization": "Bearer " + bearer}))
	}
	trans, err := transport.NewStreamableHTTP(endpoint, opts...)
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	if err := trans.Start(ctx); err != nil {
		t.Fatalf("transport start: %v", err)
	}
	t.Cleanup(func() { _ = trans.Close() })
	c := client.NewClient(trans)
	_, err = c.Initialize(ctx, mcp.InitializeRequest{Params: mcp.InitializeParams{ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION}})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c
}

func mustCallTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := c.CallTool(context.Background(), mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}})
	if err != nil {
		t.Fatalf("call tool %s: %v", name, err)
	}
	return res
}

func mapFromStructured(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	b, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	return out
}

func assertToolErrorCode(t *testing.T, res *mcp.CallToolResult, want string) {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected tool error %q, got success: %v", want, res.StructuredContent)
	}
	payload := mapFromStructured(t, res)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error payload missing 'error': %v", payload)
	}
	if got, _ := errObj["code"].(string); got != want {
		t.Fatalf("error code = %q, want %q (payload %v)", got, want, payload)
	}
}

func TestToolCatalog(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	c := newMCPClient(t, httpSrv.URL, "")
	res, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	got := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		got = append(got, tool.Name)
	}
	expected := []string{
		"get_login_link",
		"logout",
		"get_ad_accounts",
		"get_account_info",
		"get_campaigns",
		"create_campaign",
		"update_campaign",
		"delete_campaign",
		"create_custom_audience",
		"add_audience_members",
		"get_insights",
	}
	sort.Strings(got)
	sort.Strings(expected)
	if len(got) != len(expected) {
		t.Fatalf("tool count mismatch got=%v expected=%v", got, expected)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Fatalf("tool list mismatch got=%v expected=%v", got, expected)
		}
	}
}

func TestToolsRequireSession(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	c := newMCPClient(t, httpSrv.URL, "")
	res := mustCallTool(t, c, "get_ad_accounts", map[string]any{})
	assertToolErrorCode(t, res, "unauthorized")

	res = mustCallTool(t, c, "logout", map[string]any{})
	assertToolErrorCode(t, res, "unauthorized")
}

func TestGetLoginLinkWithoutSession(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	c := newMCPClient(t, httpSrv.URL, "")
	res := mustCallTool(t, c, "get_login_link", map[string]any{})
	if res.IsError {
		t.Fatalf("get_login_link error: %v", res.StructuredContent)
	}
	payload := mapFromStructured(t, res)
	loginURL, _ := payload["login_url"].(string)
	if !strings.HasPrefix(loginURL, "https://provider.example/dialog/oauth") {
		t.Fatalf("login_url = %q", loginURL)
	}
	if !strings.Contains(loginURL, "state=") {
		t.Fatalf("login_url missing state: %q", loginURL)
	}
}

func TestAccountAndCampaignTools(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	c := newMCPClient(t, httpSrv.URL, gw.signIn(t, "user-1"))

	accounts := mustCallTool(t, c, "get_ad_accounts", map[string]any{})
	if accounts.IsError {
		t.Fatalf("get_ad_accounts error: %v", accounts.StructuredContent)
	}
	payload := mapFromStructured(t, accounts)
	data, _ := payload["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected one account, got %v", payload)
	}
	if cursor, _ := payload["cursor_after"].(string); cursor != "cur_next" {
		t.Fatalf("cursor_after = %q", cursor)
	}

	campaigns := mustCallTool(t, c, "get_campaigns", map[string]any{
		"account_id":       "act_1",
		"effective_status": "ACTIVE, PAUSED",
	})
	if campaigns.IsError {
		t.Fatalf("get_campaigns error: %v", campaigns.StructuredContent)
	}
	payload = mapFromStructured(t, campaigns)
	if hasNext, _ := payload["has_next"].(bool); !hasNext {
		t.Fatalf("expected has_next, got %v", payload)
	}

	created := mustCallTool(t, c, "create_campaign", map[string]any{
		"account_id": "act_1",
		"name":       "Launch",
		"objective":  "OUTCOME_TRAFFIC",
	})
	if created.IsError {
		t.Fatalf("create_campaign error: %v", created.StructuredContent)
	}
	payload = mapFromStructured(t, created)
	if id, _ := payload["id"].(string); id != "c_new" {
		t.Fatalf("created id = %q", id)
	}

	emptyUpdate := mustCallTool(t, c, "update_campaign", map[string]any{"campaign_id": "c1"})
	assertToolErrorCode(t, emptyUpdate, "invalid_request")

	updated := mustCallTool(t, c, "update_campaign", map[string]any{"campaign_id": "c1", "status": "ACTIVE"})
	if updated.IsError {
		t.Fatalf("update_campaign error: %v", updated.StructuredContent)
	}

	deleted := mustCallTool(t, c, "delete_campaign", map[string]any{"campaign_id": "c1"})
	if deleted.IsError {
		t.Fatalf("delete_campaign error: %v", deleted.StructuredContent)
	}
}

func TestAudienceUploadChunks(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	c := newMCPClient(t, httpSrv.URL, gw.signIn(t, "user-1"))

	created := mustCallTool(t, c, "create_custom_audience", map[string]any{
		"account_id": "act_1",
		"name":       "Churned",
	})
	if created.IsError {
		t.Fatalf("create_custom_audience error: %v", created.StructuredContent)
	}

	// Five members against a batch size of two makes three chunks.
	res := mustCallTool(t, c, "add_audience_members", map[string]any{
		"audience_id": "aud_1",
		"members":     []string{"h1", "h2", "h3", "h4", "h5"},
	})
	if res.IsError {
		t.Fatalf("add_audience_members error: %v", res.StructuredContent)
	}
	payload := mapFromStructured(t, res)
	if succeeded, _ := payload["succeeded"].(float64); succeeded != 3 {
		t.Fatalf("succeeded = %v, want 3", payload["succeeded"])
	}
	if got := gw.graph.audienceUploads.Load(); got != 3 {
		t.Fatalf("upload requests = %d, want 3", got)
	}

	empty := mustCallTool(t, c, "add_audience_members", map[string]any{
		"audience_id": "aud_1",
		"members":     []string{},
	})
	assertToolErrorCode(t, empty, "invalid_request")
}

func TestInsightsTool(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	c := newMCPClient(t, httpSrv.URL, gw.signIn(t, "user-1"))
	res := mustCallTool(t, c, "get_insights", map[string]any{
		"object_id":   "c1",
		"date_preset": "last_7d",
	})
	if res.IsError {
		t.Fatalf("get_insights error: %v", res.StructuredContent)
	}
	payload := mapFromStructured(t, res)
	data, _ := payload["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected one insight row, got %v", payload)
	}
	if hasNext, _ := payload["has_next"].(bool); hasNext {
		t.Fatalf("empty after-cursor must not report another page: %v", payload)
	}
}

func TestUnknownObjectMapsToNotFound(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	c := newMCPClient(t, httpSrv.URL, gw.signIn(t, "user-1"))
	res := mustCallTool(t, c, "get_account_info", map[string]any{"account_id": "act_404"})
	assertToolErrorCode(t, res, "not_found")
}

func TestLogoutDeletesSession(t *testing.T) {
	gw := newTestGateway(t)
	httpSrv := httptest.NewServer(gw.server.Handler())
	defer httpSrv.Close()

	bearer := gw.signIn(t, "user-1")
	c := newMCPClient(t, httpSrv.URL, bearer)

	res := mustCallTool(t, c, "logout", map[string]any{})
	if res.IsError {
		t.Fatalf("logout error: %v", res.StructuredContent)
	}

	after := mustCallTool(t, c, "get_ad_accounts", map[string]any{})
	assertToolErrorCode(t, after, "unauthorized")
}
