package mcpsrv

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qyinm/yentui/types"
)

type fakeSource struct {
	mu          sync.Mutex
	news        types.NewsPage
	analysis    types.ArticleAnalysis
	profiles    map[string]types.CompanyProfile
	reply       string
	lastQuery   types.NewsQuery
	cleared     bool
	failNews    bool
	failProfile map[string]error
	failChat    bool
}

func newFakeSource() *fakeSource {
	article := types.NewArticle("Fed holds rates", "Policy unchanged", "https://news.example/fed", "", "Wire")
	return &fakeSource{
		news:     types.NewsPage{Articles: []types.Article{article}, RawCount: 1, TotalResults: 12},
		analysis: types.NewArticleAnalysis("Rates stay put.", "Fed said nah.", "Bonds steady.", 2),
		profiles: map[string]types.CompanyProfile{
			"Apple": types.NewCompanyProfile("Apple Inc.", "AAPL", "", &types.StockData{Price: "182.5", ChangePercent: "1.1%"}, "", map[string]string{
				types.DetailRecommendation: "Buy",
			}),
			"Tesla": types.NewCompanyProfile("Tesla", "TSLA", "", nil, "", nil),
		},
		reply:       "Inflation is cooling.",
		failProfile: map[string]error{},
	}
}

func (f *fakeSource) GetNews(_ context.Context, q types.NewsQuery) (types.NewsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	if f.failNews {
		return types.NewsPage{}, &types.ServerError{Status: 500, Message: "Error fetching local news."}
	}
	return f.news, nil
}

func (f *fakeSource) GetArticleAnalysis(_ context.Context, _ string) (types.ArticleAnalysis, error) {
	return f.analysis, nil
}

func (f *fakeSource) SendChat(_ context.Context, _ string) (string, error) {
	if f.failChat {
		return "", &types.NetworkError{Op: "send chat", Err: errors.New("connection refused")}
	}
	return f.reply, nil
}

func (f *fakeSource) GetCompanyProfile(_ context.Context, name string) (types.CompanyProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failProfile[name]; err != nil {
		return types.CompanyProfile{}, err
	}
	p, ok := f.profiles[name]
	if !ok {
		return types.CompanyProfile{}, &types.ServerError{Status: 404, Message: "Company not found."}
	}
	return p, nil
}

func (f *fakeSource) AnalyzeProductImage(_ context.Context, _ []byte, _ string) (types.ProductIdentification, error) {
	return types.ProductIdentification{}, errors.New("not used")
}

func (f *fakeSource) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
}

func (f *fakeSource) wasCleared() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func TestToolNewsInvalidArgs(t *testing.T) {
	cases := []newsGetArgs{
		{Kind: "regional"},
		{Kind: "local", Page: -1},
		{Kind: "local", PageSize: 500},
		{Kind: "local", Country: "usa"},
	}
	for _, args := range cases {
		result, _, err := newsGetHandler(context.Background(), nil, args, newFakeSource(), discardLogger())
		if err != nil {
			t.Fatalf("unexpected handler error: %v", err)
		}
		if result == nil || !result.IsError {
			t.Fatalf("expected IsError result for %+v", args)
		}
	}
}

func TestToolNewsBuildsQuery(t *testing.T) {
	src := newFakeSource()
	_, out, err := newsGetHandler(context.Background(), nil, newsGetArgs{Kind: "Global", Keywords: "AI, chips,ai"}, src, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != "global" || out.Page != 1 || out.TotalResults != 12 || len(out.Items) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if src.lastQuery.PageSize != defaultPageSize || len(src.lastQuery.Keywords) != 2 {
		t.Fatalf("unexpected query: %+v", src.lastQuery)
	}

	_, _, _ = newsGetHandler(context.Background(), nil, newsGetArgs{Kind: "local", Country: "GB", Page: 3}, src, discardLogger())
	if src.lastQuery.Country != "gb" || src.lastQuery.Page != 3 || src.lastQuery.Keywords != nil {
		t.Fatalf("unexpected local query: %+v", src.lastQuery)
	}
}

func TestToolRequiredArgs(t *testing.T) {
	src := newFakeSource()
	r1, _, _ := articleAnalysisGetHandler(context.Background(), nil, articleAnalysisGetArgs{URL: " "}, src, discardLogger())
	r2, _, _ := companyProfileGetHandler(context.Background(), nil, companyProfileGetArgs{}, src, discardLogger())
	r3, _, _ := watchlistProfilesGetHandler(context.Background(), nil, watchlistProfilesGetArgs{Companies: []string{" ", ""}}, src, 2)
	r4, _, _ := chatSendHandler(context.Background(), nil, chatSendArgs{Message: "\n"}, src, discardLogger())
	for i, r := range []*mcp.CallToolResult{r1, r2, r3, r4} {
		if r == nil || !r.IsError {
			t.Fatalf("case %d: expected IsError for missing argument", i)
		}
	}
}

func TestToolUpstreamFailuresIsError(t *testing.T) {
	f1 := newFakeSource()
	f1.failNews = true
	r1, _, _ := newsGetHandler(context.Background(), nil, newsGetArgs{Kind: "local"}, f1, discardLogger())
	if r1 == nil || !r1.IsError {
		t.Fatalf("news failure must return IsError")
	}
	if text := resultText(r1); text != "Error fetching local news." {
		t.Fatalf("unexpected error text: %q", text)
	}

	r2, _, _ := companyProfileGetHandler(context.Background(), nil, companyProfileGetArgs{Company: "Nobody"}, newFakeSource(), discardLogger())
	if r2 == nil || !r2.IsError || resultText(r2) != "Company not found." {
		t.Fatalf("profile failure must return IsError with the backend message")
	}

	f3 := newFakeSource()
	f3.failChat = true
	r3, _, _ := chatSendHandler(context.Background(), nil, chatSendArgs{Message: "hi"}, f3, discardLogger())
	if r3 == nil || !r3.IsError || resultText(r3) != "chat request failed; backend unreachable" {
		t.Fatalf("chat failure must return IsError, got %q", resultText(r3))
	}
}

func TestToolWatchlistProfiles(t *testing.T) {
	src := newFakeSource()
	src.failProfile["Tesla"] = &types.NetworkError{Op: "fetch profile", Err: errors.New("timeout")}

	result, out, err := watchlistProfilesGetHandler(context.Background(), nil, watchlistProfilesGetArgs{
		Companies: []string{"Apple", "apple", "Tesla", "Nobody"},
	}, src, 2)
	if err != nil || result != nil {
		t.Fatalf("unexpected failure: %v %v", err, result)
	}
	if out.Total != 3 || out.Failed != 2 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.Items[0].Company != "Apple" || out.Items[0].Profile == nil || out.Items[0].Profile.Signal != "buy" {
		t.Fatalf("unexpected first item: %+v", out.Items[0])
	}
	if out.Items[1].Error != "fetch company profile failed; backend unreachable" {
		t.Fatalf("unexpected network error text: %q", out.Items[1].Error)
	}
	if out.Items[2].Error != "Company not found." {
		t.Fatalf("unexpected not-found text: %q", out.Items[2].Error)
	}

	many := make([]string, maxWatchlistBatch+1)
	for i := range many {
		many[i] = strings.Repeat("x", i+1)
	}
	r, _, _ := watchlistProfilesGetHandler(context.Background(), nil, watchlistProfilesGetArgs{Companies: many}, src, 2)
	if r == nil || !r.IsError {
		t.Fatalf("oversized batch must return IsError")
	}
}

func TestChatToolGating(t *testing.T) {
	ctx := context.Background()
	srvWithout := startTestServer(newFakeSource(), Config{}, &ServerOptions{EnableChat: false})
	defer srvWithout.Close()

	sessionWithout := connectTestClient(t, ctx, srvWithout.URL+"/mcp")
	toolsWithout, err := sessionWithout.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools (without chat): %v", err)
	}
	sessionWithout.Close()
	if containsTool(toolsWithout.Tools, "chat_send") {
		t.Fatalf("chat_send should be absent when disabled")
	}

	srvWith := startTestServer(newFakeSource(), Config{}, &ServerOptions{EnableChat: true})
	defer srvWith.Close()
	sessionWith := connectTestClient(t, ctx, srvWith.URL+"/mcp")
	defer sessionWith.Close()
	toolsWith, err := sessionWith.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools (with chat): %v", err)
	}
	if !containsTool(toolsWith.Tools, "chat_send") {
		t.Fatalf("chat_send should be present when enabled")
	}

	result, err := sessionWith.CallTool(ctx, &mcp.CallToolParams{Name: "chat_send", Arguments: map[string]any{"message": "inflation?"}})
	if err != nil {
		t.Fatalf("chat tool call failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("chat tool returned IsError=true")
	}
}

func TestAdminCacheClearGating(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()

	for _, opts := range []*ServerOptions{{EnableAdmin: false}, {EnableAdmin: true}} {
		srv := startTestServer(src, Config{}, opts)
		session := connectTestClient(t, ctx, srv.URL+"/mcp")
		tools, err := session.ListTools(ctx, nil)
		session.Close()
		srv.Close()
		if err != nil {
			t.Fatalf("list tools: %v", err)
		}
		if containsTool(tools.Tools, "cache_clear") {
			t.Fatalf("cache_clear should be absent for %+v", opts)
		}
	}

	srvWith := startTestServer(src, Config{}, &ServerOptions{EnableAdmin: true, APIKey: "secret"})
	defer srvWith.Close()
	sessionWith := connectTestClient(t, ctx, srvWith.URL+"/mcp")
	toolsWith, err := sessionWith.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools with admin: %v", err)
	}
	sessionWith.Close()
	if !containsTool(toolsWith.Tools, "cache_clear") {
		t.Fatalf("cache_clear should be present when admin enabled")
	}
}

func TestAdminCacheClearCallsSource(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	srv := startTestServer(src, Config{}, &ServerOptions{EnableAdmin: true, APIKey: "secret"})
	defer srv.Close()

	session := connectTestClient(t, ctx, srv.URL+"/mcp")
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "cache_clear", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call cache_clear: %v", err)
	}
	if result.IsError {
		t.Fatalf("cache_clear returned tool error")
	}
	if !src.wasCleared() {
		t.Fatalf("expected source.ClearCache to be called")
	}
}

func TestCacheJanitor(t *testing.T) {
	src := newFakeSource()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunCacheJanitor(ctx, 5*time.Millisecond, src, nil)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !src.wasCleared() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if !src.wasCleared() {
		t.Fatalf("janitor never cleared the cache")
	}

	RunCacheJanitor(context.Background(), 0, src, nil)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := Config{APIKey: "secret", RPS: 100, Burst: 100}
	cases := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"bearer", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"x-api-key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"malformed bearer", map[string]string{"Authorization": "Bearer"}, http.StatusUnauthorized},
		{"wrong key", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := startTestServer(newFakeSource(), cfg, &ServerOptions{})
			defer srv.Close()

			resp, err := postInitialize(srv.URL+"/mcp", tc.headers)
			if err != nil {
				t.Fatalf("initialize request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestOriginAllowlistMiddleware(t *testing.T) {
	srv := startTestServer(newFakeSource(), Config{RPS: 100, Burst: 100}, &ServerOptions{})
	defer srv.Close()

	headers := map[string]string{"Origin": "https://evil.example"}
	resp, err := postInitialize(srv.URL+"/mcp", headers)
	if err != nil {
		t.Fatalf("initialize request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestOriginAllowlistMiddlewareAllowed(t *testing.T) {
	srv := startTestServer(newFakeSource(), Config{AllowedOrigins: []string{"https://app.example"}, RPS: 100, Burst: 100}, &ServerOptions{})
	defer srv.Close()

	headers := map[string]string{"Origin": "https://app.example"}
	resp, err := postInitialize(srv.URL+"/mcp", headers)
	if err != nil {
		t.Fatalf("initialize request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("unexpected allow-origin header: %q", got)
	}
}

func TestOriginAllowlistPreflight(t *testing.T) {
	srv := startTestServer(newFakeSource(), Config{AllowedOrigins: []string{"https://app.example"}, RPS: 100, Burst: 100}, &ServerOptions{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/mcp", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := startTestServer(newFakeSource(), Config{RPS: 1, Burst: 1}, &ServerOptions{})
	defer srv.Close()

	resp1, err := postInitialize(srv.URL+"/mcp", nil)
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	defer resp1.Body.Close()
	if resp1.StatusCode != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.StatusCode)
	}

	resp2, err := postInitialize(srv.URL+"/mcp", nil)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected second request 429, got %d", resp2.StatusCode)
	}
}

func TestTokenBucketRefill(t *testing.T) {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	b := newTokenBucket(20, 1, func() time.Time { return now })

	if !b.Allow() {
		t.Fatalf("first call should pass")
	}
	if b.Allow() {
		t.Fatalf("second call should be limited")
	}
	now = now.Add(60 * time.Millisecond)
	if !b.Allow() {
		t.Fatalf("bucket should refill after 60ms at 20 rps")
	}
}

func TestHealthz(t *testing.T) {
	srv := startTestServer(newFakeSource(), Config{}, &ServerOptions{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatelessGetMethod(t *testing.T) {
	handler := NewHandler(NewServer(newFakeSource(), "dev", &ServerOptions{}), StreamableOptions(Config{Stateless: true}))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestMCPCoreTools(t *testing.T) {
	ctx := context.Background()
	srv := startTestServer(newFakeSource(), Config{}, &ServerOptions{})
	defer srv.Close()

	session := connectTestClient(t, ctx, srv.URL+"/mcp")
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	for _, name := range []string{"news_get", "article_analysis_get", "company_profile_get", "watchlist_profiles_get"} {
		if !containsTool(tools.Tools, name) {
			t.Fatalf("missing tool %q", name)
		}
	}

	cases := []mcp.CallToolParams{
		{Name: "news_get", Arguments: map[string]any{"kind": "local", "country": "us"}},
		{Name: "article_analysis_get", Arguments: map[string]any{"url": "https://news.example/fed"}},
		{Name: "company_profile_get", Arguments: map[string]any{"company": "Apple"}},
		{Name: "watchlist_profiles_get", Arguments: map[string]any{"companies": []string{"Apple", "Tesla"}}},
	}
	for _, tc := range cases {
		result, err := session.CallTool(ctx, &tc)
		if err != nil {
			t.Fatalf("call tool %s failed: %v", tc.Name, err)
		}
		if result.IsError {
			t.Fatalf("tool %s returned IsError=true", tc.Name)
		}
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("YENTUI_MCP_PORT", "9090")
	t.Setenv("YENTUI_MCP_BASE_URL", "https://api.example")
	t.Setenv("YENTUI_MCP_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("YENTUI_MCP_ENABLE_ADMIN", "true")
	t.Setenv("YENTUI_MCP_API_KEY", "")
	t.Setenv("YENTUI_MCP_RPS", "-3")
	t.Setenv("YENTUI_MCP_SESSION_TIMEOUT", "bogus")

	cfg := LoadConfig()
	if cfg.Port != "9090" || cfg.BaseURL != "https://api.example" {
		t.Fatalf("unexpected endpoint config: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.RPS != 2 || cfg.SessionTimeout != 15*time.Minute {
		t.Fatalf("invalid values should fall back: rps=%v timeout=%v", cfg.RPS, cfg.SessionTimeout)
	}
	if cfg.ServerOptions().EnableAdmin {
		t.Fatalf("admin tool needs an API key")
	}
}

func startTestServer(source types.Backend, cfg Config, opts *ServerOptions) *httptest.Server {
	if cfg.RPS <= 0 {
		cfg.RPS = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 100
	}
	return httptest.NewServer(NewMux(NewServer(source, "test", opts), cfg, nil))
}

func connectTestClient(t *testing.T, ctx context.Context, endpoint string) *mcp.ClientSession {
	t.Helper()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	return session
}

func containsTool(tools []*mcp.Tool, name string) bool {
	for _, tool := range tools {
		if tool != nil && tool.Name == name {
			return true
		}
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	if tc, ok := r.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func postInitialize(url string, headers map[string]string) (*http.Response, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-06-18",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "test",
				"version": "1",
			},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(string(b)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return http.DefaultClient.Do(req)
}
