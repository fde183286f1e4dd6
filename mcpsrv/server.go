// Package mcpsrv exposes the dashboard backend as MCP tools.
package mcpsrv

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/qyinm/yentui/backend"
	"github.com/qyinm/yentui/mcpsrv/dto"
	"github.com/qyinm/yentui/settings"
	"github.com/qyinm/yentui/types"
)

const (
	defaultPageSize   = 10
	maxPageSize       = 100
	maxWatchlistBatch = 20
)

type newsGetArgs struct {
	Kind     string `json:"kind" jsonschema:"News feed: local or global"`
	Page     int    `json:"page,omitempty" jsonschema:"Optional 1-based page number"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"Optional page size (1-100)"`
	Country  string `json:"country,omitempty" jsonschema:"Optional 2-letter country code for local news"`
	Keywords string `json:"keywords,omitempty" jsonschema:"Optional comma-separated keywords for global news"`
}

type articleAnalysisGetArgs struct {
	URL string `json:"url" jsonschema:"Article URL"`
}

type companyProfileGetArgs struct {
	Company string `json:"company" jsonschema:"Company name"`
}

type watchlistProfilesGetArgs struct {
	Companies []string `json:"companies" jsonschema:"Company names (at most 20)"`
}

type chatSendArgs struct {
	Message string `json:"message" jsonschema:"Question for the economics assistant"`
}

type articleAnalysisGetOutput struct {
	Item dto.Analysis `json:"item"`
}

type companyProfileGetOutput struct {
	Item dto.CompanyProfile `json:"item"`
}

type watchlistProfilesGetOutput struct {
	Total  int                 `json:"total"`
	Failed int                 `json:"failed"`
	Items  []dto.ProfileResult `json:"items"`
}

type chatSendOutput struct {
	Reply string `json:"reply"`
}

type cacheClearOutput struct {
	Status string `json:"status"`
}

type ServerOptions struct {
	EnableChat         bool
	EnableAdmin        bool
	APIKey             string
	ProfileConcurrency int
	Logger             *slog.Logger
}

type cacheClearSource interface {
	ClearCache()
}

func NewServer(source types.Backend, version string, opts *ServerOptions) *mcp.Server {
	if strings.TrimSpace(version) == "" {
		version = "dev"
	}
	if opts == nil {
		opts = &ServerOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "yentui", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "news_get",
		Description: "Get one page of local or global economic news.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args newsGetArgs) (*mcp.CallToolResult, dto.NewsPage, error) {
		return newsGetHandler(ctx, req, args, source, logger)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "article_analysis_get",
		Description: "Get the AI summary, GenZ translation and market impact of an article.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args articleAnalysisGetArgs) (*mcp.CallToolResult, articleAnalysisGetOutput, error) {
		return articleAnalysisGetHandler(ctx, req, args, source, logger)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "company_profile_get",
		Description: "Get a company's stock vitals, signal and insight briefs.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args companyProfileGetArgs) (*mcp.CallToolResult, companyProfileGetOutput, error) {
		return companyProfileGetHandler(ctx, req, args, source, logger)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "watchlist_profiles_get",
		Description: "Get profiles for several companies at once.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args watchlistProfilesGetArgs) (*mcp.CallToolResult, watchlistProfilesGetOutput, error) {
		return watchlistProfilesGetHandler(ctx, req, args, source, opts.ProfileConcurrency)
	})

	if opts.EnableChat {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "chat_send",
			Description: "Ask the economics assistant a question.",
		}, func(ctx context.Context, req *mcp.CallToolRequest, args chatSendArgs) (*mcp.CallToolResult, chatSendOutput, error) {
			return chatSendHandler(ctx, req, args, source, logger)
		})
	}

	if opts.EnableAdmin && strings.TrimSpace(opts.APIKey) != "" {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "cache_clear",
			Description: "Clear the backend response cache (admin).",
		}, func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, cacheClearOutput, error) {
			return cacheClearHandler(ctx, req, source)
		})
	}

	return server
}

func newsGetHandler(ctx context.Context, _ *mcp.CallToolRequest, args newsGetArgs, source types.Backend, logger *slog.Logger) (*mcp.CallToolResult, dto.NewsPage, error) {
	kind, err := parseKind(args.Kind)
	if err != nil {
		return errorToolResult(err.Error()), dto.NewsPage{}, nil
	}

	page := args.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return errorToolResult("page must be at least 1"), dto.NewsPage{}, nil
	}
	size := args.PageSize
	if size == 0 {
		size = defaultPageSize
	}
	if size < 1 || size > maxPageSize {
		return errorToolResult(fmt.Sprintf("page_size must be between 1 and %d", maxPageSize)), dto.NewsPage{}, nil
	}

	q := types.NewsQuery{Kind: kind, Page: page, PageSize: size}
	switch kind {
	case types.Local:
		country, err := settings.ValidateCountry(args.Country)
		if err != nil {
			return errorToolResult(err.Error()), dto.NewsPage{}, nil
		}
		q.Country = country
	case types.Global:
		q.Keywords = settings.ParseKeywords(args.Keywords)
	}

	result, err := source.GetNews(ctx, q)
	if err != nil {
		logger.Warn("news_get failed", "kind", kind.String(), "page", page, "err", err)
		return upstreamError("fetch news failed", err), dto.NewsPage{}, nil
	}
	return nil, dto.FromNewsPage(kind, page, result), nil
}

func articleAnalysisGetHandler(ctx context.Context, _ *mcp.CallToolRequest, args articleAnalysisGetArgs, source types.Backend, logger *slog.Logger) (*mcp.CallToolResult, articleAnalysisGetOutput, error) {
	url := strings.TrimSpace(args.URL)
	if url == "" {
		return errorToolResult("url is required"), articleAnalysisGetOutput{}, nil
	}

	analysis, err := source.GetArticleAnalysis(ctx, url)
	if err != nil {
		logger.Warn("article_analysis_get failed", "url", url, "err", err)
		return upstreamError("fetch article analysis failed", err), articleAnalysisGetOutput{}, nil
	}
	return nil, articleAnalysisGetOutput{Item: dto.FromAnalysis(url, analysis)}, nil
}

func companyProfileGetHandler(ctx context.Context, _ *mcp.CallToolRequest, args companyProfileGetArgs, source types.Backend, logger *slog.Logger) (*mcp.CallToolResult, companyProfileGetOutput, error) {
	name := strings.TrimSpace(args.Company)
	if name == "" {
		return errorToolResult("company is required"), companyProfileGetOutput{}, nil
	}

	profile, err := source.GetCompanyProfile(ctx, name)
	if err != nil {
		logger.Warn("company_profile_get failed", "company", name, "err", err)
		return upstreamError("fetch company profile failed", err), companyProfileGetOutput{}, nil
	}
	return nil, companyProfileGetOutput{Item: dto.FromCompanyProfile(profile)}, nil
}

func watchlistProfilesGetHandler(ctx context.Context, _ *mcp.CallToolRequest, args watchlistProfilesGetArgs, source types.Backend, concurrency int) (*mcp.CallToolResult, watchlistProfilesGetOutput, error) {
	names := make([]string, 0, len(args.Companies))
	seen := make(map[string]struct{}, len(args.Companies))
	for _, c := range args.Companies {
		name := strings.TrimSpace(c)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return errorToolResult("companies is required"), watchlistProfilesGetOutput{}, nil
	}
	if len(names) > maxWatchlistBatch {
		return errorToolResult(fmt.Sprintf("at most %d companies per call", maxWatchlistBatch)), watchlistProfilesGetOutput{}, nil
	}
	if concurrency <= 0 {
		concurrency = 3
	}

	results := backend.FetchProfiles(ctx, source, names, concurrency)
	out := watchlistProfilesGetOutput{Total: len(results), Items: make([]dto.ProfileResult, 0, len(results))}
	for _, r := range results {
		item := dto.ProfileResult{Company: r.Company}
		if r.Err != nil {
			item.Error = errorText("fetch company profile failed", r.Err)
			out.Failed++
		} else {
			p := dto.FromCompanyProfile(r.Profile)
			item.Profile = &p
		}
		out.Items = append(out.Items, item)
	}
	return nil, out, nil
}

func chatSendHandler(ctx context.Context, _ *mcp.CallToolRequest, args chatSendArgs, source types.Backend, logger *slog.Logger) (*mcp.CallToolResult, chatSendOutput, error) {
	msg := strings.TrimSpace(args.Message)
	if msg == "" {
		return errorToolResult("message is required"), chatSendOutput{}, nil
	}

	reply, err := source.SendChat(ctx, msg)
	if err != nil {
		logger.Warn("chat_send failed", "err", err)
		return upstreamError("chat request failed", err), chatSendOutput{}, nil
	}
	return nil, chatSendOutput{Reply: reply}, nil
}

func cacheClearHandler(_ context.Context, _ *mcp.CallToolRequest, source types.Backend) (*mcp.CallToolResult, cacheClearOutput, error) {
	clearable, ok := source.(cacheClearSource)
	if !ok {
		return errorToolResult("cache clear is not supported by this source"), cacheClearOutput{}, nil
	}
	clearable.ClearCache()
	return nil, cacheClearOutput{Status: "ok"}, nil
}

func errorToolResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// upstreamError surfaces the backend's own message when it sent one and the
// generic fallback otherwise.
func upstreamError(fallback string, err error) *mcp.CallToolResult {
	return errorToolResult(errorText(fallback, err))
}

func errorText(fallback string, err error) string {
	if msg, ok := types.ServerMessage(err); ok && msg != "" {
		return msg
	}
	if types.IsNetwork(err) {
		return fallback + "; backend unreachable"
	}
	return fallback
}

func parseKind(raw string) (types.NewsKind, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "local":
		return types.Local, nil
	case "global":
		return types.Global, nil
	default:
		return types.Local, fmt.Errorf("invalid kind %q; expected local|global", raw)
	}
}
