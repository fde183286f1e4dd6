package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/qyinm/yentui/types"
)

const (
	newsPath     = "/api/news"
	analysisPath = "/api/gemini-summary"
	chatPath     = "/api/chat"
	profilePath  = "/api/company_profile"
	productPath  = "/api/analyze_product_image"

	userAgent       = "yentui/1.0 (+https://github.com/qyinm/yentui)"
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 10 * time.Minute
	maxErrorBody    = 512
)

// Client implements types.Backend over the dashboard's HTTP API with an
// in-memory cache for the expensive AI-backed lookups.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	ttl     time.Duration
	cache   map[string]cachedResult
	mu      sync.Mutex
}

type cachedResult struct {
	value     any
	timestamp time.Time
}

// Compile-time interface check
var _ types.Backend = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithCacheTTL sets how long analyses and profiles are served from cache.
// Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ttl:    defaultCacheTTL,
		cache:  make(map[string]cachedResult),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClearCache clears the in-memory cache.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cachedResult)
}

func (c *Client) cached(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.timestamp) > c.ttl {
		delete(c.cache, key)
		return nil, false
	}
	return entry.value, true
}

func (c *Client) store(key string, value any) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.cache[key] = cachedResult{value: value, timestamp: time.Now()}
	c.mu.Unlock()
}

// do issues a request and returns the status code and the full body.
// Transport failures are reported as *types.NetworkError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "path", path, "err", err)
		return 0, nil, &types.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &types.NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug("backend request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "bytes", len(data), "elapsed", time.Since(start))
	return resp.StatusCode, data, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, payload any) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s payload: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, path, nil, bytes.NewReader(b), "application/json")
}

// GetNews fetches one page of a news feed and drops articles that are
// missing a title, description, url or source name.
func (c *Client) GetNews(ctx context.Context, q types.NewsQuery) (types.NewsPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("type", q.Kind.String())
	params.Set("page", fmt.Sprint(page))
	if q.PageSize > 0 {
		params.Set("pageSize", fmt.Sprint(q.PageSize))
	}
	if q.Kind == types.Local && strings.TrimSpace(q.Country) != "" {
		params.Set("country", strings.TrimSpace(q.Country))
	}
	if q.Kind == types.Global && len(q.Keywords) > 0 {
		params.Set("keywords", strings.Join(q.Keywords, " OR "))
	}

	status, body, err := c.do(ctx, "fetch "+q.Kind.String()+" news", http.MethodGet, newsPath, params, nil, "")
	if err != nil {
		return types.NewsPage{}, err
	}
	return decodeNews(q.Kind, status, body)
}

// GetArticleAnalysis fetches the AI analysis for the article at articleURL.
func (c *Client) GetArticleAnalysis(ctx context.Context, articleURL string) (types.ArticleAnalysis, error) {
	key := "analysis:" + articleURL
	if v, ok := c.cached(key); ok {
		if analysis, ok := v.(types.ArticleAnalysis); ok {
			return analysis, nil
		}
	}

	params := url.Values{}
	params.Set("url", articleURL)
	status, body, err := c.do(ctx, "fetch analysis", http.MethodGet, analysisPath, params, nil, "")
	if err != nil {
		return types.ArticleAnalysis{}, err
	}
	analysis, err := decodeAnalysis(status, body)
	if err != nil {
		return types.ArticleAnalysis{}, err
	}
	c.store(key, analysis)
	return analysis, nil
}

// SendChat posts one chat message and returns the bot reply.
func (c *Client) SendChat(ctx context.Context, message string) (string, error) {
	status, body, err := c.postJSON(ctx, "send chat", chatPath, map[string]string{"message": message})
	if err != nil {
		return "", err
	}
	return decodeChat(status, body)
}

// GetCompanyProfile fetches the profile of a single company.
func (c *Client) GetCompanyProfile(ctx context.Context, companyName string) (types.CompanyProfile, error) {
	key := "profile:" + strings.ToLower(strings.TrimSpace(companyName))
	if v, ok := c.cached(key); ok {
		if profile, ok := v.(types.CompanyProfile); ok {
			return profile, nil
		}
	}

	status, body, err := c.postJSON(ctx, "fetch profile", profilePath, map[string]string{"company_name": companyName})
	if err != nil {
		return types.CompanyProfile{}, err
	}
	profile, err := decodeProfile(companyName, status, body)
	if err != nil {
		return types.CompanyProfile{}, err
	}
	c.store(key, profile)
	return profile, nil
}

// DetectCountry probes the local feed and resolves the country the dashboard
// is effectively showing: the override when set, the backend default otherwise.
func (c *Client) DetectCountry(ctx context.Context, override string) (string, error) {
	params := url.Values{}
	params.Set("type", types.Local.String())
	params.Set("pageSize", "1")
	if _, _, err := c.do(ctx, "detect country", http.MethodGet, newsPath, params, nil, ""); err != nil {
		return "", err
	}
	if o := strings.TrimSpace(override); o != "" {
		return strings.ToUpper(o), nil
	}
	return "US (Default)", nil
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "…"
	}
	if s == "" {
		return "Unparseable server response."
	}
	return s
}
