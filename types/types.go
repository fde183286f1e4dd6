package types

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
)

// NewsKind identifies one of the two independently paginated news feeds
type NewsKind int

const (
	Local NewsKind = iota
	Global
)

// String returns the query value the backend expects for the kind
func (k NewsKind) String() string {
	switch k {
	case Local:
		return "local"
	case Global:
		return "global"
	default:
		return "unknown"
	}
}

// Label returns the capitalized kind for display
func (k NewsKind) Label() string {
	switch k {
	case Local:
		return "Local"
	case Global:
		return "Global"
	default:
		return "Unknown"
	}
}

// Article represents a single news article as delivered by the backend
type Article struct {
	title       string
	description string
	url         string
	imageURL    string
	sourceName  string
}

// NewArticle creates a new Article with the given fields
func NewArticle(title, description, url, imageURL, sourceName string) Article {
	return Article{
		title:       title,
		description: description,
		url:         url,
		imageURL:    imageURL,
		sourceName:  sourceName,
	}
}

// Getters for Article fields
func (a Article) Title() string       { return a.title }
func (a Article) Description() string { return a.description }
func (a Article) URL() string         { return a.url }
func (a Article) ImageURL() string    { return a.imageURL }
func (a Article) SourceName() string  { return a.sourceName }

// Valid reports whether the article carries every field needed to render it.
// Articles failing this check are dropped at ingestion.
func (a Article) Valid() bool {
	return strings.TrimSpace(a.title) != "" &&
		strings.TrimSpace(a.description) != "" &&
		strings.TrimSpace(a.url) != "" &&
		strings.TrimSpace(a.sourceName) != ""
}

// Matches reports whether a lowercase, trimmed term is a substring of the
// title, description or source name, case-insensitively.
func (a Article) Matches(term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.title), term) ||
		strings.Contains(strings.ToLower(a.description), term) ||
		strings.Contains(strings.ToLower(a.sourceName), term)
}

// list.Item interface implementation
func (a Article) FilterValue() string { return a.title }

// Compile-time check that Article implements list.Item
var _ list.Item = Article{}

// NewsQuery describes one page request for a news feed
type NewsQuery struct {
	Kind     NewsKind
	Page     int
	PageSize int
	Country  string
	Keywords []string
}

// NewsPage is one validated page of a news feed. RawCount is the number of
// articles the backend sent before invalid ones were dropped.
type NewsPage struct {
	Articles     []Article
	RawCount     int
	TotalResults int
}

// ArticleAnalysis is the AI analysis of a single article
type ArticleAnalysis struct {
	summary     string
	altSummary  string
	impactText  string
	impactLevel int
}

// NewArticleAnalysis creates an ArticleAnalysis, clamping the impact level to [0,5]
func NewArticleAnalysis(summary, altSummary, impactText string, impactLevel int) ArticleAnalysis {
	return ArticleAnalysis{
		summary:     summary,
		altSummary:  altSummary,
		impactText:  impactText,
		impactLevel: ClampImpact(impactLevel),
	}
}

func (a ArticleAnalysis) Summary() string    { return a.summary }
func (a ArticleAnalysis) AltSummary() string { return a.altSummary }
func (a ArticleAnalysis) ImpactText() string { return a.impactText }
func (a ArticleAnalysis) ImpactLevel() int   { return a.impactLevel }

// ClampImpact bounds an impact level to the 0-5 scale
func ClampImpact(level int) int {
	if level < 0 {
		return 0
	}
	if level > 5 {
		return 5
	}
	return level
}

// StockData holds the already-stringified market vitals of a company.
// Values may be "N/A" or empty when the upstream had nothing.
type StockData struct {
	Symbol             string
	Price              string
	ChangePercent      string
	MonthChangePercent string
	HasMonthChange     bool
}

// Profile detail keys produced by the backend
const (
	DetailRecommendation      = "recommendation"
	DetailRecommendationError = "recommendation_error"
	DetailInvestmentNews      = "investment_news"
	DetailPlanetImpactBrief   = "planet_impact_brief"
	DetailSocialVibeBrief     = "social_vibe_brief"
	DetailBusinessSummary     = "business_summary"
	DetailSocialVibe          = "social_vibe"
	DetailPlanetImpact        = "planet_impact"
	DetailCompetitors         = "competitors_alternatives"
)

// CompanyProfile is the backend's profile of one company
type CompanyProfile struct {
	companyName  string
	tickerSymbol string
	logoURL      string
	stock        *StockData
	stockError   string
	details      map[string]string
}

// NewCompanyProfile creates a new CompanyProfile
func NewCompanyProfile(companyName, tickerSymbol, logoURL string, stock *StockData, stockError string, details map[string]string) CompanyProfile {
	if details == nil {
		details = map[string]string{}
	}
	return CompanyProfile{
		companyName:  companyName,
		tickerSymbol: tickerSymbol,
		logoURL:      logoURL,
		stock:        stock,
		stockError:   stockError,
		details:      details,
	}
}

func (p CompanyProfile) CompanyName() string  { return p.companyName }
func (p CompanyProfile) TickerSymbol() string { return p.tickerSymbol }
func (p CompanyProfile) LogoURL() string      { return p.logoURL }
func (p CompanyProfile) Stock() *StockData    { return p.stock }
func (p CompanyProfile) StockError() string   { return p.stockError }

// Detail returns one profile detail by key, or "" when absent
func (p CompanyProfile) Detail(key string) string { return p.details[key] }

// Details returns a copy of all profile details
func (p CompanyProfile) Details() map[string]string {
	out := make(map[string]string, len(p.details))
	for k, v := range p.details {
		out[k] = v
	}
	return out
}

// ProductIdentification is the result of analyzing a product image
type ProductIdentification struct {
	Product string
	Company string
	Profile *CompanyProfile
}

// IsUnknown reports whether an identified name is missing or the literal "unknown"
func IsUnknown(name string) bool {
	n := strings.TrimSpace(name)
	return n == "" || strings.EqualFold(n, "unknown")
}

// ChatMessage is one entry of the chat transcript
type ChatMessage struct {
	ID    string
	Text  string
	IsBot bool
}

// Backend is the core abstraction over the remote dashboard services.
// Every method blocks until the request completes and is safe to call from a
// tea.Cmd goroutine.
type Backend interface {
	GetNews(ctx context.Context, q NewsQuery) (NewsPage, error)
	GetArticleAnalysis(ctx context.Context, articleURL string) (ArticleAnalysis, error)
	SendChat(ctx context.Context, message string) (string, error)
	GetCompanyProfile(ctx context.Context, companyName string) (CompanyProfile, error)
	AnalyzeProductImage(ctx context.Context, image []byte, filename string) (ProductIdentification, error)
}
