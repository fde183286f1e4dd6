package dto

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/qyinm/yentui/types"
)

var signedNumberRe = regexp.MustCompile(`[-+]?[0-9]+(?:\.[0-9]+)?`)

func FromArticle(a types.Article) Article {
	return Article{
		Title:       a.Title(),
		Description: a.Description(),
		URL:         a.URL(),
		ImageURL:    a.ImageURL(),
		Source:      a.SourceName(),
	}
}

func FromArticles(articles []types.Article) []Article {
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		out = append(out, FromArticle(a))
	}
	return out
}

func FromNewsPage(kind types.NewsKind, page int, p types.NewsPage) NewsPage {
	return NewsPage{
		Kind:         kind.String(),
		Page:         page,
		TotalResults: p.TotalResults,
		RawCount:     p.RawCount,
		Items:        FromArticles(p.Articles),
	}
}

func FromAnalysis(url string, a types.ArticleAnalysis) Analysis {
	return Analysis{
		URL:         url,
		Summary:     a.Summary(),
		AltSummary:  a.AltSummary(),
		ImpactText:  a.ImpactText(),
		ImpactLevel: types.ClampImpact(a.ImpactLevel()),
	}
}

func FromCompanyProfile(p types.CompanyProfile) CompanyProfile {
	ticker := strings.ToUpper(strings.TrimSpace(p.TickerSymbol()))
	rec := p.Detail(types.DetailRecommendation)

	out := CompanyProfile{
		Name:           p.CompanyName(),
		Ticker:         ticker,
		Listed:         listedTicker(ticker),
		LogoURL:        p.LogoURL(),
		Recommendation: rec,
		Signal:         parseSignal(rec),
		StockError:     p.StockError(),
		Details:        p.Details(),
	}
	if sd := p.Stock(); sd != nil {
		out.Stock = &Stock{
			Price:         sd.Price,
			ChangePercent: sd.ChangePercent,
			Direction:     parseDirection(sd.ChangePercent),
		}
		if sd.HasMonthChange {
			out.Stock.MonthChangePercent = sd.MonthChangePercent
		}
	}
	return out
}

func listedTicker(ticker string) bool {
	switch ticker {
	case "", "N/A", "PRIVATE", "UNKNOWN":
		return false
	}
	return true
}

// parseSignal folds the backend's free-text recommendation into
// strong_buy|buy|hold|sell|strong_sell, or "unknown".
func parseSignal(rec string) string {
	r := strings.ToLower(strings.TrimSpace(rec))
	switch {
	case r == "":
		return "unknown"
	case strings.Contains(r, "strong buy"):
		return "strong_buy"
	case strings.Contains(r, "strong sell"):
		return "strong_sell"
	case strings.Contains(r, "buy"):
		return "buy"
	case strings.Contains(r, "sell"):
		return "sell"
	case strings.Contains(r, "wait"), r == "n/a", strings.Contains(r, "hold"):
		return "hold"
	}
	return "unknown"
}

func parseDirection(change string) string {
	m := signedNumberRe.FindString(change)
	if m == "" {
		return "flat"
	}
	f, err := strconv.ParseFloat(m, 64)
	switch {
	case err != nil || f == 0:
		return "flat"
	case f > 0:
		return "up"
	default:
		return "down"
	}
}
