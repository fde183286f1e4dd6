package backend

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/qyinm/yentui/types"
)

type newsResponse struct {
	Status       string             `json:"status"`
	Message      string             `json:"message"`
	Articles     *[]json.RawMessage `json:"articles"`
	TotalResults int                `json:"totalResults"`
}

type rawArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl"`
	URLToImage  string `json:"urlToImage"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// decodeNews turns a news response into a validated page. Articles that do
// not decode or lack required fields are dropped.
func decodeNews(kind types.NewsKind, status int, body []byte) (types.NewsPage, error) {
	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.NewsPage{}, &types.NetworkError{Op: "decode " + kind.String() + " news", Err: err}
	}
	if resp.Status != "ok" || resp.Articles == nil {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = fmt.Sprintf("Error fetching %s news.", kind)
		}
		return types.NewsPage{}, &types.ServerError{Status: status, Message: msg}
	}

	raw := *resp.Articles
	articles := make([]types.Article, 0, len(raw))
	for _, r := range raw {
		var ra rawArticle
		if err := json.Unmarshal(r, &ra); err != nil {
			continue
		}
		image := ra.ImageURL
		if image == "" {
			image = ra.URLToImage
		}
		a := types.NewArticle(ra.Title, ra.Description, ra.URL, image, ra.Source.Name)
		if !a.Valid() {
			continue
		}
		articles = append(articles, a)
	}

	total := resp.TotalResults
	if total < 0 {
		total = 0
	}
	return types.NewsPage{Articles: articles, RawCount: len(raw), TotalResults: total}, nil
}

type analysisResponse struct {
	Summary     string   `json:"summary"`
	AltSummary  string   `json:"altSummary"`
	GenZ        string   `json:"genz"`
	ImpactText  string   `json:"impactText"`
	Impact      string   `json:"impact"`
	ImpactLevel *float64 `json:"impactLevel"`
	Error       string   `json:"error"`
}

func decodeAnalysis(status int, body []byte) (types.ArticleAnalysis, error) {
	var resp analysisResponse
	decodeErr := json.Unmarshal(body, &resp)

	if status < 200 || status > 299 {
		msg := fmt.Sprintf("Failed to load summary (Status: %d)", status)
		if decodeErr == nil && strings.TrimSpace(resp.Error) != "" {
			msg = "Error: " + strings.TrimSpace(resp.Error)
		}
		return types.ArticleAnalysis{}, &types.ServerError{Status: status, Message: msg}
	}
	if decodeErr != nil {
		return types.ArticleAnalysis{}, &types.ServerError{Status: status, Message: "Received a malformed analysis response."}
	}
	if strings.TrimSpace(resp.Error) != "" {
		return types.ArticleAnalysis{}, &types.ServerError{Status: status, Message: strings.TrimSpace(resp.Error)}
	}

	alt := firstNonEmpty(resp.AltSummary, resp.GenZ)
	impact := firstNonEmpty(resp.ImpactText, resp.Impact)
	level := 0
	if resp.ImpactLevel != nil && !math.IsNaN(*resp.ImpactLevel) {
		level = int(math.Round(math.Max(0, math.Min(5, *resp.ImpactLevel))))
	}
	return types.NewArticleAnalysis(resp.Summary, alt, impact, level), nil
}

type chatResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func decodeChat(status int, body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &types.NetworkError{Op: "decode chat", Err: err}
	}
	if resp.Response != "" {
		return resp.Response, nil
	}
	if resp.Error != "" {
		return "", &types.ServerError{Status: status, Message: resp.Error}
	}
	return "", types.ErrUnexpectedReply
}

func decodeProfile(companyName string, status int, body []byte) (types.CompanyProfile, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return types.CompanyProfile{}, &types.ServerError{
			Status:  status,
			Message: fmt.Sprintf("API Error (%d): %s", status, truncateBody(body)),
		}
	}
	if status < 200 || status > 299 {
		msg := firstNonEmpty(stringField(m, "error"), stringField(m, "detail"))
		if msg == "" {
			msg = fmt.Sprintf("Failed to load profile for %q (Status: %d)", companyName, status)
		}
		return types.CompanyProfile{}, &types.ServerError{Status: status, Message: msg}
	}
	if len(m) == 0 {
		return types.CompanyProfile{}, &types.ServerError{
			Status:  status,
			Message: fmt.Sprintf("Server returned an empty or invalid profile for %q.", companyName),
		}
	}
	return profileFromMap(m, companyName), nil
}

func decodeProductAnalysis(status int, body []byte) (types.ProductIdentification, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return types.ProductIdentification{}, &types.ServerError{
			Status:  status,
			Message: fmt.Sprintf("Analysis API Error (%d): %s", status, truncateBody(body)),
		}
	}

	ident := types.ProductIdentification{
		Product: stringField(m, "identified_product"),
		Company: stringField(m, "identified_company"),
	}

	if status < 200 || status > 299 {
		if status == http.StatusNotFound && ident.Product != "" && strings.EqualFold(ident.Company, "unknown") {
			msg := stringField(m, "error")
			if msg == "" {
				msg = fmt.Sprintf("Found: %s, but couldn't identify the parent company.", ident.Product)
			}
			return ident, &types.ServerError{Status: status, Message: msg}
		}
		msg := firstNonEmpty(stringField(m, "error"), stringField(m, "detail"))
		if msg == "" {
			msg = fmt.Sprintf("Product analysis failed (Status: %d)", status)
		}
		return types.ProductIdentification{}, &types.ServerError{Status: status, Message: msg}
	}

	if msg := stringField(m, "error"); msg != "" && ident.Product == "" && ident.Company == "" {
		return types.ProductIdentification{}, &types.ServerError{Status: status, Message: msg}
	}
	if !types.IsUnknown(ident.Company) {
		profile := profileFromMap(m, ident.Company)
		ident.Profile = &profile
	}
	return ident, nil
}

// profileFromMap converts the loosely typed profile payload shared by the
// profile and product-analysis endpoints.
func profileFromMap(m map[string]any, fallbackName string) types.CompanyProfile {
	name := firstNonEmpty(stringField(m, "company_name"), stringField(m, "identified_company"), fallbackName)

	var stock *types.StockData
	if sd, ok := m["stock_data"].(map[string]any); ok && sd != nil {
		_, hasMonth := sd["month_change_percent"]
		stock = &types.StockData{
			Symbol:             stringify(sd["symbol"]),
			Price:              stringify(sd["price"]),
			ChangePercent:      stringify(sd["change_percent"]),
			MonthChangePercent: stringify(sd["month_change_percent"]),
			HasMonthChange:     hasMonth,
		}
	}

	details := map[string]string{}
	if pd, ok := m["profile_details"].(map[string]any); ok {
		for k, v := range pd {
			if s, ok := v.(string); ok {
				details[k] = s
			}
		}
	}

	return types.NewCompanyProfile(
		name,
		stringField(m, "ticker_symbol"),
		stringField(m, "logo_url"),
		stock,
		stringField(m, "stock_error"),
		details,
	)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
