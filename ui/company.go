package ui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/qyinm/yentui/types"
)

const (
	noInsightsText    = "No specific insights available."
	noSignalText      = "Signal not available."
	stockMissingText  = "Stock data currently unavailable."
	stockPrivateText  = "Stock info N/A (e.g., private)."
	addToWatchText    = "➕ Add to Watchlist"
	onWatchlistText   = "✅ On Watchlist"
	privateTickerText = "Private"
)

type insightPanel struct {
	key   string
	title string
}

var (
	watchlistPanels = []insightPanel{
		{types.DetailInvestmentNews, "Latest Buzz 📰"},
		{types.DetailPlanetImpactBrief, "Planet Vibe 🌱"},
		{types.DetailSocialVibeBrief, "People Vibe 🤝"},
	}
	productPanels = []insightPanel{
		{types.DetailBusinessSummary, "The Lowdown 📝"},
		{types.DetailSocialVibe, "Social Scene 🌍"},
		{types.DetailPlanetImpact, "Eco-Check 🌱"},
		{types.DetailCompetitors, "Rivals & Options 🚀"},
	}

	// Texts the backend emits when the model produced nothing useful.
	insightPlaceholders = []string{
		"ai is stumped on this one!",
		"ai is quiet on this one.",
		"ai content issue",
		"ai gave an empty response.",
		"error fetching this insight.",
	}

	numberedItem   = regexp.MustCompile(`^\d+\.\s`)
	numberedInline = regexp.MustCompile(`\n\d+\.\s`)
	leadingFloat   = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)
)

// tickerLabel returns the ticker badge text; ok is false when it is hidden.
func tickerLabel(ticker string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	switch t {
	case "PRIVATE", "UNKNOWN":
		return privateTickerText, true
	case "", "N/A":
		return "", false
	}
	return t, true
}

// recommendationLabel maps the backend's free-text signal to its display form.
func recommendationLabel(rec string) string {
	r := strings.ToLower(rec)
	switch {
	case strings.Contains(r, "strong buy"):
		return "Strong Buy 💪"
	case strings.Contains(r, "buy"):
		return "Buy 👍"
	case strings.Contains(r, "wait") || strings.EqualFold(rec, "N/A"):
		return "Stable ⚖️"
	case strings.Contains(r, "sell") && !strings.Contains(r, "strong"):
		return "Sell 👎"
	case strings.Contains(r, "strong sell"):
		return "Strong Sell 🚨"
	}
	return rec
}

// recommendationNote returns the note under the signal, or "".
func recommendationNote(p types.CompanyProfile) string {
	rec := p.Detail(types.DetailRecommendation)
	recErr := p.Detail(types.DetailRecommendationError)
	if recErr != "" {
		return recErr
	}
	if strings.EqualFold(rec, "N/A") {
		return noSignalText
	}
	return ""
}

func parseLeadingFloat(s string) (float64, bool) {
	match := leadingFloat.FindString(s)
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	return f, err == nil
}

// formatStockValue renders a stringified number with two decimals.
func formatStockValue(value string, percent bool) string {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "N/A") {
		return "N/A"
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, v)
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	f, ok := parseLeadingFloat(cleaned)
	if !ok {
		return v
	}
	out := strconv.FormatFloat(f, 'f', 2, 64)
	if percent {
		out += "%"
	}
	return out
}

// changeArrow returns ▲ or ▼ for a signed change, or "" when flat.
func changeArrow(change string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, change)
	f, _ := parseLeadingFloat(cleaned)
	switch {
	case f > 0:
		return "▲"
	case f < 0:
		return "▼"
	}
	return ""
}

func isInsightPlaceholder(text string) bool {
	t := strings.ToLower(text)
	for _, p := range insightPlaceholders {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

type insightSection struct {
	title string
	lines []insightLine
}

type insightLine struct {
	bullet bool
	label  string
	text   string
}

// insightSections picks the panels with usable content, in display order.
func insightSections(p types.CompanyProfile, product bool) []insightSection {
	panels := watchlistPanels
	if product {
		panels = productPanels
	}
	var out []insightSection
	for _, panel := range panels {
		content := p.Detail(panel.key)
		if strings.TrimSpace(content) == "" || isInsightPlaceholder(content) {
			continue
		}
		out = append(out, insightSection{title: panel.title, lines: parseInsight(content)})
	}
	return out
}

// parseInsight splits list-shaped content into bullets with optional
// Good:/Bad:/Note: labels. Other content stays a single paragraph.
func parseInsight(content string) []insightLine {
	if !strings.Contains(content, "\n- ") && !strings.Contains(content, "\n* ") &&
		!numberedInline.MatchString(content) {
		return []insightLine{{text: content}}
	}
	var out []insightLine
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "- ") && !strings.HasPrefix(t, "* ") && !numberedItem.MatchString(t) {
			out = append(out, insightLine{text: t})
			continue
		}
		item := t[strings.Index(t, " ")+1:]
		lower := strings.ToLower(item)
		il := insightLine{bullet: true, text: item}
		for _, label := range []string{"Good:", "Bad:", "Note:"} {
			if strings.HasPrefix(lower, strings.ToLower(label)) {
				il.label = label
				il.text = item[len(label):]
				break
			}
		}
		out = append(out, il)
	}
	return out
}

type cardOptions struct {
	product bool
	// watched is only consulted for product cards.
	watched bool
	width   int
	err     string
}

// renderCompanyCard draws a company card. A nil profile renders the loading
// or error placeholder under the name.
func renderCompanyCard(s Styles, name string, profile *types.CompanyProfile, opts cardOptions) string {
	var b strings.Builder

	display := name
	if profile != nil && profile.CompanyName() != "" {
		display = profile.CompanyName()
	}
	if display == "" {
		display = "Loading..."
	}
	header := s.Title.Render(display)
	if profile != nil {
		if t, ok := tickerLabel(profile.TickerSymbol()); ok {
			header += " " + s.Subtle.Render("["+t+"]")
		}
	}
	b.WriteString(header)
	b.WriteString("\n")

	switch {
	case opts.err != "":
		b.WriteString(s.Error.Render(opts.err))
		return s.Card.Width(cardWidth(opts.width)).Render(b.String())
	case profile == nil:
		b.WriteString(s.Subtle.Render("Fetching profile..."))
		return s.Card.Width(cardWidth(opts.width)).Render(b.String())
	}

	if rec := profile.Detail(types.DetailRecommendation); rec != "" {
		b.WriteString(s.InputLabel.Render("Signal: "))
		b.WriteString(s.Accent.Render(recommendationLabel(rec)))
		b.WriteString("\n")
		if note := recommendationNote(*profile); note != "" {
			b.WriteString(s.Subtle.Render(note))
			b.WriteString("\n")
		}
	}

	b.WriteString(renderVitals(s, *profile))
	b.WriteString("\n")

	sections := insightSections(*profile, opts.product)
	if len(sections) == 0 {
		b.WriteString(s.Subtle.Render(noInsightsText))
		b.WriteString("\n")
	}
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(s.Accent.Bold(true).Render(sec.title))
		b.WriteString("\n")
		for _, l := range sec.lines {
			b.WriteString(renderInsightLine(s, l))
			b.WriteString("\n")
		}
	}

	if opts.product {
		b.WriteString("\n")
		if opts.watched {
			b.WriteString(s.Success.Render(onWatchlistText))
		} else {
			b.WriteString(s.Button.Render(addToWatchText) + s.Subtle.Render("  (w)"))
		}
	}

	return s.Card.Width(cardWidth(opts.width)).Render(strings.TrimRight(b.String(), "\n"))
}

func renderVitals(s Styles, p types.CompanyProfile) string {
	sd := p.Stock()
	if sd == nil {
		t := strings.ToUpper(strings.TrimSpace(p.TickerSymbol()))
		if t != "" && t != "PRIVATE" && t != "UNKNOWN" {
			msg := p.StockError()
			if msg == "" {
				msg = stockMissingText
			}
			return s.Warning.Render(msg)
		}
		return s.Subtle.Render(stockPrivateText)
	}

	month := "N/A"
	if sd.HasMonthChange {
		month = formatStockValue(sd.MonthChangePercent, true)
	}
	day := formatStockValue(sd.ChangePercent, true)
	dayStyle := s.Body
	arrow := changeArrow(sd.ChangePercent)
	switch arrow {
	case "▲":
		dayStyle = s.PriceUp
	case "▼":
		dayStyle = s.PriceDown
	}

	price := formatStockValue(sd.Price, false)
	if arrow != "" {
		price = dayStyle.Render(arrow) + " " + price
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		vital(s, "Price", price),
		vital(s, "Day", dayStyle.Render(day)),
		vital(s, "Month", month),
	)
}

func vital(s Styles, label, value string) string {
	return lipgloss.NewStyle().Width(16).Render(s.Subtle.Render(label) + "\n" + value)
}

func renderInsightLine(s Styles, l insightLine) string {
	if !l.bullet {
		return s.Body.Render(l.text)
	}
	prefix := "• "
	switch l.label {
	case "Good:":
		return prefix + s.GoodLabel.Render(l.label) + s.Body.Render(l.text)
	case "Bad:":
		return prefix + s.BadLabel.Render(l.label) + s.Body.Render(l.text)
	case "Note:":
		return prefix + s.NoteLabel.Render(l.label) + s.Body.Render(l.text)
	}
	return prefix + s.Body.Render(l.text)
}

func cardWidth(available int) int {
	w := available - 4
	if w < 30 {
		w = 30
	}
	return w
}

func productHeadline(name string) string {
	return fmt.Sprintf("Identified Product: %s", name)
}
