package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/qyinm/yentui/settings"
)

// View renders the current view
func (m Model) View() string {
	if m.width == 0 {
		return "Loading...\n"
	}

	header := m.renderTabs() + "\n" + m.styles.Title.Render(m.tab.Title()) + "\n"

	var body string
	switch m.tab {
	case TabLocal, TabGlobal:
		body = m.renderNews()
	case TabInsights:
		body = m.renderInsights()
	case TabSettings:
		body = m.renderSettings()
	}

	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	fit := func(body string, h int) string {
		return lipgloss.NewStyle().Width(m.contentWidth()).MaxHeight(h).Render(body)
	}

	switch {
	case m.panelView.Docked:
		chat := m.styles.Panel.Width(chatDockWidth - 2).Height(bodyHeight).Render(m.renderChat(chatDockWidth-4, bodyHeight))
		body = lipgloss.JoinHorizontal(lipgloss.Top, fit(body, bodyHeight), chat)
	case m.panelView.Floating:
		w := m.contentWidth() * 2 / 3
		if w < 30 {
			w = m.contentWidth()
		}
		chat := m.styles.Card.Width(w).Render(m.renderChat(w-4, bodyHeight/2))
		rest := bodyHeight - lipgloss.Height(chat)
		if rest < 0 {
			rest = 0
		}
		body = lipgloss.JoinVertical(lipgloss.Right, fit(body, rest), chat)
	default:
		body = fit(body, bodyHeight)
	}

	if m.modal.open() {
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, m.renderModal())
	}

	return header + body + "\n" + m.renderFooter()
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, len(tabOrder))
	for i, t := range tabOrder {
		label := fmt.Sprintf("%d %s", i+1, t)
		if t == m.tab {
			parts = append(parts, m.styles.ActiveTab.Render("["+label+"]"))
		} else {
			parts = append(parts, m.styles.InactiveTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderFooter() string {
	var status string
	switch {
	case m.prefs.confirmReset:
		status = m.styles.Warning.Render(resetConfirmText)
	case m.status != "":
		status = m.styles.StatusBar.Render(m.status)
	case m.panelView.BubbleVisible:
		status = m.styles.Bubble.Render("💬 Chat (c)")
	}

	m.help.ShowAll = m.showHelp
	return status + "\n" + m.help.View(m.keys)
}

func (m Model) renderNews() string {
	c := m.activeCollection()
	var b strings.Builder

	if m.focus == focusSearch {
		b.WriteString(m.search.View())
	} else if m.searching() {
		b.WriteString(m.styles.Subtle.Render("/ " + m.searchTerm + "  (esc clears)"))
	} else {
		b.WriteString(m.styles.Subtle.Render("press / to search"))
	}
	b.WriteString("\n")

	switch {
	case c.resetInFlight:
		b.WriteString(m.spinner.View() + " " + m.styles.Subtle.Render(fmt.Sprintf("Loading %s news...", c.kind)))
	case c.err != "" && len(c.items) == 0:
		b.WriteString(m.styles.Error.Render(c.err))
	case len(c.filtered) == 0:
		b.WriteString(m.styles.Subtle.Render(emptyNewsText(c.kind)))
	default:
		b.WriteString(m.list.View())
	}

	if c.err != "" && len(c.items) > 0 {
		b.WriteString("\n" + m.styles.Error.Render(c.err))
	}
	if m.loadMoreVisible(c) {
		b.WriteString("\n" + m.styles.Button.Render(loadMoreLabel(c)) + m.styles.Subtle.Render("  (m)"))
	}
	return b.String()
}

func (m Model) renderInsights() string {
	w := &m.watch
	width := m.contentWidth()
	var b strings.Builder

	b.WriteString(m.styles.Accent.Bold(true).Render("Watched Companies"))
	b.WriteString(m.styles.Subtle.Render("  (e edit, r refresh, x remove)"))
	b.WriteString("\n")

	if w.editing {
		b.WriteString(m.renderEditor())
		b.WriteString("\n")
	}

	if w.anyLoading() {
		b.WriteString(m.spinner.View() + " " + m.styles.Subtle.Render("Loading company profiles..."))
		b.WriteString("\n")
	}
	if w.overallError() {
		b.WriteString(m.styles.Error.Render(watchlistErrorText))
		b.WriteString("\n")
	}
	if len(w.companies) == 0 && w.loaded {
		b.WriteString(m.styles.Subtle.Render(watchlistEmptyText))
		b.WriteString("\n")
	}
	for i, c := range w.companies {
		errText := c.err
		if c.loading && c.profile == nil {
			errText = ""
		}
		card := renderCompanyCard(m.styles, c.name, c.profile, cardOptions{width: width - 2, err: errText})
		if i == w.cursor {
			card = m.styles.Selected.Render(card)
		} else {
			card = "  " + strings.ReplaceAll(card, "\n", "\n  ")
		}
		b.WriteString(card)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderProduct(width))
	return b.String()
}

func (m Model) renderEditor() string {
	w := &m.watch
	var b strings.Builder
	b.WriteString(m.styles.InputLabel.Render("Edit watchlist") + m.styles.Subtle.Render("  (enter add, ctrl+d remove, ctrl+s save, esc cancel)"))
	b.WriteString("\n")
	if len(w.draft) == 0 {
		b.WriteString(m.styles.Subtle.Render(watchlistEmptyText) + "\n")
	}
	for i, name := range w.draft {
		line := "  " + name
		if i == w.draftCursor {
			line = m.styles.Accent.Render("› " + name)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(w.input.View())
	if w.editErr != "" {
		b.WriteString("\n" + m.styles.Error.Render(w.editErr))
	}
	return m.styles.Card.Render(b.String())
}

func (m Model) renderProduct(width int) string {
	p := &m.product
	var b strings.Builder

	b.WriteString(m.styles.Accent.Bold(true).Render("Product Analyzer"))
	b.WriteString(m.styles.Subtle.Render("  (i pick image, a analyze, w add to watchlist)"))
	b.WriteString("\n")

	if m.focus == focusImagePath {
		b.WriteString(p.pathInput.View() + "\n")
	} else if p.imagePath != "" {
		b.WriteString(m.styles.Subtle.Render("Image: "+p.imagePath) + "\n")
	}
	if p.loading {
		b.WriteString(m.spinner.View() + " " + m.styles.Subtle.Render("Analyzing product...") + "\n")
	}
	if p.err != "" {
		b.WriteString(m.styles.Error.Render(p.err) + "\n")
	}
	if p.loading || !p.hasResult() {
		return b.String()
	}

	if name, ok := p.identifiedProduct(); ok {
		b.WriteString(m.styles.Body.Render(productHeadline(name)) + "\n")
	}
	switch {
	case p.cardVisible():
		b.WriteString(renderCompanyCard(m.styles, p.company, p.profile, cardOptions{
			product: true,
			watched: m.onWatchlist(p.company),
			width:   width,
		}))
	default:
		if n := p.notice(); n != "" {
			b.WriteString(m.styles.Warning.Render(n))
		}
	}
	return b.String()
}

func (m Model) renderSettings() string {
	pr := &m.prefs
	s := m.styles
	var b strings.Builder

	theme := "Dark"
	if pr.state.Theme == settings.ThemeLight {
		theme = "Light"
	}
	b.WriteString(s.InputLabel.Render("Theme: ") + s.Body.Render(theme) + s.Subtle.Render("  (t toggle)") + "\n\n")

	b.WriteString(s.InputLabel.Render("Detected country: ") + s.Body.Render(m.detectedLabel()) + "\n")
	b.WriteString(s.InputLabel.Render("Country override") + s.Subtle.Render("  (n edit)") + "\n")
	if m.focus == focusCountry {
		b.WriteString(pr.countryInput.View() + "\n")
	} else {
		current := pr.state.Country
		if current == "" {
			current = "auto"
		}
		b.WriteString(s.Body.Render("  "+current) + "\n")
	}
	if pr.countryErr != "" {
		b.WriteString(s.Error.Render(pr.countryErr) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(s.InputLabel.Render("Global news keywords") + s.Subtle.Render("  (k edit)") + "\n")
	if m.focus == focusKeywords {
		b.WriteString(pr.keywordsInput.View() + "\n")
	} else if len(pr.state.Keywords) == 0 {
		b.WriteString(s.Subtle.Render("  "+noKeywordsText) + "\n")
	} else {
		b.WriteString(s.Body.Render("  "+strings.Join(pr.state.Keywords, ", ")) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(s.Button.Render("Reset all settings") + s.Subtle.Render("  (R)") + "\n")
	if pr.status != "" {
		b.WriteString("\n" + s.Success.Render(pr.status))
	}
	return b.String()
}

func (m Model) detectedLabel() string {
	switch {
	case m.prefs.probing || m.prefs.detected == "":
		return countryPending
	default:
		return m.prefs.detected
	}
}

func (m Model) renderChat(width, height int) string {
	s := m.styles
	var lines []string
	for _, msg := range m.chat.messages {
		if msg.IsBot {
			lines = append(lines, s.BotMsg.Render("Bot: ")+m.renderMarkdown(msg.Text, width))
		} else {
			lines = append(lines, s.UserMsg.Render("You: ")+s.Body.Width(width).Render(msg.Text))
		}
	}
	if m.chat.inFlight {
		lines = append(lines, m.spinner.View()+" "+s.Subtle.Render("Thinking..."))
	}

	transcript := strings.Join(lines, "\n")
	// Keep the newest messages in view.
	all := strings.Split(transcript, "\n")
	room := height - 4
	if room < 1 {
		room = 1
	}
	if len(all) > room {
		all = all[len(all)-room:]
	}

	var b strings.Builder
	b.WriteString(s.Accent.Bold(true).Render("Economic Chat"))
	if m.panelView.CloseVisible {
		b.WriteString(s.Subtle.Render("  (esc close)"))
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(all, "\n"))
	b.WriteString("\n")
	if m.chat.banner != "" {
		b.WriteString(s.Error.Render(m.chat.banner) + "\n")
	}
	if m.focus == focusChat {
		b.WriteString(m.chat.input.View())
	} else {
		b.WriteString(s.Subtle.Render("press c to type"))
	}
	return b.String()
}

func (m Model) renderModal() string {
	md := &m.modal
	s := m.styles
	w := m.modalWidth()

	var b strings.Builder
	title := md.title()
	if md.state == modalError {
		b.WriteString(s.Error.Bold(true).Render(title))
	} else {
		b.WriteString(s.Title.UnsetPadding().Render(title))
	}
	if md.source != "" && md.state != modalError {
		b.WriteString("\n" + s.Subtle.Render(md.source))
	}
	b.WriteString("\n\n")
	if md.state == modalLoading {
		b.WriteString(m.spinner.View() + " " + s.Subtle.Render("Fetching analysis..."))
	} else {
		b.WriteString(md.viewport.View())
	}
	b.WriteString("\n\n")
	b.WriteString(s.Subtle.Render("esc close • s share • y copy link • o read article"))
	return s.Modal.Width(w).Render(b.String())
}

func (m *Model) modalWidth() int {
	w := m.width - 8
	if w > 100 {
		w = 100
	}
	if w < 20 {
		w = 20
	}
	return w
}

// refreshModalViewport re-renders the modal body into its viewport.
func (m *Model) refreshModalViewport() {
	md := &m.modal
	w := m.modalWidth() - 4
	h := m.height - headerHeight - footerHeight - 10
	if h < 3 {
		h = 3
	}
	md.viewport.Width = w
	md.viewport.Height = h

	if md.state != modalReady && md.state != modalError {
		md.viewport.SetContent("")
		return
	}

	s := m.styles
	var b strings.Builder
	for _, sec := range md.sections() {
		b.WriteString(s.Accent.Bold(true).Render(sec.heading) + "\n")
		text := sec.text
		if md.state == modalError {
			b.WriteString(s.Error.Width(w).Render(text) + "\n\n")
			continue
		}
		b.WriteString(s.Body.Width(w).Render(text) + "\n\n")
	}
	if md.impactVisible() {
		b.WriteString(s.Accent.Bold(true).Render("Impact Scale") + "\n")
		b.WriteString(s.ImpactOn.Render(strings.Repeat("●", md.impactLevel)))
		b.WriteString(s.ImpactOff.Render(strings.Repeat("○", 5-md.impactLevel)))
		b.WriteString(fmt.Sprintf(" %d/5\n", md.impactLevel))
	}

	switch {
	case md.readerLoading:
		b.WriteString("\n" + s.Subtle.Render("Loading full article..."))
	case md.readerErr != "":
		b.WriteString("\n" + s.Error.Render(md.readerErr))
	case md.readerText != "":
		b.WriteString("\n" + s.Accent.Bold(true).Render("Full Article") + "\n")
		b.WriteString(m.renderMarkdown(md.readerText, w))
	}

	md.viewport.SetContent(b.String())
}

// getRenderer returns a glamour renderer for width. Renderers are cached per
// ten-column bucket and dropped when the theme changes.
func (m Model) getRenderer(width int) (*glamour.TermRenderer, error) {
	wrap := width
	if wrap > 120 {
		wrap = 120
	}
	if wrap < 20 {
		wrap = 20
	}
	wrap -= wrap % 10

	if r, ok := m.renderers[wrap]; ok {
		return r, nil
	}
	style := "dark"
	if m.prefs.state.Theme == settings.ThemeLight {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil, err
	}
	if m.renderers != nil {
		m.renderers[wrap] = r
	}
	return r, nil
}

// renderMarkdown renders text with glamour, falling back to plain wrapping.
func (m Model) renderMarkdown(text string, width int) string {
	r, err := m.getRenderer(width)
	if err != nil {
		return m.styles.Body.Width(width).Render(text)
	}
	out, err := r.Render(text)
	if err != nil {
		return m.styles.Body.Width(width).Render(text)
	}
	return strings.Trim(out, "\n")
}
