package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/types"
)

type modalState int

const (
	modalClosed modalState = iota
	modalLoading
	modalReady
	modalError
	modalClosing
)

func (s modalState) String() string {
	switch s {
	case modalLoading:
		return "loading"
	case modalReady:
		return "ready"
	case modalError:
		return "error"
	case modalClosing:
		return "closing"
	default:
		return "closed"
	}
}

const (
	modalLoadingTitle = "Loading Article Analysis..."
	modalErrorTitle   = "Error Loading Analysis"
	modalDefaultTitle = "Article Analysis"

	noSummaryText = "No summary available."
	noAltText     = "No GenZ translation available."
	noImpactText  = "No impact analysis available."
)

var modalPlaceholders = map[string]struct{}{
	noSummaryText: {},
	noAltText:     {},
	noImpactText:  {},
}

// modal is the article analysis session. It exists only between open and
// the delayed clear that follows close.
type modal struct {
	state modalState
	// gen identifies the session; async results and the close timer carry it.
	gen int

	url          string
	articleTitle string
	source       string
	summary      string
	altSummary   string
	impactText   string
	impactLevel  int
	errText      string

	readerText    string
	readerErr     string
	readerLoading bool

	viewport viewport.Model
}

// open reports whether the modal is visible (closing counts as hidden).
func (md *modal) open() bool {
	return md.state == modalLoading || md.state == modalReady || md.state == modalError
}

func (md *modal) title() string {
	switch md.state {
	case modalLoading:
		return modalLoadingTitle
	case modalError:
		return modalErrorTitle
	}
	if strings.TrimSpace(md.articleTitle) != "" {
		return md.articleTitle
	}
	return modalDefaultTitle
}

type modalSection struct {
	heading string
	text    string
}

// sections returns the visible text sections. Empty and placeholder texts are
// hidden; in the error state only the summary slot, carrying the error, shows.
func (md *modal) sections() []modalSection {
	switch md.state {
	case modalError:
		return []modalSection{{heading: "Summary", text: md.errText}}
	case modalReady:
	default:
		return nil
	}

	all := []modalSection{
		{heading: "Summary", text: orPlaceholder(md.summary, noSummaryText)},
		{heading: "GenZ Translation", text: orPlaceholder(md.altSummary, noAltText)},
		{heading: "Market Impact", text: orPlaceholder(md.impactText, noImpactText)},
	}
	visible := all[:0]
	for i, s := range all {
		// An error echoed into the summary slot stays visible.
		if sectionHasContent(s.text) || (i == 0 && isErrorText(s.text)) {
			visible = append(visible, s)
		}
	}
	return visible
}

// impactVisible reports whether the 0-5 impact scale is rendered.
func (md *modal) impactVisible() bool {
	return md.state == modalReady
}

func orPlaceholder(text, placeholder string) string {
	if strings.TrimSpace(text) == "" {
		return placeholder
	}
	return text
}

func sectionHasContent(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if _, ok := modalPlaceholders[t]; ok {
		return false
	}
	return !isErrorText(t)
}

func isErrorText(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "error:")
}

// openModal starts a fresh session for url, discarding whatever the previous
// session held, and issues exactly one analysis fetch.
func (m *Model) openModal(articleURL string) tea.Cmd {
	md := &m.modal
	md.gen++
	md.state = modalLoading
	md.url = articleURL
	md.articleTitle = ""
	md.source = ""
	if c := m.activeCollection(); c != nil {
		for _, a := range c.items {
			if a.URL() == articleURL {
				md.articleTitle = a.Title()
				md.source = a.SourceName()
				break
			}
		}
	}
	md.summary, md.altSummary, md.impactText, md.errText = "", "", "", ""
	md.impactLevel = 0
	md.readerText, md.readerErr, md.readerLoading = "", "", false
	md.viewport.GotoTop()
	m.focus = focusNone
	m.refreshModalViewport()

	m.logger.Debug("modal open", "url", articleURL, "gen", md.gen)
	return fetchAnalysis(m.backend, articleURL, md.gen)
}

func (m *Model) applyAnalysis(msg analysisLoadedMsg) {
	md := &m.modal
	if msg.gen != md.gen || md.state != modalLoading {
		m.logger.Debug("stale analysis dropped", "gen", msg.gen, "current", md.gen, "state", md.state.String())
		return
	}
	if msg.err != nil {
		md.state = modalError
		md.errText = analysisErrorText(msg.err)
		m.logger.Warn("analysis fetch failed", "url", md.url, "err", msg.err)
	} else {
		md.state = modalReady
		md.summary = msg.analysis.Summary()
		md.altSummary = msg.analysis.AltSummary()
		md.impactText = msg.analysis.ImpactText()
		md.impactLevel = types.ClampImpact(msg.analysis.ImpactLevel())
	}
	m.refreshModalViewport()
}

// closeModal hides the modal now and clears the session after the close
// delay, provided no other session has started meanwhile.
func (m *Model) closeModal() tea.Cmd {
	md := &m.modal
	if !md.open() {
		return nil
	}
	md.state = modalClosing
	return scheduleModalClear(m.cfg.ModalCloseDelay, md.gen)
}

func (m *Model) clearModal(gen int) {
	md := &m.modal
	if gen != md.gen || md.state != modalClosing {
		return
	}
	vp := md.viewport
	vp.SetContent("")
	vp.GotoTop()
	*md = modal{gen: md.gen, viewport: vp}
}

// loadReader fetches the full article text for the current session.
func (m *Model) loadReader() tea.Cmd {
	md := &m.modal
	if !md.open() || md.readerLoading || md.url == "" {
		return nil
	}
	md.readerLoading = true
	md.readerErr = ""
	m.refreshModalViewport()
	return fetchArticleText(m.backend, md.url, md.gen)
}

func (m *Model) applyArticleText(msg articleTextMsg) {
	md := &m.modal
	if msg.gen != md.gen || !md.open() {
		return
	}
	md.readerLoading = false
	if msg.err != nil {
		md.readerErr = fmt.Sprintf("Could not load the full article: %v", msg.err)
		m.logger.Warn("article reader failed", "url", md.url, "err", msg.err)
	} else {
		md.readerText = msg.text
	}
	m.refreshModalViewport()
}

// copyModalURL copies the article address; it reads modal state only.
func (m *Model) copyModalURL() tea.Cmd {
	if !m.modal.open() || m.modal.url == "" {
		return nil
	}
	return copyToClipboard(m.modal.url)
}

func analysisErrorText(err error) string {
	if msg, ok := types.ServerMessage(err); ok && msg != "" {
		return msg
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "An unknown error occurred."
}
