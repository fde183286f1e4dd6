package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/qyinm/yentui/settings"
	"github.com/qyinm/yentui/types"
)

const (
	countryPending    = "Loading..."
	countryUnknown    = "N/A"
	resetStatusText   = "Settings have been reset. News will refresh if applicable."
	resetConfirmText  = "Are you sure you want to reset all settings? This will clear saved country and keywords. (y/n)"
	noKeywordsText    = "No custom global keywords set."
	countrySavedText  = "Country preference saved."
	keywordsSavedText = "Global keywords saved."
)

// prefsPane is the settings tab: the write-through copy of the stored
// preferences plus its inputs.
type prefsPane struct {
	state         settings.State
	countryInput  textinput.Model
	keywordsInput textinput.Model
	countryErr    string
	status        string
	// detected stays empty until the locale probe resolves.
	detected     string
	probing      bool
	confirmReset bool
}

func newPrefsPane(state settings.State) prefsPane {
	ci := textinput.New()
	ci.Placeholder = "two-letter code, blank for auto"
	ci.CharLimit = 2
	ci.Prompt = "› "
	ci.SetValue(state.Country)

	ki := textinput.New()
	ki.Placeholder = "e.g. ai, semiconductors, tariffs"
	ki.CharLimit = 300
	ki.Prompt = "› "
	ki.SetValue(strings.Join(state.Keywords, ", "))

	return prefsPane{state: state, countryInput: ci, keywordsInput: ki}
}

func (m *Model) effectiveCountry(override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return strings.ToUpper(o)
	}
	if m.prefs.detected == "" {
		return countryPending
	}
	return m.prefs.detected
}

func (m *Model) applyTheme(t settings.Theme) {
	m.prefs.state.Theme = t
	m.styles = NewStyles(t)
	m.list.SetDelegate(ArticleDelegate{styles: m.styles})
	m.renderers = map[int]*glamour.TermRenderer{}
	m.refreshModalViewport()
}

func (m *Model) toggleTheme() {
	next := m.prefs.state.Theme.Toggle()
	if err := m.store.SaveTheme(next); err != nil {
		m.storeFailed("theme", err)
	}
	m.applyTheme(next)
}

// saveCountry validates and persists the override. When local news is on
// screen and the effective country changed, local news is reloaded.
func (m *Model) saveCountry(raw string) tea.Cmd {
	code, err := settings.ValidateCountry(raw)
	if err != nil {
		var ve *types.ValidationError
		if errors.As(err, &ve) {
			m.prefs.countryErr = ve.Message
		} else {
			m.prefs.countryErr = err.Error()
		}
		return nil
	}

	prevEffective := m.effectiveCountry(m.prefs.state.Country)
	if err := m.store.SaveCountry(code); err != nil {
		m.storeFailed("country", err)
	}
	m.prefs.state.Country = code
	m.prefs.countryErr = ""
	m.prefs.countryInput.SetValue(code)
	m.prefs.status = countrySavedText

	now := m.effectiveCountry(code)
	if m.tab == TabLocal && now != prevEffective && now != countryPending {
		return m.loadPage(types.Local, modeReset)
	}
	return nil
}

// saveKeywords persists the parsed keyword list and reloads global news when
// it is on screen and the set changed.
func (m *Model) saveKeywords(raw string) tea.Cmd {
	old := m.prefs.state.Keywords
	kws := settings.ParseKeywords(raw)
	if err := m.store.SaveKeywords(kws); err != nil {
		m.storeFailed("keywords", err)
	}
	m.prefs.state.Keywords = kws
	m.prefs.keywordsInput.SetValue(strings.Join(kws, ", "))
	m.prefs.status = keywordsSavedText

	if m.tab == TabGlobal && !settings.SameKeywords(old, kws) {
		return m.loadPage(types.Global, modeReset)
	}
	return nil
}

// resetSettings clears theme, country and keywords back to defaults and runs
// one reset fetch for the news tab on screen, if any.
func (m *Model) resetSettings() tea.Cmd {
	m.prefs.confirmReset = false
	if err := m.store.Reset(); err != nil {
		m.storeFailed("reset", err)
	}
	m.prefs.state.Country = ""
	m.prefs.state.Keywords = nil
	m.prefs.countryInput.SetValue("")
	m.prefs.keywordsInput.SetValue("")
	m.prefs.countryErr = ""
	m.applyTheme(m.defaultTheme)
	m.prefs.status = resetStatusText

	if kind, ok := m.tab.newsKind(); ok {
		return m.loadPage(kind, modeReset)
	}
	return nil
}

// probeCountry resolves the detected locale once; a failed probe is retried
// on the next visit.
func (m *Model) probeCountry() tea.Cmd {
	if m.prefs.probing || (m.prefs.detected != "" && m.prefs.detected != countryUnknown) {
		return nil
	}
	m.prefs.probing = true
	return detectCountry(m.backend, m.prefs.state.Country)
}

func (m *Model) applyCountry(msg countryDetectedMsg) {
	m.prefs.probing = false
	if msg.err != nil {
		m.prefs.detected = countryUnknown
		m.logger.Warn("country probe failed", "err", msg.err)
		return
	}
	m.prefs.detected = msg.country
}

func (m *Model) storeFailed(what string, err error) {
	m.status = "Could not save " + what + ": " + err.Error()
	m.logger.Warn("settings store write failed", "key", what, "err", err)
}
