package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/types"
)

// Tab is the top-level section on screen.
type Tab int

const (
	TabLocal Tab = iota
	TabGlobal
	TabInsights
	TabSettings
)

var tabOrder = []Tab{TabLocal, TabGlobal, TabInsights, TabSettings}

func (t Tab) String() string {
	switch t {
	case TabLocal:
		return "Local"
	case TabGlobal:
		return "Global"
	case TabInsights:
		return "Insights"
	case TabSettings:
		return "Settings"
	default:
		return "Unknown"
	}
}

// Title is the section heading shown under the tab bar.
func (t Tab) Title() string {
	switch t {
	case TabLocal:
		return "Local Economic News"
	case TabGlobal:
		return "Global Economic News"
	case TabInsights:
		return "Company & Product Insights"
	case TabSettings:
		return "Application Settings"
	default:
		return ""
	}
}

func (t Tab) next() Tab {
	return tabOrder[(int(t)+1)%len(tabOrder)]
}

func (t Tab) prev() Tab {
	return tabOrder[(int(t)+len(tabOrder)-1)%len(tabOrder)]
}

func (t Tab) newsKind() (types.NewsKind, bool) {
	switch t {
	case TabLocal:
		return types.Local, true
	case TabGlobal:
		return types.Global, true
	default:
		return 0, false
	}
}

// switchTab activates t. A real change clears the search term and the news
// error banners; news tabs refetch when empty, newly entered or in error.
func (m *Model) switchTab(t Tab) tea.Cmd {
	prev := m.tab
	changed := prev != t
	m.tab = t

	if changed {
		m.searchTerm = ""
		m.search.Reset()
		m.local.err = ""
		m.global.err = ""
		if m.focus == focusSearch || m.focus == focusCountry || m.focus == focusKeywords ||
			m.focus == focusCompany || m.focus == focusImagePath {
			m.blurInputs()
		}
		m.list.Select(0)
	}

	var cmds []tea.Cmd
	if kind, ok := t.newsKind(); ok {
		c := m.collection(kind)
		if len(c.items) == 0 || changed || c.err != "" {
			cmds = append(cmds, m.loadPage(kind, modeReset))
		} else {
			m.refilter()
		}
	} else {
		m.refilter()
	}

	switch t {
	case TabSettings:
		cmds = append(cmds, m.probeCountry())
	case TabInsights:
		if !m.watch.loaded {
			cmds = append(cmds, m.loadWatchlist())
		}
	}

	m.reconcilePanel()
	return tea.Batch(cmds...)
}
