package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/types"
)

type loadMode int

const (
	modeReset loadMode = iota
	modeAppend
)

func (m loadMode) String() string {
	if m == modeAppend {
		return "append"
	}
	return "reset"
}

// collection is one independently paginated news feed.
type collection struct {
	kind     types.NewsKind
	items    []types.Article
	filtered []types.Article
	page     int
	total    int
	err      string

	resetInFlight  bool
	appendInFlight bool
	// gen is bumped by every reset; results carrying an older gen are stale.
	gen int
}

func newCollection(kind types.NewsKind) collection {
	return collection{kind: kind, page: 1}
}

func (c *collection) loading() bool {
	return c.resetInFlight || c.appendInFlight
}

func (m *Model) collection(kind types.NewsKind) *collection {
	if kind == types.Global {
		return &m.global
	}
	return &m.local
}

// activeCollection returns the collection shown by the current tab, or nil.
func (m *Model) activeCollection() *collection {
	switch m.tab {
	case TabLocal:
		return &m.local
	case TabGlobal:
		return &m.global
	default:
		return nil
	}
}

func (m *Model) newsQuery(c *collection) types.NewsQuery {
	q := types.NewsQuery{Kind: c.kind, Page: c.page, PageSize: m.cfg.PageSize}
	switch c.kind {
	case types.Local:
		q.Country = m.prefs.state.Country
	case types.Global:
		q.Keywords = append([]string(nil), m.prefs.state.Keywords...)
	}
	return q
}

// loadPage issues a reset or append fetch for one collection. A second call
// while the same mode is already in flight for that collection is a no-op.
func (m *Model) loadPage(kind types.NewsKind, mode loadMode) tea.Cmd {
	c := m.collection(kind)

	switch mode {
	case modeReset:
		if c.resetInFlight {
			return nil
		}
		c.gen++
		c.items = nil
		c.filtered = nil
		c.page = 1
		c.total = 0
		c.err = ""
		c.resetInFlight = true
		// An append issued before the reset can no longer land.
		c.appendInFlight = false
	case modeAppend:
		if c.appendInFlight {
			return nil
		}
		c.appendInFlight = true
	}

	if m.activeCollection() == c {
		m.refilter()
	}
	m.logger.Debug("news load", "kind", kind.String(), "mode", mode.String(), "page", c.page, "gen", c.gen)
	return fetchNews(m.backend, m.newsQuery(c), mode, c.gen)
}

// applyNews folds a completed fetch into its collection. Results from before
// the latest reset are discarded.
func (m *Model) applyNews(msg newsLoadedMsg) {
	c := m.collection(msg.kind)
	if msg.gen != c.gen {
		m.logger.Debug("stale news result dropped", "kind", msg.kind.String(), "gen", msg.gen, "current", c.gen)
		return
	}

	switch msg.mode {
	case modeReset:
		c.resetInFlight = false
	case modeAppend:
		c.appendInFlight = false
	}

	if msg.err != nil {
		c.err = newsErrorText(msg.kind, msg.err)
		m.logger.Warn("news fetch failed", "kind", msg.kind.String(), "mode", msg.mode.String(), "err", msg.err)
	} else {
		c.err = ""
		switch msg.mode {
		case modeReset:
			c.items = append([]types.Article(nil), msg.page.Articles...)
			c.page = 1
		case modeAppend:
			c.items = appendUnique(c.items, msg.page.Articles)
		}
		c.total = msg.page.TotalResults
		if c.total < len(c.items) {
			c.total = len(c.items)
		}
		// Advance only when the backend sent something for this page.
		if msg.page.RawCount > 0 {
			c.page++
		}
	}

	if m.activeCollection() == c {
		m.refilter()
	}
}

// loadMoreVisible reports whether the "load more" affordance is shown for c.
func (m *Model) loadMoreVisible(c *collection) bool {
	return !m.searching() && c.total > 0 && len(c.items) < c.total
}

func loadMoreLabel(c *collection) string {
	if c.appendInFlight {
		return "Loading..."
	}
	return fmt.Sprintf("Load More %s News", c.kind.Label())
}

func emptyNewsText(kind types.NewsKind) string {
	return fmt.Sprintf("No %s news found for current criteria.", kind)
}

func newsErrorText(kind types.NewsKind, err error) string {
	if msg, ok := types.ServerMessage(err); ok {
		return msg
	}
	if types.IsNetwork(err) {
		return fmt.Sprintf("Network error while fetching %s news: %v", kind, err)
	}
	return fmt.Sprintf("Error fetching %s news.", kind)
}

func appendUnique(items, more []types.Article) []types.Article {
	seen := make(map[string]struct{}, len(items))
	for _, a := range items {
		seen[a.URL()] = struct{}{}
	}
	out := append([]types.Article(nil), items...)
	for _, a := range more {
		if _, dup := seen[a.URL()]; dup {
			continue
		}
		seen[a.URL()] = struct{}{}
		out = append(out, a)
	}
	return out
}
