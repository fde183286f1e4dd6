package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/qyinm/yentui/types"
)

// filterArticles returns the articles matching term, rebuilt from items.
// A blank term yields a full copy in the same order.
func filterArticles(items []types.Article, term string) []types.Article {
	t := strings.ToLower(strings.TrimSpace(term))
	out := make([]types.Article, 0, len(items))
	for _, a := range items {
		if a.Matches(t) {
			out = append(out, a)
		}
	}
	return out
}

func (m *Model) searching() bool {
	return strings.TrimSpace(m.searchTerm) != ""
}

// setSearchTerm stores the raw term and recomputes the active view.
func (m *Model) setSearchTerm(term string) {
	m.searchTerm = term
	m.refilter()
}

// refilter rebuilds both filtered views. The term only narrows the active
// collection; the other one mirrors its items.
func (m *Model) refilter() {
	active := m.activeCollection()
	for _, c := range []*collection{&m.local, &m.global} {
		if c == active {
			c.filtered = filterArticles(c.items, m.searchTerm)
		} else {
			c.filtered = filterArticles(c.items, "")
		}
	}
	m.syncList()
}

// syncList pushes the active filtered view into the list widget.
func (m *Model) syncList() {
	c := m.activeCollection()
	if c == nil {
		m.list.SetItems(nil)
		return
	}
	items := make([]list.Item, len(c.filtered))
	for i, a := range c.filtered {
		items[i] = a
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx < 0 {
		idx = 0
	}
	m.list.Select(idx)
}
