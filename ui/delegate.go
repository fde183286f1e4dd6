package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/types"
)

// ArticleDelegate is a custom list delegate for rendering news articles
type ArticleDelegate struct {
	styles Styles
}

// Height returns the height of a list item (3 lines)
func (d ArticleDelegate) Height() int {
	return 3
}

// Spacing returns the spacing between list items
func (d ArticleDelegate) Spacing() int {
	return 1
}

// Update handles updates for the delegate (no-op for articles)
func (d ArticleDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a single article item
func (d ArticleDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	article, ok := item.(types.Article)
	if !ok {
		return
	}

	isSelected := index == m.Index()
	width := m.Width()

	// Line 1: Index + Title
	indexStr := fmt.Sprintf("%-4s", fmt.Sprintf("%d.", index+1))
	title := truncate(article.Title(), width-len(indexStr)-1)

	// Line 2: Source (indented)
	indent := "    "
	source := article.SourceName()
	if source == "" {
		source = "Unknown source"
	}
	source = truncate(source, width-len(indent)-1)

	// Line 3: Description (indented, dimmed)
	desc := strings.Join(strings.Fields(article.Description()), " ")
	desc = truncate(desc, width-len(indent)-1)

	s := d.styles
	var line1 string
	if isSelected {
		line1 = s.Accent.Bold(true).Render(indexStr) + s.Title.UnsetPadding().Render(title)
	} else {
		line1 = s.Subtle.Render(indexStr) + s.Accent.Render(title)
	}
	line2 := indent + s.Success.Render(source)
	line3 := indent + s.Subtle.Render(desc)

	fmt.Fprint(w, line1+"\n"+line2+"\n"+line3)
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
