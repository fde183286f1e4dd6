package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Search    key.Binding
	Enter     key.Binding
	Back      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	Local     key.Binding
	Global    key.Binding
	Insights  key.Binding
	Settings  key.Binding
	LoadMore  key.Binding
	Refresh   key.Binding
	Chat      key.Binding
	Export    key.Binding
	CopyURL   key.Binding
	Reader    key.Binding
	Edit      key.Binding
	Remove    key.Binding
	Image     key.Binding
	Analyze   key.Binding
	Watch     key.Binding
	Theme     key.Binding
	Country   key.Binding
	Keywords  key.Binding
	Reset     key.Binding
	Confirm   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "analyze")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	NextTab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
	PrevTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
	Local:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "local")),
	Global:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "global")),
	Insights:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "insights")),
	Settings:  key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "settings")),
	LoadMore:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
	Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Chat:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chat")),
	Export:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "share")),
	CopyURL:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
	Reader:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "read article")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit watchlist")),
	Remove:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
	Image:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "pick image")),
	Analyze:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "analyze image")),
	Watch:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "add to watchlist")),
	Theme:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Country:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "country")),
	Keywords:  key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "keywords")),
	Reset:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset")),
	Confirm:   key.NewBinding(key.WithKeys("y", "Y")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
}

// ShortHelp returns short help key bindings (for help.Model)
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Search, k.Enter, k.Chat, k.Help, k.Quit}
}

// FullHelp returns full help key bindings
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Search, k.Enter, k.Back},
		{k.NextTab, k.PrevTab, k.Local, k.Global, k.Insights, k.Settings},
		{k.LoadMore, k.Refresh, k.Chat, k.Export, k.CopyURL, k.Reader},
		{k.Edit, k.Remove, k.Image, k.Analyze, k.Watch},
		{k.Theme, k.Country, k.Keywords, k.Reset, k.Help, k.Quit},
	}
}
