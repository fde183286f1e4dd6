package ui

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/qyinm/yentui/config"
	"github.com/qyinm/yentui/settings"
	"github.com/qyinm/yentui/types"
)

// focus names the input that receives key presses, if any.
type focus int

const (
	focusNone focus = iota
	focusSearch
	focusChat
	focusCountry
	focusKeywords
	focusCompany
	focusImagePath
)

// Store persists preferences and the watchlist.
type Store interface {
	Load(defaultTheme settings.Theme) (settings.State, error)
	SaveTheme(t settings.Theme) error
	SaveCountry(code string) error
	SaveKeywords(keywords []string) error
	Reset() error
	LoadWatchlist() ([]string, error)
	SaveWatchlist(names []string) error
}

// Options wires the model's dependencies. Zero values get defaults.
type Options struct {
	Backend      types.Backend
	Store        Store
	Config       config.Config
	Logger       *slog.Logger
	DefaultTheme settings.Theme
	Now          func() time.Time
	NewID        func() string
}

// Model is the main TUI model
type Model struct {
	backend      types.Backend
	store        Store
	cfg          config.Config
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
	defaultTheme settings.Theme

	styles        Styles
	keys          keyMap
	list          list.Model
	spinner       spinner.Model
	help          help.Model
	search        textinput.Model
	// renderers is keyed by wrap width; the map is shared by model copies.
	renderers map[int]*glamour.TermRenderer

	tab        Tab
	focus      focus
	width      int
	height     int
	searchTerm string

	local     collection
	global    collection
	modal     modal
	chat      chat
	panel     chatPanel
	panelView panelView
	prefs     prefsPane
	watch     watchlist
	product   productPane

	status   string
	showHelp bool
	initCmds []tea.Cmd
}

// NewModel creates a new Model showing local news
func NewModel(opts Options) Model {
	cfg := opts.Config
	if cfg.BaseURL == "" {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	defaultTheme := opts.DefaultTheme
	if !defaultTheme.Valid() {
		defaultTheme = settings.ThemeDark
	}

	state := settings.State{Theme: defaultTheme}
	if opts.Store != nil {
		loaded, err := opts.Store.Load(defaultTheme)
		if err != nil {
			logger.Warn("settings load failed", "err", err)
		}
		state = loaded
	}
	if !state.Theme.Valid() {
		state.Theme = defaultTheme
	}

	styles := NewStyles(state.Theme)

	l := list.New([]list.Item{}, ArticleDelegate{styles: styles}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	s := spinner.New()
	s.Spinner = spinner.Dot

	si := textinput.New()
	si.Placeholder = "Search headlines and descriptions..."
	si.Prompt = "/ "
	si.CharLimit = 200

	m := Model{
		backend:      opts.Backend,
		store:        opts.Store,
		cfg:          cfg,
		logger:       logger,
		now:          now,
		newID:        newID,
		defaultTheme: defaultTheme,
		styles:       styles,
		keys:         keys,
		list:         l,
		spinner:      s,
		help:         help.New(),
		renderers:    map[int]*glamour.TermRenderer{},
		search:       si,
		tab:          TabLocal,
		local:        newCollection(types.Local),
		global:       newCollection(types.Global),
		modal:        modal{viewport: viewport.New(0, 0)},
		chat:         newChat(newID),
		prefs:        newPrefsPane(state),
		watch:        newWatchlist(),
		product:      newProductPane(),
	}
	if m.store == nil {
		m.store = nopStore{}
	}
	m.initCmds = append(m.initCmds, m.loadPage(types.Local, modeReset))
	m.reconcilePanel()
	return m
}

// Init starts the first local news fetch
func (m Model) Init() tea.Cmd {
	return tea.Batch(append(m.initCmds, m.spinner.Tick)...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.reconcilePanel()
		m.refreshModalViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case newsLoadedMsg:
		m.applyNews(msg)
		return m, nil

	case analysisLoadedMsg:
		m.applyAnalysis(msg)
		return m, nil

	case modalClearMsg:
		m.clearModal(msg.gen)
		return m, nil

	case articleTextMsg:
		m.applyArticleText(msg)
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.status = "Sorry, could not save the analysis: " + msg.err.Error()
			m.logger.Warn("export failed", "err", msg.err)
		} else {
			m.status = "Analysis saved to " + msg.path
		}
		return m, nil

	case clipboardDoneMsg:
		if msg.err != nil {
			m.status = "Could not copy the link: " + msg.err.Error()
		} else {
			m.status = "Article link copied."
		}
		return m, nil

	case chatReplyMsg:
		m.applyChatReply(msg)
		return m, nil

	case countryDetectedMsg:
		m.applyCountry(msg)
		return m, nil

	case profileLoadedMsg:
		return m, m.applyProfile(msg)

	case watchlistTickMsg:
		return m, m.onWatchlistTick(msg)

	case imageLoadedMsg:
		m.applyImage(msg)
		return m, nil

	case productAnalyzedMsg:
		m.applyProductAnalysis(msg)
		return m, nil

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

// applyConfig takes over settings that can change while running.
func (m *Model) applyConfig(cfg config.Config) {
	if err := cfg.Validate(); err != nil {
		m.status = "Config reload ignored: " + err.Error()
		return
	}
	m.cfg = cfg
	m.status = "Configuration reloaded."
	m.logger.Info("config reloaded", "dock_width", cfg.DockWidth, "page_size", cfg.PageSize)
	m.reconcilePanel()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.ForceQuit) {
		return tea.Quit
	}
	if m.modal.open() {
		return m.handleModalKey(msg)
	}
	if m.prefs.confirmReset {
		if key.Matches(msg, m.keys.Confirm) {
			return m.resetSettings()
		}
		m.prefs.confirmReset = false
		return nil
	}
	if m.focus != focusNone {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(m.tab.next())
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(m.tab.prev())
	case key.Matches(msg, m.keys.Local):
		return m.switchTab(TabLocal)
	case key.Matches(msg, m.keys.Global):
		return m.switchTab(TabGlobal)
	case key.Matches(msg, m.keys.Insights):
		return m.switchTab(TabInsights)
	case key.Matches(msg, m.keys.Settings):
		return m.switchTab(TabSettings)
	case key.Matches(msg, m.keys.Theme):
		m.toggleTheme()
		return nil
	case key.Matches(msg, m.keys.Chat) && m.tab != TabSettings:
		return m.focusChat()
	case key.Matches(msg, m.keys.Back):
		if m.panelView.Floating {
			m.panel.closeOverlay()
			m.reconcilePanel()
		}
		return nil
	}

	switch m.tab {
	case TabLocal, TabGlobal:
		return m.handleNewsKey(msg)
	case TabInsights:
		return m.handleInsightsKey(msg)
	case TabSettings:
		return m.handleSettingsKey(msg)
	}
	return nil
}

func (m *Model) handleModalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
		return m.closeModal()
	case key.Matches(msg, m.keys.Export):
		return m.exportModal()
	case key.Matches(msg, m.keys.CopyURL):
		return m.copyModalURL()
	case key.Matches(msg, m.keys.Reader):
		return m.loadReader()
	}
	var cmd tea.Cmd
	m.modal.viewport, cmd = m.modal.viewport.Update(msg)
	return cmd
}

func (m *Model) handleNewsKey(msg tea.KeyMsg) tea.Cmd {
	c := m.activeCollection()
	switch {
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		m.search.SetValue(m.searchTerm)
		m.search.CursorEnd()
		return m.search.Focus()
	case key.Matches(msg, m.keys.Enter):
		if a, ok := m.list.SelectedItem().(types.Article); ok {
			return m.openModal(a.URL())
		}
		return nil
	case key.Matches(msg, m.keys.LoadMore):
		if m.loadMoreVisible(c) {
			return m.loadPage(c.kind, modeAppend)
		}
		return nil
	case key.Matches(msg, m.keys.Refresh):
		return m.loadPage(c.kind, modeReset)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *Model) handleInsightsKey(msg tea.KeyMsg) tea.Cmd {
	w := &m.watch
	switch {
	case key.Matches(msg, m.keys.Up):
		if w.cursor > 0 {
			w.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if w.cursor < len(w.companies)-1 {
			w.cursor++
		}
	case key.Matches(msg, m.keys.Edit):
		return m.openEditor()
	case key.Matches(msg, m.keys.Remove):
		m.removeCompany(w.cursor)
	case key.Matches(msg, m.keys.Refresh):
		return m.refreshWatchlist()
	case key.Matches(msg, m.keys.Enter):
		if w.cursor < len(w.companies) && w.companies[w.cursor].err != "" {
			return m.retryCompany(w.cursor)
		}
	case key.Matches(msg, m.keys.Image):
		return m.openImagePrompt()
	case key.Matches(msg, m.keys.Analyze):
		return m.analyze()
	case key.Matches(msg, m.keys.Watch):
		return m.addIdentified()
	}
	return nil
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Country):
		m.focus = focusCountry
		m.prefs.countryInput.SetValue(m.prefs.state.Country)
		m.prefs.countryInput.CursorEnd()
		return m.prefs.countryInput.Focus()
	case key.Matches(msg, m.keys.Keywords):
		m.focus = focusKeywords
		m.prefs.keywordsInput.CursorEnd()
		return m.prefs.keywordsInput.Focus()
	case key.Matches(msg, m.keys.Reset):
		m.prefs.confirmReset = true
		m.prefs.status = ""
	}
	return nil
}

// handleInputKey routes keys to the focused text input.
func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case focusSearch:
		switch msg.Type {
		case tea.KeyEsc:
			m.search.Reset()
			m.setSearchTerm("")
			m.blurInputs()
			return nil
		case tea.KeyEnter:
			m.blurInputs()
			return nil
		}
		m.search, cmd = m.search.Update(msg)
		m.setSearchTerm(m.search.Value())
		return cmd

	case focusChat:
		switch msg.Type {
		case tea.KeyEsc:
			m.blurInputs()
			if m.panelView.Floating {
				m.panel.closeOverlay()
				m.reconcilePanel()
			}
			return nil
		case tea.KeyEnter:
			return m.sendMessage(m.chat.input.Value())
		}
		m.chat.input, cmd = m.chat.input.Update(msg)
		return cmd

	case focusCountry:
		switch msg.Type {
		case tea.KeyEsc:
			m.prefs.countryInput.SetValue(m.prefs.state.Country)
			m.prefs.countryErr = ""
			m.blurInputs()
			return nil
		case tea.KeyEnter:
			cmd = m.saveCountry(m.prefs.countryInput.Value())
			if m.prefs.countryErr == "" {
				m.blurInputs()
			}
			return cmd
		}
		m.prefs.countryInput, cmd = m.prefs.countryInput.Update(msg)
		return cmd

	case focusKeywords:
		switch msg.Type {
		case tea.KeyEsc:
			m.blurInputs()
			return nil
		case tea.KeyEnter:
			cmd = m.saveKeywords(m.prefs.keywordsInput.Value())
			m.blurInputs()
			return cmd
		}
		m.prefs.keywordsInput, cmd = m.prefs.keywordsInput.Update(msg)
		return cmd

	case focusCompany:
		w := &m.watch
		switch msg.Type {
		case tea.KeyEsc:
			m.closeEditor()
			return nil
		case tea.KeyEnter:
			m.addDraft()
			return nil
		case tea.KeyCtrlS:
			return m.saveEditor()
		case tea.KeyCtrlD:
			m.removeDraft()
			return nil
		case tea.KeyUp:
			if w.draftCursor > 0 {
				w.draftCursor--
			}
			return nil
		case tea.KeyDown:
			if w.draftCursor < len(w.draft)-1 {
				w.draftCursor++
			}
			return nil
		}
		w.input, cmd = w.input.Update(msg)
		return cmd

	case focusImagePath:
		switch msg.Type {
		case tea.KeyEsc:
			m.blurInputs()
			return nil
		case tea.KeyEnter:
			path := m.product.pathInput.Value()
			m.blurInputs()
			return m.selectImage(path)
		}
		m.product.pathInput, cmd = m.product.pathInput.Update(msg)
		return cmd
	}
	return nil
}

// focusChat opens the overlay when needed and focuses the chat input.
func (m *Model) focusChat() tea.Cmd {
	if !m.panelView.PanelVisible {
		if !m.panel.openOverlay() {
			return nil
		}
		m.reconcilePanel()
	}
	m.focus = focusChat
	return m.chat.input.Focus()
}

// blurInputs drops focus from every text input.
func (m *Model) blurInputs() {
	if m.focus == focusCompany {
		m.closeEditor()
	}
	m.search.Blur()
	m.chat.input.Blur()
	m.prefs.countryInput.Blur()
	m.prefs.keywordsInput.Blur()
	m.product.pathInput.Blur()
	m.focus = focusNone
}

const (
	headerHeight  = 3
	footerHeight  = 2
	chatDockWidth = 44
)

// contentWidth is the width left for the tab content next to a docked chat.
func (m *Model) contentWidth() int {
	w := m.width
	if m.panelView.Docked {
		w -= chatDockWidth
	}
	if w < 0 {
		w = 0
	}
	return w
}

// resizePanes adjusts the dimensions of list and viewport based on window size
func (m *Model) resizePanes() {
	// tab bar + title, then search and load-more lines
	availableHeight := m.height - headerHeight - footerHeight - 2
	if availableHeight < 0 {
		availableHeight = 0
	}
	m.list.SetSize(m.contentWidth(), availableHeight)

	inputWidth := m.contentWidth() - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.search.Width = inputWidth
	m.prefs.countryInput.Width = inputWidth
	m.prefs.keywordsInput.Width = inputWidth
	m.product.pathInput.Width = inputWidth
	m.watch.input.Width = inputWidth
	m.chat.input.Width = chatDockWidth - 6
}

// nopStore keeps the model usable without persistence.
type nopStore struct{}

func (nopStore) Load(t settings.Theme) (settings.State, error) { return settings.State{Theme: t}, nil }
func (nopStore) SaveTheme(settings.Theme) error                { return nil }
func (nopStore) SaveCountry(string) error                      { return nil }
func (nopStore) SaveKeywords([]string) error                   { return nil }
func (nopStore) Reset() error                                  { return nil }
func (nopStore) LoadWatchlist() ([]string, error)              { return nil, nil }
func (nopStore) SaveWatchlist([]string) error                  { return nil }
