package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qyinm/yentui/types"
)

const (
	watchlistErrorText  = "Bummer! Had trouble loading some company profiles."
	watchlistEmptyText  = "Your watchlist is empty."
	companyEmptyText    = "Please enter a company name."
	companyInvalidText  = "Please enter a valid company name (2-70 characters, not just numbers)."
	companyDuplicateFmt = "%q is already in your list."
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// company is one watched entry and its fetch state.
type company struct {
	name    string
	profile *types.CompanyProfile
	loading bool
	err     string
	// token identifies the latest fetch; older results are dropped.
	token int
}

func (c company) needsFetch() bool {
	return c.profile == nil && c.err == "" && !c.loading
}

// watchlist holds the watched companies, the staggered refresh schedule and
// the editor's working copy.
type watchlist struct {
	companies []company
	loaded    bool
	cursor    int
	tokenSeq  int

	// refreshGen identifies the current staggered schedule; ticks of an older
	// schedule are ignored.
	refreshGen int
	queue      []string
	queueHead  string

	editing     bool
	draft       []string
	draftCursor int
	input       textinput.Model
	editErr     string
}

func newWatchlist() watchlist {
	ti := textinput.New()
	ti.Placeholder = "Company name"
	ti.CharLimit = 70
	ti.Prompt = "› "
	return watchlist{input: ti}
}

func (w *watchlist) index(name string) int {
	for i, c := range w.companies {
		if strings.EqualFold(c.name, name) {
			return i
		}
	}
	return -1
}

func (w *watchlist) names() []string {
	out := make([]string, len(w.companies))
	for i, c := range w.companies {
		out[i] = c.name
	}
	return out
}

// anyLoading reports whether the list-level loader shows.
func (w *watchlist) anyLoading() bool {
	for _, c := range w.companies {
		if c.loading && c.profile == nil && c.err == "" {
			return true
		}
	}
	return false
}

// overallError reports whether every company failed and none is loading.
func (w *watchlist) overallError() bool {
	if len(w.companies) == 0 {
		return false
	}
	for _, c := range w.companies {
		if c.err == "" || c.loading {
			return false
		}
	}
	return true
}

// loadWatchlist reads the stored names and starts a staggered refresh.
func (m *Model) loadWatchlist() tea.Cmd {
	names, err := m.store.LoadWatchlist()
	if err != nil {
		m.status = "Could not load watchlist: " + err.Error()
		m.logger.Warn("watchlist load failed", "err", err)
	}
	m.watch.loaded = true
	m.watch.companies = make([]company, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		m.watch.companies = append(m.watch.companies, company{name: n})
	}
	m.watch.cursor = 0
	return m.staggeredRefresh()
}

// staggeredRefresh fetches every company without data, error or a pending
// request, one after another with the configured delay between them.
func (m *Model) staggeredRefresh() tea.Cmd {
	w := &m.watch
	w.refreshGen++
	w.queue = nil
	w.queueHead = ""
	for _, c := range w.companies {
		if c.needsFetch() {
			w.queue = append(w.queue, c.name)
		}
	}
	m.logger.Debug("watchlist refresh scheduled", "gen", w.refreshGen, "queued", len(w.queue))
	return m.advanceWatchlist()
}

// advanceWatchlist starts the next queued fetch, skipping entries that were
// removed or resolved while waiting.
func (m *Model) advanceWatchlist() tea.Cmd {
	w := &m.watch
	for len(w.queue) > 0 {
		name := w.queue[0]
		w.queue = w.queue[1:]
		i := w.index(name)
		if i < 0 || !w.companies[i].needsFetch() {
			continue
		}
		w.queueHead = strings.ToLower(name)
		return m.fetchCompany(i)
	}
	w.queueHead = ""
	return nil
}

func (m *Model) onWatchlistTick(msg watchlistTickMsg) tea.Cmd {
	if msg.gen != m.watch.refreshGen {
		return nil
	}
	return m.advanceWatchlist()
}

func (m *Model) fetchCompany(i int) tea.Cmd {
	w := &m.watch
	w.tokenSeq++
	c := &w.companies[i]
	c.token = w.tokenSeq
	c.loading = true
	c.err = ""
	c.profile = nil
	return fetchCompanyProfile(m.backend, c.name, c.token)
}

// applyProfile stores a fetched profile unless the company was removed or
// refetched since. When the result closes the scheduled fetch, the next one
// is timed.
func (m *Model) applyProfile(msg profileLoadedMsg) tea.Cmd {
	w := &m.watch
	var next tea.Cmd
	if w.queueHead != "" && strings.EqualFold(msg.name, w.queueHead) {
		w.queueHead = ""
		if len(w.queue) > 0 {
			next = scheduleWatchlistTick(m.cfg.WatchlistDelay, w.refreshGen)
		}
	}

	i := w.index(msg.name)
	if i < 0 || w.companies[i].token != msg.token {
		m.logger.Debug("stale profile dropped", "company", msg.name, "token", msg.token)
		return next
	}
	c := &w.companies[i]
	c.loading = false
	if msg.err != nil {
		c.err = profileErrorText(msg.name, msg.err)
		m.logger.Warn("profile fetch failed", "company", msg.name, "err", msg.err)
		return next
	}
	p := msg.profile
	c.profile = &p
	return next
}

// refreshWatchlist drops cached results and refetches the whole list.
func (m *Model) refreshWatchlist() tea.Cmd {
	for i := range m.watch.companies {
		c := &m.watch.companies[i]
		if c.loading {
			continue
		}
		c.profile = nil
		c.err = ""
	}
	return m.staggeredRefresh()
}

// retryCompany refetches one company right away.
func (m *Model) retryCompany(i int) tea.Cmd {
	if i < 0 || i >= len(m.watch.companies) || m.watch.companies[i].loading {
		return nil
	}
	return m.fetchCompany(i)
}

// removeCompany drops one company and persists the list. Its pending fetch,
// if any, lands on nothing.
func (m *Model) removeCompany(i int) {
	w := &m.watch
	if i < 0 || i >= len(w.companies) {
		return
	}
	w.companies = append(w.companies[:i:i], w.companies[i+1:]...)
	if w.cursor >= len(w.companies) && w.cursor > 0 {
		w.cursor = len(w.companies) - 1
	}
	m.persistWatchlist()
}

func (m *Model) persistWatchlist() {
	if err := m.store.SaveWatchlist(m.watch.names()); err != nil {
		m.storeFailed("watchlist", err)
	}
}

// openEditor copies the current names into the working draft.
func (m *Model) openEditor() tea.Cmd {
	w := &m.watch
	w.editing = true
	w.draft = w.names()
	w.draftCursor = 0
	w.editErr = ""
	w.input.Reset()
	m.focus = focusCompany
	return w.input.Focus()
}

func validateCompanyName(name string, existing []string) string {
	if name == "" {
		return companyEmptyText
	}
	for _, e := range existing {
		if strings.EqualFold(e, name) {
			return fmt.Sprintf(companyDuplicateFmt, name)
		}
	}
	if n := len([]rune(name)); n < 2 || n > 70 || digitsOnly.MatchString(name) {
		return companyInvalidText
	}
	return ""
}

// addDraft validates the input and appends it to the draft.
func (m *Model) addDraft() {
	w := &m.watch
	name := strings.TrimSpace(w.input.Value())
	if msg := validateCompanyName(name, w.draft); msg != "" {
		w.editErr = msg
		return
	}
	w.editErr = ""
	w.draft = append(w.draft, name)
	w.draftCursor = len(w.draft) - 1
	w.input.Reset()
}

func (m *Model) removeDraft() {
	w := &m.watch
	if w.draftCursor < 0 || w.draftCursor >= len(w.draft) {
		return
	}
	w.draft = append(w.draft[:w.draftCursor:w.draftCursor], w.draft[w.draftCursor+1:]...)
	if w.draftCursor >= len(w.draft) && w.draftCursor > 0 {
		w.draftCursor = len(w.draft) - 1
	}
}

// saveEditor commits the draft. Companies already on the list keep their
// data; the new list is persisted and a staggered load starts.
func (m *Model) saveEditor() tea.Cmd {
	w := &m.watch
	existing := make(map[string]company, len(w.companies))
	for _, c := range w.companies {
		existing[strings.ToLower(c.name)] = c
	}
	next := make([]company, 0, len(w.draft))
	for _, name := range w.draft {
		if c, ok := existing[strings.ToLower(name)]; ok {
			next = append(next, c)
			continue
		}
		next = append(next, company{name: name})
	}
	w.companies = next
	if w.cursor >= len(next) {
		w.cursor = 0
	}
	m.closeEditor()
	m.persistWatchlist()
	return m.staggeredRefresh()
}

func (m *Model) closeEditor() {
	w := &m.watch
	w.editing = false
	w.draft = nil
	w.editErr = ""
	w.input.Reset()
	w.input.Blur()
	if m.focus == focusCompany {
		m.focus = focusNone
	}
}

// addIdentified puts the company found by the product analyzer on the
// watchlist, reusing the analysis profile when it belongs to that company.
func (m *Model) addIdentified() tea.Cmd {
	p := &m.product
	name := strings.TrimSpace(p.company)
	if types.IsUnknown(name) {
		return nil
	}
	var cmds []tea.Cmd
	if !m.watch.loaded {
		cmds = append(cmds, m.loadWatchlist())
	}
	if m.watch.index(name) >= 0 {
		m.status = fmt.Sprintf("%s is already on your watchlist.", name)
		return tea.Batch(cmds...)
	}

	c := company{name: name}
	if p.profile != nil {
		prof := *p.profile
		c.profile = &prof
	}
	m.watch.companies = append(m.watch.companies, c)
	m.persistWatchlist()
	m.status = fmt.Sprintf("Added %s to your watchlist.", name)

	if c.profile == nil {
		cmds = append(cmds, m.fetchCompany(len(m.watch.companies)-1))
	}
	return tea.Batch(cmds...)
}

func (m *Model) onWatchlist(name string) bool {
	return m.watch.index(name) >= 0
}

func profileErrorText(name string, err error) string {
	if msg, ok := types.ServerMessage(err); ok && msg != "" {
		return msg
	}
	if types.IsNetwork(err) {
		return fmt.Sprintf("Network error or server unreachable: %v", err)
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fmt.Sprintf("Could not load profile for %q.", name)
}
