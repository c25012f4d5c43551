// Package tui is the terminal product browser: an infinitely scrolling
// table or card grid over the inventory listing.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/notify"
	"github.com/Sternrassler/deverp-client/pkg/pagination"
	"github.com/Sternrassler/deverp-client/pkg/prefs"
	"github.com/Sternrassler/deverp-client/pkg/scroll"
)

// lineUnits is how many scroll units one terminal line counts for, so the
// configured pixel threshold keeps its meaning.
const lineUnits = 20

// chromeLines is the height taken by everything except the list body.
const chromeLines = 6

const toastRefresh = time.Second

// Lister is the part of the synchronizer the browser drives. Its mutating
// calls are only made from commands, never from Update.
type Lister interface {
	ApplyFilters(ctx context.Context, filters pagination.Filters) (pagination.Outcome, error)
	LoadNextPage(ctx context.Context) (pagination.Outcome, error)
	Snapshot() pagination.ListState[inventory.Product]
}

type (
	loadDoneMsg struct {
		outcome pagination.Outcome
		hasMore bool
	}
	noticeMsg    notify.Notification
	toastTickMsg time.Time
	prefSavedMsg struct {
		mode prefs.ViewMode
		err  error
	}
)

type keyMap struct {
	up, down, left, right key.Binding
	pageUp, pageDown      key.Binding
	home, end             key.Binding
	search, status, sort  key.Binding
	toggleView, reload    key.Binding
	dismiss, quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		pageUp:     key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("pgup", "page up")),
		pageDown:   key.NewBinding(key.WithKeys("pgdown", "f", " "), key.WithHelp("pgdn", "page down")),
		home:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		end:        key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		status:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		sort:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		toggleView: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		dismiss:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.down, k.search, k.status, k.sort, k.toggleView, k.reload, k.dismiss, k.quit}
}

// Model is the bubbletea model of the product browser.
type Model struct {
	ctx      context.Context
	list     Lister
	scroller *scroll.Handler
	center   *notify.Center
	notices  <-chan notify.Notification
	store    *prefs.Store
	logger   zerolog.Logger

	keys    keyMap
	spinner spinner.Model
	search  textinput.Model

	filters   inventory.Filters
	products  []inventory.Product
	shown     int
	total     int
	hasMore   bool
	loading   bool
	searching bool

	preferred  prefs.ViewMode
	mode       prefs.ViewMode
	modeChosen bool
	layout     Layout

	cursor int
	top    int // first visible row
	toasts []notify.Notification
}

// ModelConfig holds the collaborators of a Model. Only List is required.
type ModelConfig struct {
	List     Lister
	Scroller *scroll.Handler
	Center   *notify.Center
	Notices  <-chan notify.Notification
	Prefs    *prefs.Store
	Filters  inventory.Filters
	Mode     prefs.ViewMode
}

// NewModel creates the browser model.
func NewModel(ctx context.Context, cfg ModelConfig) *Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = mutedStyle

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "design no, category or job no..."
	ti.CharLimit = 100

	mode := cfg.Mode
	if mode == "" {
		mode = prefs.DefaultViewMode
	}

	return &Model{
		ctx:       ctx,
		list:      cfg.List,
		scroller:  cfg.Scroller,
		center:    cfg.Center,
		notices:   cfg.Notices,
		store:     cfg.Prefs,
		logger:    log.With().Str("component", "tui").Logger(),
		keys:      defaultKeyMap(),
		spinner:   sp,
		search:    ti,
		filters:   cfg.Filters,
		hasMore:   true,
		preferred: mode,
		mode:      mode,
		layout:    Layout{Width: desktopMinWidth, Height: 40},
	}
}

// Init loads the first page and starts the background listeners.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.applyFilters(), m.waitForNotice(), m.spinner.Tick, toastTick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = Layout{Width: msg.Width, Height: msg.Height}
		if !m.modeChosen {
			m.mode = m.layout.InitialViewMode(m.preferred)
			m.modeChosen = true
		}
		m.search.Width = max(10, msg.Width-4)
		m.clampView()
		return m, m.fillViewport()

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)

	case resetMsg:
		m.products = nil
		m.cursor, m.top = 0, 0
		if m.scroller != nil {
			m.scroller.Reset()
		}
		return m, nil

	case appendMsg:
		// A page is placed at its start index; anything past it is from an
		// older list and is replaced.
		if msg.start < len(m.products) {
			m.products = m.products[:msg.start]
		}
		m.products = append(m.products, msg.items...)
		return m, nil

	case loadingMsg:
		m.loading = bool(msg)
		return m, nil

	case countsMsg:
		m.shown, m.total = msg.shown, msg.total
		return m, nil

	case loadDoneMsg:
		m.hasMore = msg.hasMore
		if msg.outcome == pagination.OutcomeLoaded {
			return m, m.fillViewport()
		}
		return m, nil

	case noticeMsg:
		m.toasts = append(m.toasts, notify.Notification(msg))
		return m, m.waitForNotice()

	case toastTickMsg:
		m.pruneToasts(time.Time(msg))
		return m, toastTick()

	case prefSavedMsg:
		if msg.err == nil {
			m.preferred = msg.mode
		} else {
			m.logger.Warn().Err(msg.err).Msg("Failed to save view preference")
			if m.center != nil {
				m.center.Warning("Could not save view preference")
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.filters.Search = strings.TrimSpace(m.search.Value())
		return m, m.applyFilters()
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.filters.Search)
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.columns()
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.scroller != nil {
			m.scroller.Stop()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.down):
		m.moveCursor(cols)
	case key.Matches(msg, m.keys.up):
		m.moveCursor(-cols)
	case key.Matches(msg, m.keys.right):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.left):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.pageDown):
		m.moveCursor(m.visibleRows() * cols)
	case key.Matches(msg, m.keys.pageUp):
		m.moveCursor(-m.visibleRows() * cols)
	case key.Matches(msg, m.keys.home):
		m.moveCursor(-len(m.products))
	case key.Matches(msg, m.keys.end):
		m.moveCursor(len(m.products))
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.SetValue(m.filters.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.status):
		m.filters.Status = nextStatus(m.filters.Status)
		return m, m.applyFilters()
	case key.Matches(msg, m.keys.sort):
		m.filters.Sort = nextSort(m.filters.Sort)
		return m, m.applyFilters()
	case key.Matches(msg, m.keys.reload):
		return m, m.applyFilters()
	case key.Matches(msg, m.keys.toggleView):
		m.mode = m.mode.Other()
		m.clampView()
		return m, m.savePreference(m.mode)
	case key.Matches(msg, m.keys.dismiss):
		m.dismissToast()
	}
	return m, nil
}

// moveCursor moves the selection by delta items and reports the new
// scroll position.
func (m *Model) moveCursor(delta int) {
	if len(m.products) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.products)-1)
	m.clampView()
	m.reportScroll()
}

// clampView keeps the cursor row inside the visible window.
func (m *Model) clampView() {
	if m.cursor >= len(m.products) {
		m.cursor = max(len(m.products)-1, 0)
	}
	row := m.cursor / m.columns()
	visible := m.visibleRows()
	if row < m.top {
		m.top = row
	}
	if row >= m.top+visible {
		m.top = row - visible + 1
	}
	m.top = max(m.top, 0)
}

func (m *Model) position() scroll.Position {
	rowHeight := m.rowHeight() * lineUnits
	return scroll.Position{
		Offset:         m.top * rowHeight,
		ViewportHeight: m.visibleRows() * rowHeight,
		ContentHeight:  m.totalRows() * rowHeight,
	}
}

func (m *Model) reportScroll() {
	if m.scroller != nil {
		m.scroller.OnScroll(m.position())
	}
}

// fillViewport loads another page while the list does not fill the screen,
// since no scrolling can happen until it does.
func (m *Model) fillViewport() tea.Cmd {
	if !m.hasMore || m.loading || m.totalRows() > m.visibleRows() {
		return nil
	}
	return m.loadNext()
}

func (m *Model) applyFilters() tea.Cmd {
	list, ctx, filters := m.list, m.ctx, m.filters.Map()
	return func() tea.Msg {
		outcome, _ := list.ApplyFilters(ctx, filters)
		return loadDoneMsg{outcome: outcome, hasMore: list.Snapshot().HasMore}
	}
}

func (m *Model) loadNext() tea.Cmd {
	list, ctx := m.list, m.ctx
	return func() tea.Msg {
		outcome, _ := list.LoadNextPage(ctx)
		return loadDoneMsg{outcome: outcome, hasMore: list.Snapshot().HasMore}
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	ch := m.notices
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (m *Model) savePreference(mode prefs.ViewMode) tea.Cmd {
	store := m.store
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return prefSavedMsg{mode: mode, err: store.Save(mode)}
	}
}

func toastTick() tea.Cmd {
	return tea.Tick(toastRefresh, func(t time.Time) tea.Msg { return toastTickMsg(t) })
}

func (m *Model) pruneToasts(now time.Time) {
	kept := m.toasts[:0]
	for _, n := range m.toasts {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	m.toasts = kept
	if m.center != nil {
		m.center.Prune(now)
	}
}

func (m *Model) dismissToast() {
	if len(m.toasts) == 0 {
		return
	}
	last := m.toasts[len(m.toasts)-1]
	m.toasts = m.toasts[:len(m.toasts)-1]
	if m.center != nil {
		m.center.Dismiss(last.ID)
	}
}

func (m *Model) columns() int {
	if m.mode == prefs.ViewCard {
		return m.layout.CardColumns()
	}
	return 1
}

func (m *Model) rowHeight() int {
	if m.mode == prefs.ViewCard {
		return cardHeight
	}
	return 1
}

func (m *Model) totalRows() int {
	cols := m.columns()
	return (len(m.products) + cols - 1) / cols
}

func (m *Model) visibleRows() int {
	body := m.layout.Height - chromeLines - len(m.toasts)
	return max(body/m.rowHeight(), 1)
}

func nextStatus(s string) string {
	switch s {
	case "", inventory.All:
		return inventory.StatusInStock
	case inventory.StatusInStock:
		return inventory.StatusNotInStock
	default:
		return ""
	}
}

func nextSort(s string) string {
	switch s {
	case "":
		return inventory.SortDesignNo
	case inventory.SortDesignNo:
		return inventory.SortCategory
	case inventory.SortCategory:
		return inventory.SortNewest
	default:
		return ""
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(mutedStyle.Render(m.filterSummary()))
	}
	b.WriteString("\n")

	if m.mode == prefs.ViewCard {
		b.WriteString(m.renderCards())
	} else {
		b.WriteString(m.renderTable())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	for _, n := range m.toasts {
		b.WriteString("\n")
		b.WriteString(toastStyle(n.Level).Render(n.Message))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.shortHelp()))
	return b.String()
}

func (m *Model) renderHeader() string {
	toggle := fmt.Sprintf("[v] %s", m.mode.ToggleLabel())
	return fmt.Sprintf("%s   %s", titleStyle.Render("DevERP Inventory"), accentHint(toggle))
}

func accentHint(s string) string { return headerStyle.Render(s) }

func (m *Model) filterSummary() string {
	parts := []string{"status: " + orAll(m.filters.Status)}
	if m.filters.Category != "" {
		parts = append(parts, "category: "+m.filters.Category)
	}
	if m.filters.Collection != "" {
		parts = append(parts, "collection: "+m.filters.Collection)
	}
	if m.filters.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", m.filters.Search))
	}
	if m.filters.Sort != "" {
		parts = append(parts, "sort: "+m.filters.Sort)
	}
	return strings.Join(parts, "  ")
}

func orAll(s string) string {
	if s == "" {
		return inventory.All
	}
	return s
}

func (m *Model) renderTable() string {
	cols := m.layout.tableColumns()
	var b strings.Builder

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = cell(c.title, c.width)
	}
	b.WriteString(headerStyle.Render(strings.Join(header, " ")))

	end := min(m.top+m.visibleRows(), len(m.products))
	for i := m.top; i < end; i++ {
		p := m.products[i]
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = cell(c.value(i, p), c.width)
		}
		line := strings.Join(cells, " ")
		switch {
		case i == m.cursor:
			line = selectedStyle.Render(line)
		case !p.InStock():
			line = statusStyle(false).Render(line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func (m *Model) renderCards() string {
	cols := m.columns()
	width := max(m.layout.Width/cols-2, 12)

	var rows []string
	end := min(m.top+m.visibleRows(), m.totalRows())
	for r := m.top; r < end; r++ {
		var cards []string
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= len(m.products) {
				break
			}
			cards = append(cards, m.renderCard(i, width))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderCard(i, width int) string {
	p := m.products[i]
	style := cardStyle
	if i == m.cursor {
		style = selectedCardStyle
	}
	inner := width - 4
	body := strings.Join([]string{
		titleStyle.Render(cell(p.DesignNo, inner)),
		mutedStyle.Render(cell(p.Category, inner)),
		fmt.Sprintf("%d pcs  %s", p.Pcs, statusStyle(p.InStock()).Render(p.StatusLabel())),
	}, "\n")
	return style.Width(width - 2).Render(body)
}

func (m *Model) renderStatus() string {
	total := m.total
	if total == 0 {
		total = m.shown
	}
	status := fmt.Sprintf("Showing %d of %d products", m.shown, total)
	switch {
	case m.loading:
		status += "  " + m.spinner.View() + " Loading..."
	case len(m.products) == 0 && !m.hasMore:
		status = "No products found"
	case !m.hasMore:
		status += "  " + mutedStyle.Render("(end of list)")
	}
	return status
}

func (m *Model) shortHelp() string {
	var parts []string
	if m.searching {
		return "enter: apply  esc: cancel"
	}
	for _, b := range m.keys.bindings() {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// cell pads or truncates s to width columns.
func cell(s string, width int) string {
	if lipgloss.Width(s) > width {
		r := []rune(s)
		for len(r) > 0 && lipgloss.Width(string(r)) > width-1 {
			r = r[:len(r)-1]
		}
		return string(r) + "…"
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}
