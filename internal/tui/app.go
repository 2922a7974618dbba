package tui

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/config"
	"github.com/pders01/reel/internal/feed"
	"github.com/pders01/reel/internal/media"
	"github.com/pders01/reel/internal/search"
	"github.com/pders01/reel/internal/watchlist"
)

// Catalog is the remote collaborator the views browse; *catalog.Client
// implements it.
type Catalog interface {
	catalog.Pager
	search.Querier
	Details(ctx context.Context, id int) (*catalog.Details, error)
}

// Opener launches links outside the terminal; *media.Launcher implements it.
type Opener interface {
	Open(link string) error
}

type App struct {
	config     *config.Config
	catalog    Catalog
	watchlist  *watchlist.Store
	searcher   search.Searcher
	opener     Opener
	dispatcher *search.Dispatcher
	keys       keyMap
	keyHandler *KeyHandler

	ctx    context.Context
	cancel context.CancelFunc

	tabs      []*surface
	activeTab int
	similar   *surface
	results   *surface

	hero    *catalog.Item
	heroGen uint64
	pick    func(n int) int

	detailItem     catalog.Item
	details        *catalog.Details
	detailMarkdown string
	detailErr      error
	loadingDetails bool
	detailHistory  []catalog.Item
	detailOrigin   View
	similarFocused bool
	viewport       viewport.Model

	searchInput   textinput.Model
	searchList    list.Model
	searchSnap    search.Snapshot
	searchUpdates chan search.Snapshot
	resultsQuery  string

	watchList   list.Model
	filterInput textinput.Model
	filterQuery string

	help         help.Model
	spinner      spinner.Model
	status       status
	view         View
	previousView View
	width        int
	height       int

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

// NewApp wires the views to their collaborators. searcher may be nil, in
// which case the watchlist is filtered by the in-memory engine.
func NewApp(cfg *config.Config, cat Catalog, wl *watchlist.Store, searcher search.Searcher) *App {
	ApplyTheme(cfg.UI.Colors)

	if searcher == nil {
		searcher = search.NewEngine(wl)
	}
	if l, ok := searcher.(watchlist.UpdateListener); ok {
		wl.Subscribe(l)
	}

	ctx, cancel := context.WithCancel(context.Background())

	si := textinput.New()
	si.Placeholder = "Search movies..."
	si.CharLimit = 256

	fi := textinput.New()
	fi.Placeholder = "Filter watchlist..."
	fi.Prompt = "/ "

	searchList := newList("› top matches")
	searchList.SetShowPagination(false)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	a := &App{
		config:        cfg,
		catalog:       cat,
		watchlist:     wl,
		searcher:      searcher,
		opener:        media.NewLauncher(cfg.Media),
		keys:          newKeyMap(cfg.Keys),
		ctx:           ctx,
		cancel:        cancel,
		pick:          rand.IntN,
		viewport:      viewport.New(0, 0),
		searchInput:   si,
		searchList:    searchList,
		searchUpdates: make(chan search.Snapshot, 16),
		watchList:     newList("› watchlist"),
		filterInput:   fi,
		help:          help.New(),
		spinner:       sp,
		view:          ViewBrowse,
		previousView:  ViewBrowse,
		detailOrigin:  ViewBrowse,
	}

	for i, src := range browseTabs {
		a.tabs = append(a.tabs, a.newSurface(src.Label(), src, i == 0))
	}
	a.similar = a.newSurface("more like this", catalog.Similar(0), false)
	a.results = a.newSurface("results", catalog.SearchFor("*"), false)

	a.dispatcher = search.NewDispatcher(cat,
		search.WithDebounce(cfg.Search.Debounce),
		search.WithLimit(cfg.Search.DropdownLimit),
		search.WithMinLength(cfg.Search.MinQueryLength),
		search.WithLookupTimeout(cfg.Feed.FetchTimeout),
		search.WithOnUpdate(a.publishSearch),
	)

	a.keyHandler = NewKeyHandler(a)
	return a
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

func (a *App) newSurface(name string, src catalog.Source, home bool) *surface {
	return &surface{
		name: name,
		home: home,
		ctrl: feed.NewController(a.catalog,
			feed.WithFetchTimeout(a.config.Feed.FetchTimeout),
			feed.WithDedupe(a.config.Feed.Dedupe),
		),
		trigger: feed.NewTrigger(feed.ThresholdFor(src, a.config.Feed.ProximityRows, home)),
		list:    newList("› " + strings.ToLower(name)),
	}
}

// Close stops background work. Call it after the program exits.
func (a *App) Close() {
	a.dispatcher.Close()
	a.cancel()
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}
	if a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	a.setStatus(MsgLoadingFeed, StatusInfo)
	return tea.Batch(
		a.startFeed(a.tabs[0], browseTabs[0]),
		a.waitForSearch(),
		a.spinner.Tick,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		if a.details != nil {
			a.renderDetails()
		}
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case feedUpdatedMsg:
		return a, a.handleFeedUpdate(msg)

	case detailsLoadedMsg:
		a.handleDetails(msg)
		return a, nil

	case searchUpdatedMsg:
		a.applySearch(msg.snap)
		return a, a.waitForSearch()

	case watchlistFilteredMsg:
		a.applyWatchlistFilter(msg)
		return a, nil

	case trailerOpenedMsg:
		if msg.err != nil {
			a.setStatus(describeErr(msg.err), StatusError)
		} else {
			a.setStatus("Opening "+truncateMiddle(msg.link, 48), StatusSuccess)
		}
		return a, nil

	case errorMsg:
		a.setStatus(describeErr(msg.err), StatusError)
		return a, nil
	}

	return a, nil
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = status{text: text, kind: kind}
}

func (a *App) clearStatus() {
	a.status = status{}
}

func (a *App) activeSurface() *surface {
	switch a.view {
	case ViewBrowse:
		return a.tabs[a.activeTab]
	case ViewDetail:
		if a.similarFocused {
			return a.similar
		}
	case ViewResults:
		return a.results
	}
	return nil
}

func (a *App) handleFeedUpdate(msg feedUpdatedMsg) tea.Cmd {
	if errors.Is(msg.err, feed.ErrBusy) || errors.Is(msg.err, feed.ErrStale) || errors.Is(msg.err, feed.ErrNotStarted) {
		return nil
	}

	s := msg.target
	snap := s.ctrl.State()
	a.applySurface(s, snap)

	visible := s == a.activeSurface() || (s == a.similar && a.view == ViewDetail)
	switch snap.Status {
	case feed.Failed:
		if visible {
			a.status = status{
				text:  MsgFetchFailed(snap.LastErr, a.keys.Retry.Help().Key),
				kind:  StatusError,
				retry: true,
			}
		}
	case feed.Exhausted:
		if !visible {
			return nil
		}
		if len(snap.Items) == 0 && s != a.similar {
			a.setStatus(MsgNoResults, StatusWarn)
		} else if s == a.activeSurface() {
			a.setStatus(MsgEndOfList, StatusInfo)
		}
	case feed.Idle:
		if visible && (a.status.retry || a.status.text == MsgLoadingFeed || a.status.text == MsgLoadingMore) {
			a.setStatus(MsgFeedProgress(len(snap.Items), snap.Cursor, snap.TotalPages), StatusInfo)
		}
		// Settled while the cursor may still sit in the proximity band.
		s.trigger.Rearm()
		if s == a.activeSurface() {
			return a.observe(s)
		}
	}
	return nil
}

// applySurface mirrors snap into the list of s, resetting the cursor when
// the listing was restarted.
func (a *App) applySurface(s *surface, snap feed.Snapshot) {
	if snap.Generation != s.applied {
		s.list.ResetSelected()
		s.applied = snap.Generation
	}
	s.list.SetItems(a.movieItems(snap.Items))

	if s.home && snap.Generation != a.heroGen && len(snap.Items) > 0 {
		// The first non-empty snapshot of a generation is page 1.
		hero := snap.Items[a.pick(len(snap.Items))]
		a.hero = &hero
		a.heroGen = snap.Generation
	}
}

func (a *App) movieItems(items []catalog.Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = movieItem{item: it, saved: a.watchlist.Contains(it.ID)}
	}
	return out
}

// refreshMarks re-reads the watchlist for every rendered title row.
func (a *App) refreshMarks() {
	lists := []*list.Model{&a.searchList, &a.similar.list, &a.results.list}
	for _, s := range a.tabs {
		lists = append(lists, &s.list)
	}
	for _, l := range lists {
		items := l.Items()
		for i, li := range items {
			if m, ok := li.(movieItem); ok {
				m.saved = a.watchlist.Contains(m.item.ID)
				items[i] = m
			}
		}
		l.SetItems(items)
	}
}

// toggleSaved flips item in the watchlist and reports it.
func (a *App) toggleSaved(item catalog.Item) {
	saved := a.watchlist.Toggle(item)
	a.refreshMarks()
	if err := a.watchlist.LastPersistErr(); err != nil {
		a.setStatus(describeErr(wrapErr("saving watchlist", err)), StatusWarn)
		return
	}
	a.setStatus(MsgSaved(item.Title, saved), StatusSuccess)
}

func (a *App) switchTab(next int) tea.Cmd {
	a.activeTab = (next + len(a.tabs)) % len(a.tabs)
	s := a.tabs[a.activeTab]
	snap := s.ctrl.State()
	if snap.Source == "" {
		a.setStatus(MsgLoadingFeed, StatusInfo)
		return a.startFeed(s, browseTabs[a.activeTab])
	}
	a.setStatus(MsgFeedProgress(len(snap.Items), snap.Cursor, snap.TotalPages), StatusInfo)
	return nil
}

// openDetail navigates to item. From another detail page the current title
// is remembered so back returns to it.
func (a *App) openDetail(item catalog.Item) tea.Cmd {
	if a.view == ViewDetail {
		a.detailHistory = append(a.detailHistory, a.detailItem)
	} else {
		a.detailOrigin = a.view
		a.detailHistory = nil
	}
	return a.showDetail(item)
}

func (a *App) showDetail(item catalog.Item) tea.Cmd {
	a.view = ViewDetail
	a.detailItem = item
	a.similarFocused = false
	a.viewport.SetContent("")
	return tea.Batch(a.reloadDetails(), a.startFeed(a.similar, catalog.Similar(item.ID)))
}

func (a *App) reloadDetails() tea.Cmd {
	a.details = nil
	a.detailMarkdown = ""
	a.detailErr = nil
	a.loadingDetails = true
	a.setStatus(MsgLoadingDetails, StatusInfo)
	return a.loadDetails(a.detailItem.ID)
}

func (a *App) handleDetails(msg detailsLoadedMsg) {
	if a.view != ViewDetail || msg.id != a.detailItem.ID {
		return
	}
	a.loadingDetails = false
	if msg.err != nil {
		a.detailErr = msg.err
		a.status = status{
			text:  MsgFetchFailed(msg.err, a.keys.Retry.Help().Key),
			kind:  StatusError,
			retry: true,
		}
		return
	}
	a.details = msg.details
	a.detailMarkdown = msg.markdown
	a.detailItem = msg.details.Item
	a.clearStatus()
	if _, ok := msg.details.Trailer(); !ok {
		a.setStatus(MsgNoTrailer, StatusInfo)
	}
	a.renderDetails()
}

func (a *App) renderDetails() {
	content := a.detailMarkdown
	if r, err := a.getRenderer(); err == nil {
		if rendered, err := r.Render(a.detailMarkdown); err == nil {
			content = rendered
		}
	}
	a.viewport.SetContent(content)
	a.viewport.GotoTop()
}

// rememberOrigin records where search and watchlist return to. Moving
// between those views keeps the original origin.
func (a *App) rememberOrigin() {
	switch a.view {
	case ViewSearch, ViewResults, ViewWatchlist:
		return
	}
	a.previousView = a.view
}

func (a *App) enterSearch() {
	a.rememberOrigin()
	a.view = ViewSearch
	a.searchInput.Focus()
	a.clearStatus()
}

func (a *App) submitSearch() tea.Cmd {
	text := sanitizeQuery(a.searchInput.Value())
	if text == "" {
		return nil
	}
	a.dispatcher.Commit(text)
	a.resultsQuery = text
	a.results.list.Title = "› results for " + truncateEnd(text, 40)
	a.view = ViewResults
	a.setStatus(MsgSearching, StatusInfo)
	return a.startFeed(a.results, catalog.SearchFor(text))
}

// applySearch keeps the dropdown on the newest dispatcher snapshot.
func (a *App) applySearch(snap search.Snapshot) {
	if snap.Token < a.searchSnap.Token {
		return
	}
	a.searchSnap = snap
	a.searchList.SetItems(a.movieItems(snap.Items))
	if a.view != ViewSearch {
		return
	}
	switch {
	case snap.Loading:
		a.setStatus(MsgSearching, StatusInfo)
	case snap.Failed || (snap.Text != "" && len(snap.Items) == 0):
		a.setStatus(MsgNoResults, StatusWarn)
	case snap.Text != "":
		a.setStatus(MsgResultsCount(len(snap.Items)), StatusInfo)
	default:
		a.clearStatus()
	}
}

func (a *App) enterWatchlist() {
	a.rememberOrigin()
	a.view = ViewWatchlist
	a.filterQuery = ""
	a.filterInput.Reset()
	a.filterInput.Blur()
	a.reloadWatchlist()
}

func (a *App) reloadWatchlist() {
	var items []list.Item
	for it := range a.watchlist.List() {
		items = append(items, watchlistItem{item: it})
	}
	a.watchList.SetItems(items)
	if len(items) == 0 {
		a.setStatus(MsgWatchlistEmpty, StatusInfo)
	} else {
		a.setStatus(MsgResultsCount(len(items)), StatusInfo)
	}
}

func (a *App) applyWatchlistFilter(msg watchlistFilteredMsg) {
	if msg.query != a.filterQuery {
		return
	}
	if msg.err != nil {
		a.setStatus(describeErr(wrapErr("filtering watchlist", msg.err)), StatusError)
		return
	}
	items := make([]list.Item, 0, len(msg.results))
	for _, r := range msg.results {
		wi := watchlistItem{item: r.Item}
		for _, m := range r.Matches {
			if m.Field == "overview" {
				wi.snippet = m.Text
			}
		}
		items = append(items, wi)
	}
	a.watchList.ResetSelected()
	a.watchList.SetItems(items)
	if len(items) == 0 {
		a.setStatus(MsgNoResults, StatusWarn)
	} else {
		a.setStatus(MsgResultsCount(len(items)), StatusInfo)
	}
}

func (a *App) removeFromWatchlist() tea.Cmd {
	wi, ok := a.watchList.SelectedItem().(watchlistItem)
	if !ok {
		return nil
	}
	a.watchlist.Remove(wi.item.ID)
	a.refreshMarks()
	a.setStatus(MsgSaved(wi.item.Title, false), StatusSuccess)
	if a.filterQuery != "" {
		return a.filterWatchlist(a.filterQuery)
	}
	idx := a.watchList.Index()
	a.reloadWatchlist()
	a.setStatus(MsgSaved(wi.item.Title, false), StatusSuccess)
	if n := len(a.watchList.Items()); n > 0 {
		a.watchList.Select(min(idx, n-1))
	}
	return nil
}

func (a *App) retry() tea.Cmd {
	if a.view == ViewDetail && a.detailErr != nil {
		return a.reloadDetails()
	}
	s := a.activeSurface()
	if s == nil && a.view == ViewDetail {
		s = a.similar
	}
	if s == nil || s.ctrl.State().Status != feed.Failed {
		return nil
	}
	a.setStatus(MsgLoadingMore, StatusInfo)
	s.trigger.Rearm()
	return a.advanceFeed(s)
}

const footerHeight = 3

func (a *App) contentHeight() int {
	h := a.height - footerHeight
	if a.help.ShowAll {
		h -= 3
	}
	return max(h, 3)
}

// layout sizes the widgets that do not depend on per-frame content.
func (a *App) layout() {
	h := a.contentHeight()
	a.help.Width = a.width

	for _, s := range a.tabs {
		s.list.SetSize(a.width, h-2)
	}
	a.results.list.SetSize(a.width, h)

	detailHeight := h * 3 / 5
	a.viewport.Width = a.width
	a.viewport.Height = detailHeight
	a.similar.list.SetSize(a.width, max(h-detailHeight-1, 3))

	inputWidth := max(a.width-8, 10)
	a.searchInput.Width = inputWidth
	a.filterInput.Width = inputWidth
	a.searchList.SetSize(a.width, max(h-5, 5))
	a.watchList.SetSize(a.width, max(h-2, 3))
}

func (a *App) View() string {
	h := a.contentHeight()

	var content string
	switch a.view {
	case ViewBrowse:
		content = a.browseView(h)
	case ViewDetail:
		content = a.detailView()
	case ViewSearch:
		content = a.searchView()
	case ViewResults:
		content = a.results.list.View()
	case ViewWatchlist:
		content = a.watchlistView()
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 1)))
	return lipgloss.JoinVertical(lipgloss.Top,
		ContentWrapper(a.width, h).Render(content),
		separator,
		a.statusBar(),
		lipgloss.NewStyle().Padding(0, 1).Render(a.help.View(a.keys.forView(a.view))),
	)
}

func (a *App) browseView(h int) string {
	s := a.tabs[a.activeTab]
	rows := []string{renderTabs(a.activeTab), ""}

	if len(s.list.Items()) == 0 && a.config.Catalog.APIKey == "" && s.ctrl.State().Status != feed.Fetching {
		return lipgloss.JoinVertical(lipgloss.Top, append(rows, renderCentered(a.width, h-2, GetWelcomeMessage()))...)
	}

	if s.home && a.hero != nil {
		hero := renderHero(*a.hero, a.watchlist.Contains(a.hero.ID), a.width)
		rows = append(rows, hero)
	}
	used := lipgloss.Height(lipgloss.JoinVertical(lipgloss.Top, rows...))
	s.list.SetHeight(max(h-used, 3))
	rows = append(rows, s.list.View())
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

func (a *App) detailView() string {
	var top string
	switch {
	case a.loadingDetails:
		top = renderCentered(a.width, a.viewport.Height, renderMuted(a.spinner.View()+" "+MsgLoadingDetails))
	case a.detailErr != nil:
		top = renderCentered(a.width, a.viewport.Height, StatusErrorStyle.Render(describeErr(a.detailErr)))
	default:
		top = a.viewport.View()
	}

	header := HeaderStyle.Render("› more like this")
	if a.similarFocused {
		header = ActiveTabStyle.Render("more like this")
	}

	bottom := a.similar.list.View()
	if len(a.similar.list.Items()) == 0 {
		bottom = renderMuted("  no related titles")
	}
	return lipgloss.JoinVertical(lipgloss.Top, top, header, bottom)
}

func (a *App) searchView() string {
	input := renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width)

	hint := "Type to search • enter: all results • tab/↓: top matches • esc: back"
	if !a.searchInput.Focused() {
		hint = "↑↓: navigate • enter: open • tab: search box • esc: back"
	}

	return lipgloss.JoinVertical(lipgloss.Top,
		renderHeader("› search", "", a.width),
		"",
		input,
		renderHelp(hint),
		a.searchList.View(),
	)
}

func (a *App) watchlistView() string {
	rows := []string{}
	if a.filterInput.Focused() || a.filterQuery != "" {
		rows = append(rows, a.filterInput.View())
	} else {
		rows = append(rows, renderMuted(MsgResultsCount(a.watchlist.Len())+" saved"))
	}
	if len(a.watchList.Items()) == 0 {
		rows = append(rows, "", renderCentered(a.width, 3, renderMuted(MsgWatchlistEmpty)))
	} else {
		rows = append(rows, a.watchList.View())
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

func (a *App) statusBar() string {
	line := a.status.text
	busy := a.loadingDetails || a.searchSnap.Loading && a.view == ViewSearch
	if s := a.activeSurface(); s != nil && s.ctrl.State().Status == feed.Fetching {
		busy = true
		if line == "" {
			line = MsgLoadingMore
		}
	}

	rendered := renderStatus(line, a.status.kind)
	if busy {
		rendered = a.spinner.View() + " " + rendered
	}
	return lipgloss.NewStyle().
		Width(a.width).
		MaxWidth(max(a.width, 1)).
		Padding(0, 1).
		Render(rendered)
}
