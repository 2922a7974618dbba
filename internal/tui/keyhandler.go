package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type KeyHandler struct {
	app         *App
	keys        keyMap
	modifierKey string
}

func NewKeyHandler(app *App) *KeyHandler {
	return &KeyHandler{
		app:         app,
		keys:        app.keys,
		modifierKey: app.config.Keys.Modifier + "+",
	}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model, cmd, handled := kh.handleGlobalKeys(msg); handled {
		return model, cmd
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(msg); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

// handleGlobalKeys covers the keys that work everywhere, text inputs included.
func (kh *KeyHandler) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case msg.String() == "ctrl+c":
		return kh.app, tea.Quit, true
	case key.Matches(msg, kh.keys.Back):
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Search):
		kh.app.enterSearch()
		return kh.app, nil, true
	case key.Matches(msg, kh.keys.Watchlist):
		kh.app.enterWatchlist()
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewSearch:
		return kh.app.searchInput.Focused()
	case ViewWatchlist:
		return kh.app.filterInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewSearch:
		switch msg.String() {
		case "enter":
			return kh.app, kh.app.submitSearch()
		case "tab", "down":
			if len(kh.app.searchList.Items()) > 0 {
				kh.app.searchInput.Blur()
				kh.app.searchList.Select(0)
			}
			return kh.app, nil
		}
		return kh.app, kh.typeSearch(msg)

	case ViewWatchlist:
		switch msg.String() {
		case "enter", "tab", "down":
			kh.app.filterInput.Blur()
			return kh.app, nil
		}
		return kh.app, kh.typeFilter(msg)
	}
	return kh.app, nil
}

// typeSearch forwards a keystroke to the search box and hands changed text
// to the dispatcher, which debounces it.
func (kh *KeyHandler) typeSearch(msg tea.KeyMsg) tea.Cmd {
	prev := kh.app.searchInput.Value()
	var cmd tea.Cmd
	kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)
	if next := kh.app.searchInput.Value(); next != prev {
		kh.app.dispatcher.SetText(sanitizeQuery(next))
	}
	return cmd
}

// typeFilter forwards a keystroke to the watchlist filter. The filter is
// local, so every change queries the index right away.
func (kh *KeyHandler) typeFilter(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	kh.app.filterInput, cmd = kh.app.filterInput.Update(msg)

	query := sanitizeQuery(kh.app.filterInput.Value())
	if query == kh.app.filterQuery {
		return cmd
	}
	kh.app.filterQuery = query
	if query == "" {
		kh.app.reloadWatchlist()
		return cmd
	}
	return tea.Batch(cmd, kh.app.filterWatchlist(query))
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, kh.keys.Quit):
		return kh.app, tea.Quit, true
	case key.Matches(msg, kh.keys.Help):
		kh.app.help.ShowAll = !kh.app.help.ShowAll
		kh.app.layout()
		return kh.app, nil, true
	}

	switch kh.app.view {
	case ViewBrowse:
		return kh.handleBrowseKeys(msg)
	case ViewDetail:
		return kh.handleDetailKeys(msg)
	case ViewSearch:
		return kh.handleDropdownKeys(msg)
	case ViewResults:
		return kh.handleResultsKeys(msg)
	case ViewWatchlist:
		return kh.handleWatchlistKeys(msg)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	s := kh.app.tabs[kh.app.activeTab]
	switch {
	case key.Matches(msg, kh.keys.NextTab):
		return kh.app, kh.app.switchTab(kh.app.activeTab + 1), true
	case msg.String() == "shift+tab":
		return kh.app, kh.app.switchTab(kh.app.activeTab - 1), true
	case key.Matches(msg, kh.keys.Toggle):
		if item, ok := s.selected(); ok {
			kh.app.toggleSaved(item)
		}
		return kh.app, nil, true
	case key.Matches(msg, kh.keys.Retry):
		return kh.app, kh.app.retry(), true
	case key.Matches(msg, kh.keys.Open):
		if item, ok := s.selected(); ok {
			return kh.app, kh.app.openDetail(item), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	app := kh.app
	switch {
	case key.Matches(msg, kh.keys.Trailer):
		if app.details == nil {
			return app, nil, true
		}
		if _, ok := app.details.Trailer(); !ok {
			app.setStatus(MsgNoTrailer, StatusWarn)
			return app, nil, true
		}
		return app, app.openTrailer(app.details), true
	case key.Matches(msg, kh.keys.Toggle):
		item := app.detailItem
		if app.similarFocused {
			sel, ok := app.similar.selected()
			if !ok {
				return app, nil, true
			}
			item = sel
		}
		app.toggleSaved(item)
		return app, nil, true
	case key.Matches(msg, kh.keys.NextTab):
		if len(app.similar.list.Items()) > 0 {
			app.similarFocused = !app.similarFocused
		}
		return app, nil, true
	case key.Matches(msg, kh.keys.Retry):
		return app, app.retry(), true
	case key.Matches(msg, kh.keys.Open):
		if !app.similarFocused {
			return app, nil, true
		}
		if item, ok := app.similar.selected(); ok {
			return app, app.openDetail(item), true
		}
		return app, nil, true
	}
	return app, nil, false
}

// handleDropdownKeys runs while the search box is blurred and the top
// matches list has focus.
func (kh *KeyHandler) handleDropdownKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	app := kh.app
	switch msg.String() {
	case "tab", "shift+tab", "/", "i":
		app.searchInput.Focus()
		return app, nil, true
	case "up":
		if app.searchList.Index() == 0 {
			app.searchInput.Focus()
			return app, nil, true
		}
	case "enter":
		if it, ok := app.searchList.SelectedItem().(movieItem); ok {
			return app, app.openDetail(it.item), true
		}
		return app, nil, true
	}
	if key.Matches(msg, kh.keys.Toggle) {
		if it, ok := app.searchList.SelectedItem().(movieItem); ok {
			app.toggleSaved(it.item)
		}
		return app, nil, true
	}
	return app, nil, false
}

func (kh *KeyHandler) handleResultsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	s := kh.app.results
	switch {
	case key.Matches(msg, kh.keys.Toggle):
		if item, ok := s.selected(); ok {
			kh.app.toggleSaved(item)
		}
		return kh.app, nil, true
	case key.Matches(msg, kh.keys.Retry):
		return kh.app, kh.app.retry(), true
	case key.Matches(msg, kh.keys.Open):
		if item, ok := s.selected(); ok {
			return kh.app, kh.app.openDetail(item), true
		}
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleWatchlistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	app := kh.app
	switch {
	case key.Matches(msg, kh.keys.Filter):
		app.filterInput.Focus()
		return app, nil, true
	case key.Matches(msg, kh.keys.Remove), key.Matches(msg, kh.keys.Toggle):
		return app, app.removeFromWatchlist(), true
	case key.Matches(msg, kh.keys.Open):
		if wi, ok := app.watchList.SelectedItem().(watchlistItem); ok {
			return app, app.openDetail(wi.item), true
		}
		return app, nil, true
	}
	return app, nil, false
}

// delegateToCharm lets the focused bubbles widget handle navigation, then
// feeds the new position to the listing's trigger.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	app := kh.app
	var cmd tea.Cmd

	switch app.view {
	case ViewBrowse, ViewResults:
		s := app.activeSurface()
		s.list, cmd = s.list.Update(msg)
		return app, tea.Batch(cmd, app.observe(s))

	case ViewDetail:
		if app.similarFocused {
			app.similar.list, cmd = app.similar.list.Update(msg)
			return app, tea.Batch(cmd, app.observe(app.similar))
		}
		app.viewport, cmd = app.viewport.Update(msg)
		return app, cmd

	case ViewSearch:
		app.searchList, cmd = app.searchList.Update(msg)
		return app, cmd

	case ViewWatchlist:
		app.watchList, cmd = app.watchList.Update(msg)
		return app, cmd

	default:
		return app, nil
	}
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	app := kh.app
	switch app.view {
	case ViewDetail:
		if n := len(app.detailHistory); n > 0 {
			prev := app.detailHistory[n-1]
			app.detailHistory = app.detailHistory[:n-1]
			return app, app.showDetail(prev)
		}
		app.view = app.detailOrigin
		app.clearStatus()
		return app, nil

	case ViewSearch:
		app.view = app.previousView
		app.searchInput.Reset()
		app.searchInput.Blur()
		app.dispatcher.SetText("")
		app.clearStatus()
		return app, nil

	case ViewResults:
		app.view = ViewSearch
		app.searchInput.Focus()
		app.clearStatus()
		return app, nil

	case ViewWatchlist:
		if app.filterInput.Focused() || app.filterQuery != "" {
			app.filterInput.Reset()
			app.filterInput.Blur()
			app.filterQuery = ""
			app.reloadWatchlist()
			return app, nil
		}
		app.view = app.previousView
		app.clearStatus()
		return app, nil

	default:
		if app.help.ShowAll {
			app.help.ShowAll = false
			app.layout()
			return app, nil
		}
		return app, tea.Quit
	}
}
