package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/pders01/reel/internal/config"
)

// keyMap holds the bindings built from [keys]. Search and watchlist use the
// modifier so they also work while a text input has focus.
type keyMap struct {
	Quit      key.Binding
	Search    key.Binding
	Watchlist key.Binding
	Toggle    key.Binding
	Trailer   key.Binding
	NextTab   key.Binding
	Retry     key.Binding
	Back      key.Binding
	Help      key.Binding
	Open      key.Binding
	Filter    key.Binding
	Remove    key.Binding
	Navigate  key.Binding
}

func newKeyMap(cfg config.KeyConfig) keyMap {
	mod := cfg.Modifier + "+"
	b := cfg.Bindings
	return keyMap{
		Quit:      key.NewBinding(key.WithKeys(b.Quit), key.WithHelp(b.Quit, "quit")),
		Search:    key.NewBinding(key.WithKeys(mod+b.Search), key.WithHelp(mod+b.Search, "search")),
		Watchlist: key.NewBinding(key.WithKeys(mod+b.Watchlist), key.WithHelp(mod+b.Watchlist, "watchlist")),
		Toggle:    key.NewBinding(key.WithKeys(b.ToggleWatchlist), key.WithHelp(b.ToggleWatchlist, "watchlist ±")),
		Trailer:   key.NewBinding(key.WithKeys(b.Trailer), key.WithHelp(b.Trailer, "trailer")),
		NextTab:   key.NewBinding(key.WithKeys(b.NextTab), key.WithHelp(b.NextTab, "next tab")),
		Retry:     key.NewBinding(key.WithKeys(b.Retry), key.WithHelp(b.Retry, "retry")),
		Back:      key.NewBinding(key.WithKeys(b.Back), key.WithHelp(b.Back, "back")),
		Help:      key.NewBinding(key.WithKeys(b.Help), key.WithHelp(b.Help, "help")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Remove:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Navigate:  key.NewBinding(key.WithKeys("up", "down", "k", "j"), key.WithHelp("↑/↓", "move")),
	}
}

// viewKeys adapts keyMap to help.KeyMap for one view.
type viewKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (v viewKeys) ShortHelp() []key.Binding  { return v.short }
func (v viewKeys) FullHelp() [][]key.Binding { return v.full }

func (k keyMap) forView(view View) viewKeys {
	global := []key.Binding{k.Search, k.Watchlist, k.Back, k.Quit, k.Help}
	var local []key.Binding
	switch view {
	case ViewBrowse:
		local = []key.Binding{k.Open, k.NextTab, k.Toggle, k.Retry}
	case ViewDetail:
		local = []key.Binding{k.Trailer, k.Toggle, k.NextTab, k.Open, k.Retry}
	case ViewSearch:
		local = []key.Binding{k.Open, k.Navigate}
		global = []key.Binding{k.Watchlist, k.Back, k.Help}
	case ViewResults:
		local = []key.Binding{k.Open, k.Toggle, k.Retry}
	case ViewWatchlist:
		local = []key.Binding{k.Open, k.Filter, k.Remove}
	}
	return viewKeys{
		short: append(append([]key.Binding{}, local...), k.Help),
		full:  [][]key.Binding{append(local, k.Navigate), global},
	}
}
