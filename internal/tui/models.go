package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/feed"
)

type View int

const (
	ViewBrowse View = iota
	ViewDetail
	ViewSearch
	ViewResults
	ViewWatchlist
)

// Tabs on the browse view, in display order.
var browseTabs = []catalog.Source{catalog.Popular, catalog.Upcoming, catalog.TopRated}

// surface is one paginated listing on screen: its own controller, trigger
// and list widget.
type surface struct {
	name    string
	home    bool
	ctrl    *feed.Controller
	trigger *feed.Trigger
	list    list.Model
	// generation of the last snapshot applied to list
	applied uint64
}

// position reports the list cursor as a scroll signal in item rows.
func (s *surface) position() feed.Position {
	return feed.Position{
		Offset:   s.list.Index(),
		Viewport: 1,
		Content:  len(s.list.Items()),
	}
}

func (s *surface) selected() (catalog.Item, bool) {
	it, ok := s.list.SelectedItem().(movieItem)
	if !ok {
		return catalog.Item{}, false
	}
	return it.item, true
}

// movieItem is a catalog title rendered in a list. saved mirrors the
// watchlist at the time the row was built.
type movieItem struct {
	item  catalog.Item
	saved bool
}

func (i movieItem) Title() string {
	title := i.item.Title
	if i.saved {
		title = SavedMarkStyle.Render("★") + " " + title
	}
	return title
}

func (i movieItem) Description() string {
	desc := i.item.Match()
	if year := i.item.Year(); year != "" {
		desc = fmt.Sprintf("%s • %s", desc, year)
	}
	if i.item.Overview != "" {
		desc += " • " + i.item.Overview
	}
	return desc
}

func (i movieItem) FilterValue() string { return i.item.Title }

// watchlistItem is a watchlist row, optionally carrying a local search
// snippet.
type watchlistItem struct {
	item    catalog.Item
	snippet string
}

func (i watchlistItem) Title() string { return i.item.Title }

func (i watchlistItem) Description() string {
	if i.snippet != "" {
		return i.snippet
	}
	desc := i.item.Match()
	if year := i.item.Year(); year != "" {
		desc += " • " + year
	}
	return desc
}

func (i watchlistItem) FilterValue() string { return i.item.Title }
