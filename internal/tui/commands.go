package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/feed"
	"github.com/pders01/reel/internal/search"
)

// Messages produced by the commands below.
type (
	feedUpdatedMsg struct {
		target *surface
		snap   feed.Snapshot
		err    error
	}
	detailsLoadedMsg struct {
		id       int
		details  *catalog.Details
		markdown string
		err      error
	}
	searchUpdatedMsg struct {
		snap search.Snapshot
	}
	watchlistFilteredMsg struct {
		query   string
		results []*search.Result
		err     error
	}
	trailerOpenedMsg struct {
		link string
		err  error
	}
	errorMsg struct {
		err error
	}
)

// startFeed restarts s on src. The controller fetches page 1 before the
// command returns its message.
func (a *App) startFeed(s *surface, src catalog.Source) tea.Cmd {
	s.trigger.Rearm()
	return func() tea.Msg {
		err := s.ctrl.Start(a.ctx, src)
		return feedUpdatedMsg{target: s, snap: s.ctrl.State(), err: err}
	}
}

// advanceFeed asks s for its next page. ErrBusy and ErrExhausted come back
// in the message and are not failures.
func (a *App) advanceFeed(s *surface) tea.Cmd {
	return func() tea.Msg {
		err := s.ctrl.Fetch(a.ctx)
		return feedUpdatedMsg{target: s, snap: s.ctrl.State(), err: err}
	}
}

// observe feeds the list position of s to its trigger.
func (a *App) observe(s *surface) tea.Cmd {
	if s.trigger.Observe(s.position()) {
		return a.advanceFeed(s)
	}
	return nil
}

func (a *App) loadDetails(id int) tea.Cmd {
	imageBase := a.config.Catalog.ImageBaseURL
	timeout := a.config.Feed.FetchTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.ctx, timeout)
		defer cancel()

		d, err := a.catalog.Details(ctx, id)
		if err != nil {
			return detailsLoadedMsg{id: id, err: wrapErr("loading details", err)}
		}
		return detailsLoadedMsg{id: id, details: d, markdown: detailsMarkdown(d, imageBase)}
	}
}

// detailsMarkdown lays out a title page for glamour.
func detailsMarkdown(d *catalog.Details, imageBase string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	if d.Tagline != "" {
		fmt.Fprintf(&b, "*%s*\n\n", d.Tagline)
	}

	meta := []string{"**" + d.Match() + "**"}
	if year := d.Year(); year != "" {
		meta = append(meta, year)
	}
	if rt := d.RuntimeString(); rt != "" {
		meta = append(meta, rt)
	}
	if genres := d.GenreNames(); genres != "" {
		meta = append(meta, genres)
	}
	b.WriteString(strings.Join(meta, " • "))
	b.WriteString("\n\n")

	if d.Overview != "" {
		b.WriteString(d.Overview)
		b.WriteString("\n\n")
	}

	if cast := d.TopCast(10); len(cast) > 0 {
		b.WriteString("## Cast\n\n")
		for _, c := range cast {
			if c.Character != "" {
				fmt.Fprintf(&b, "- %s as %s\n", c.Name, c.Character)
			} else {
				fmt.Fprintf(&b, "- %s\n", c.Name)
			}
		}
		b.WriteString("\n")
	}

	if v, ok := d.Trailer(); ok {
		fmt.Fprintf(&b, "## Trailer\n\n[%s](%s)\n\n", v.Name, v.URL())
	}
	if poster := catalog.ImageURL(imageBase, d.PosterPath); poster != "" {
		fmt.Fprintf(&b, "---\n\n[Poster](%s)\n", poster)
	}
	return b.String()
}

func (a *App) openTrailer(d *catalog.Details) tea.Cmd {
	v, ok := d.Trailer()
	if !ok {
		return nil
	}
	link := v.URL()
	return func() tea.Msg {
		return trailerOpenedMsg{link: link, err: a.opener.Open(link)}
	}
}

// waitForSearch delivers the next dispatcher snapshot. It is re-issued after
// every delivery so exactly one reader is pending at a time.
func (a *App) waitForSearch() tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-a.searchUpdates:
			return searchUpdatedMsg{snap: snap}
		case <-a.ctx.Done():
			return nil
		}
	}
}

// publishSearch is the dispatcher callback. It never blocks: when the buffer
// is full the oldest snapshot gives way, which is safe because the view only
// keeps the highest token anyway.
func (a *App) publishSearch(s search.Snapshot) {
	for {
		select {
		case a.searchUpdates <- s:
			return
		default:
		}
		select {
		case <-a.searchUpdates:
		default:
		}
	}
}

func (a *App) filterWatchlist(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := a.searcher.Search(query, 0)
		return watchlistFilteredMsg{query: query, results: results, err: err}
	}
}
