package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingFeed    = "Loading titles…"
	MsgLoadingMore    = "Loading more…"
	MsgLoadingDetails = "Loading details…"
	MsgSearching      = "Searching…"
	MsgNoResults      = "No results"
	MsgEndOfList      = "End of list"
	MsgNoTrailer      = "No trailer available"
	MsgWatchlistEmpty = "Your watchlist is empty"
)

func MsgSaved(title string, saved bool) string {
	title = strings.TrimSpace(title)
	if saved {
		return fmt.Sprintf("Added '%s' to watchlist", title)
	}
	return fmt.Sprintf("Removed '%s' from watchlist", title)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

// MsgFeedProgress summarizes a listing: "40 titles • page 2/500".
func MsgFeedProgress(items, cursor, totalPages int) string {
	base := fmt.Sprintf("%d titles", items)
	if totalPages > 0 {
		page := cursor - 1
		if page < 1 {
			page = 1
		}
		base += fmt.Sprintf(" • page %d/%d", page, totalPages)
	}
	return base
}

func MsgFetchFailed(err error, retryKey string) string {
	return fmt.Sprintf("%s • %s: retry", describeErr(err), retryKey)
}
