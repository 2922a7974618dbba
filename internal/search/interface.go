package search

import (
	"iter"

	"github.com/pders01/reel/internal/catalog"
)

// Result is one watchlist entry matching a local query.
type Result struct {
	Item    catalog.Item
	Score   float64
	Matches []Match
}

// Searcher defines the minimal local search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// ItemSource is the collection a Searcher indexes; the watchlist store
// implements it.
type ItemSource interface {
	List() iter.Seq[catalog.Item]
	Get(id int) (catalog.Item, bool)
}

// DebugStatser provides lightweight stats for visibility/debugging.
// Implemented by engines that can report index doc counts, etc.
type DebugStatser interface {
	DocCount() (int, error)
}
