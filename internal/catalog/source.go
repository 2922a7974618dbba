package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Source names a paginated listing: "popular", "upcoming", "top_rated",
// "similar/<id>" or "search/<query>".
type Source string

const (
	Popular  Source = "popular"
	Upcoming Source = "upcoming"
	TopRated Source = "top_rated"
)

const (
	similarPrefix = "similar/"
	searchPrefix  = "search/"
)

// Similar lists titles related to id.
func Similar(id int) Source {
	return Source(similarPrefix + strconv.Itoa(id))
}

// SearchFor lists titles matching query.
func SearchFor(query string) Source {
	return Source(searchPrefix + strings.TrimSpace(query))
}

// ParseSource accepts the forms produced by the constructors above.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if _, _, _, err := src.endpoint(); err != nil {
		return "", err
	}
	return src, nil
}

// Query returns the search text for search sources.
func (s Source) Query() (string, bool) {
	return strings.CutPrefix(string(s), searchPrefix)
}

// Label is a human readable title for the source.
func (s Source) Label() string {
	switch s {
	case Popular:
		return "Popular"
	case Upcoming:
		return "Upcoming"
	case TopRated:
		return "Top Rated"
	}
	if q, ok := s.Query(); ok {
		return fmt.Sprintf("Results for %q", q)
	}
	if strings.HasPrefix(string(s), similarPrefix) {
		return "You may also like"
	}
	return string(s)
}

// posterFilter says how a source treats items without artwork.
type posterFilter int

const (
	noFilter posterFilter = iota
	// dropPosterless removes them and keeps paging until total_pages.
	dropPosterless
	// dropPosterlessAndStop also ends the listing at a page they emptied.
	dropPosterlessAndStop
)

// endpoint maps the source onto a request path and extra query parameters.
func (s Source) endpoint() (path string, params url.Values, filter posterFilter, err error) {
	switch s {
	case Popular, Upcoming, TopRated:
		return "/movie/" + string(s), nil, noFilter, nil
	}

	if id, ok := strings.CutPrefix(string(s), similarPrefix); ok {
		if _, convErr := strconv.Atoi(id); convErr != nil {
			return "", nil, noFilter, fmt.Errorf("invalid similar source %q", s)
		}
		return "/movie/" + id + "/similar", nil, dropPosterlessAndStop, nil
	}

	if q, ok := s.Query(); ok {
		if q == "" {
			return "", nil, noFilter, fmt.Errorf("empty search query")
		}
		return "/search/movie", url.Values{"query": {q}}, dropPosterless, nil
	}

	return "", nil, noFilter, fmt.Errorf("unknown source %q", s)
}
