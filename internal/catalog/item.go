package catalog

import (
	"fmt"
	"strings"
)

// Item is one catalog entry as returned by listing and search endpoints.
// The JSON names follow the catalog wire format so the same struct decodes
// responses and persists in the watchlist.
type Item struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
}

// Year is the release year, or "" when the date is unknown.
func (i Item) Year() string {
	if len(i.ReleaseDate) >= 4 {
		return i.ReleaseDate[:4]
	}
	return ""
}

// Match renders the vote average as a percentage, e.g. "73% Match".
func (i Item) Match() string {
	return fmt.Sprintf("%.0f%% Match", i.VoteAverage*10)
}

// ImageURL joins an image base URL with a poster or backdrop path.
func ImageURL(base, path string) string {
	if path == "" || base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Page is one page of a paginated listing.
type Page struct {
	Items      []Item `json:"results"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`

	// Fetched is the number of results the server returned before any
	// filtering. Zero means len(Items).
	Fetched int `json:"-"`
	// Final ends the listing at this page whatever TotalPages says.
	Final bool `json:"-"`
}

// Empty reports whether the server returned no results for this page.
// A page emptied by filtering is not empty.
func (p *Page) Empty() bool {
	return max(p.Fetched, len(p.Items)) == 0
}

// Last reports whether no further page can follow this one.
func (p *Page) Last() bool {
	return p.Final || p.Empty() || p.Page >= p.TotalPages
}

// Video is an entry of the details "videos" block.
type Video struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// URL is the watch link for YouTube videos; other sites return "".
func (v Video) URL() string {
	if v.Site != "YouTube" || v.Key == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + v.Key
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path,omitempty"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Details is the single-title response with videos and credits appended.
type Details struct {
	Item
	Runtime int     `json:"runtime"`
	Tagline string  `json:"tagline,omitempty"`
	Genres  []Genre `json:"genres,omitempty"`
	Videos  struct {
		Results []Video `json:"results"`
	} `json:"videos"`
	Credits struct {
		Cast []CastMember `json:"cast"`
	} `json:"credits"`
}

// Trailer returns the first YouTube trailer, if any.
func (d *Details) Trailer() (Video, bool) {
	for _, v := range d.Videos.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			return v, true
		}
	}
	return Video{}, false
}

// TopCast returns at most n cast members in billing order.
func (d *Details) TopCast(n int) []CastMember {
	cast := d.Credits.Cast
	if n >= 0 && len(cast) > n {
		cast = cast[:n]
	}
	return cast
}

// RuntimeString formats minutes as "2h 16m".
func (d *Details) RuntimeString() string {
	if d.Runtime <= 0 {
		return ""
	}
	h, m := d.Runtime/60, d.Runtime%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// GenreNames joins genre names with ", ".
func (d *Details) GenreNames() string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}
