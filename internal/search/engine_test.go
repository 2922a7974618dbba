package search

import (
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/reel/internal/catalog"
)

type sliceSource struct {
	items []catalog.Item
}

func (s *sliceSource) List() iter.Seq[catalog.Item] {
	return slices.Values(s.items)
}

func (s *sliceSource) Get(id int) (catalog.Item, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return catalog.Item{}, false
}

func testSource() *sliceSource {
	return &sliceSource{items: []catalog.Item{
		{ID: 603, Title: "The Matrix", Overview: "A hacker learns the truth about his reality.", ReleaseDate: "1999-03-31"},
		{ID: 604, Title: "The Matrix Reloaded", Overview: "Neo and the rebels fight the machines.", ReleaseDate: "2003-05-15"},
		{ID: 155, Title: "The Dark Knight", Overview: "Batman raises the stakes in his war on crime.", ReleaseDate: "2008-07-16"},
		{ID: 27205, Title: "Inception", Overview: "A thief who steals corporate secrets through dream-sharing technology.", ReleaseDate: "2010-07-15"},
	}}
}

func TestEngine_Search(t *testing.T) {
	e := NewEngine(testSource())

	tests := []struct {
		name    string
		query   string
		wantIDs []int
	}{
		{"title word", "matrix", []int{603, 604}},
		{"prefix", "incep", []int{27205}},
		{"overview only", "batman", []int{155}},
		{"year", "2008", []int{155}},
		{"no match", "zzzz", nil},
		{"blank", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Search(tt.query, 10)
			require.NoError(t, err)

			var ids []int
			for _, r := range res {
				ids = append(ids, r.Item.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestEngine_TitleOutranksOverview(t *testing.T) {
	src := &sliceSource{items: []catalog.Item{
		{ID: 1, Title: "Something Else", Overview: "a story about a heist"},
		{ID: 2, Title: "Heist", Overview: "crime"},
	}}
	res, err := NewEngine(src).Search("heist", 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 2, res[0].Item.ID)
	assert.Equal(t, "title", res[0].Matches[0].Field)
}

func TestEngine_Limit(t *testing.T) {
	res, err := NewEngine(testSource()).Search("the", 1)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "matrix", "2"}, tokenize("The Matrix: 2!"))
	assert.Equal(t, []string{"amélie"}, tokenize("Amélie"))
	assert.Empty(t, tokenize("a - b"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
