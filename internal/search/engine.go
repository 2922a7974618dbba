package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pders01/reel/internal/catalog"
)

// Match represents where text was found
type Match struct {
	Field  string // "title", "overview", "year"
	Text   string // matched text snippet
	Weight float64
}

// Engine scores items in memory on every query. It needs no index and is
// the fallback when the bleve index cannot be opened.
type Engine struct {
	source ItemSource
}

func NewEngine(source ItemSource) *Engine {
	return &Engine{source: source}
}

// Search ranks the source's items against query, best first.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	var results []*Result
	for item := range e.source.List() {
		if r := e.searchItem(item, terms); r != nil {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) searchItem(item catalog.Item, terms []string) *Result {
	var matches []Match
	var totalScore float64

	if s := e.scoreField(item.Title, terms, 4.0); s > 0 {
		matches = append(matches, Match{Field: "title", Text: item.Title, Weight: s})
		totalScore += s
	}

	if s := e.scoreField(item.Overview, terms, 2.0); s > 0 {
		matches = append(matches, Match{
			Field:  "overview",
			Text:   e.findBestSnippet(item.Overview, terms, 160),
			Weight: s,
		})
		totalScore += s
	}

	if year := item.Year(); year != "" {
		if s := e.scoreField(year, terms, 0.5); s > 0 {
			matches = append(matches, Match{Field: "year", Text: year, Weight: s})
			totalScore += s
		}
	}

	if totalScore == 0 {
		return nil
	}
	return &Result{Item: item, Score: totalScore, Matches: matches}
}

// scoreField calculates relevance score for a field
func (e *Engine) scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		// Substring anywhere in the field
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term):
				score += 1.0
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet returns the window of text with the most term hits.
func (e *Engine) findBestSnippet(text string, terms []string, maxLength int) string {
	words := strings.Fields(text)
	windowSize := maxLength / 8
	if windowSize >= len(words) {
		return truncate(text, maxLength)
	}

	bestScore, bestStart := 0, 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore, bestStart = score, i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+windowSize], " "), maxLength)
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit. Single digits survive so years and sequel numbers match.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		term := current.String()
		current.Reset()
		r := []rune(term)
		if len(r) > 1 || unicode.IsDigit(r[0]) {
			terms = append(terms, term)
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}

// truncate limits text length with ellipsis
func truncate(text string, maxLen int) string {
	r := []rune(text)
	if len(r) <= maxLen {
		return text
	}
	return string(r[:maxLen-1]) + "…"
}
