package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/reel/internal/catalog"
	"github.com/pders01/reel/internal/debuglog"
)

type bleveEngine struct {
	source ItemSource
	idx    bleve.Index
}

// NewBleveEngine creates or opens a bleve index at indexPath and syncs it with
// source. An empty path or ":memory:" keeps the index in memory.
func NewBleveEngine(source ItemSource, indexPath string) (Searcher, error) {
	var idx bleve.Index
	var err error

	if indexPath == "" || indexPath == ":memory:" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(indexPath), 0o755); mkErr != nil {
			return nil, fmt.Errorf("creating index directory: %w", mkErr)
		}
		idx, err = bleve.Open(indexPath)
		if err != nil {
			idx, err = bleve.New(indexPath, buildIndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	be := &bleveEngine{source: source, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	overview := bleve.NewTextFieldMapping()
	overview.Analyzer = standard.Name
	overview.Store = false

	year := bleve.NewTextFieldMapping()
	year.Analyzer = standard.Name
	year.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("overview", overview)
	dm.AddFieldMappingsAt("year", year)

	im.DefaultMapping = dm
	return im
}

func itemDoc(item catalog.Item) map[string]any {
	return map[string]any{
		"title":    item.Title,
		"overview": item.Overview,
		"year":     item.Year(),
	}
}

// reindexAll makes the index mirror the source: stale documents left over
// from an earlier run are deleted, current items are (re)indexed.
func (b *bleveEngine) reindexAll() error {
	current := make(map[string]struct{})
	batch := b.idx.NewBatch()
	for item := range b.source.List() {
		id := docID(item.ID)
		current[id] = struct{}{}
		if err := batch.Index(id, itemDoc(item)); err != nil {
			return fmt.Errorf("indexing %d: %w", item.ID, err)
		}
	}

	count, err := b.idx.DocCount()
	if err != nil {
		return err
	}
	if count > 0 {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
		res, err := b.idx.Search(req)
		if err != nil {
			return err
		}
		for _, h := range res.Hits {
			if _, ok := current[h.ID]; !ok {
				batch.Delete(h.ID)
			}
		}
	}

	return b.idx.Batch(batch)
}

func (b *bleveEngine) Search(query string, limit int) ([]*Result, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []*Result{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs = append(qs, qtp)

		qo := bleve.NewMatchQuery(tok)
		qo.SetField("overview")
		qo.SetBoost(2.0)
		qs = append(qs, qo)
		qop := bleve.NewPrefixQuery(tok)
		qop.SetField("overview")
		qop.SetBoost(1.8)
		qs = append(qs, qop)

		qy := bleve.NewTermQuery(tok)
		qy.SetField("year")
		qy.SetBoost(0.5)
		qs = append(qs, qy)
	}

	if limit <= 0 {
		limit = 50
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, ok := parseDocID(h.ID)
		if !ok {
			continue
		}
		item, ok := b.source.Get(id)
		if !ok {
			// Removed from the source after the index last synced.
			continue
		}
		r := &Result{Item: item, Score: h.Score}
		if t, ok := h.Fields["title"].(string); ok {
			r.Matches = []Match{{Field: "title", Text: t, Weight: h.Score}}
		}
		out = append(out, r)
	}
	return out, nil
}

// OnSelectionChanged keeps the index in step with watchlist mutations.
func (b *bleveEngine) OnSelectionChanged(item catalog.Item, selected bool) {
	var err error
	if selected {
		err = b.idx.Index(docID(item.ID), itemDoc(item))
	} else {
		err = b.idx.Delete(docID(item.ID))
	}
	if err != nil {
		debuglog.WithFields(map[string]interface{}{"component": "search"}).
			Warnf("updating index for %d: %v", item.ID, err)
	}
}

// DocCount reports total documents in the index.
func (b *bleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *bleveEngine) Close() error {
	return b.idx.Close()
}

func docID(id int) string { return "item:" + strconv.Itoa(id) }

func parseDocID(s string) (int, bool) {
	rest, ok := strings.CutPrefix(s, "item:")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	return id, err == nil
}
