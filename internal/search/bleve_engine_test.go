package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/reel/internal/catalog"
)

func TestBleveEngineIndexesAndSearches(t *testing.T) {
	dir := t.TempDir()
	idxPath := filepath.Join(dir, "watchlist.bleve")

	eng, err := NewBleveEngine(testSource(), idxPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.(*bleveEngine).Close() })

	res, err := eng.Search("matrix", 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = eng.Search("dream", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 27205, res[0].Item.ID)

	fi, err := os.Stat(idxPath)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	n, err := eng.(DebugStatser).DocCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestBleveEngine_SelectionChanges(t *testing.T) {
	src := testSource()
	eng, err := NewBleveEngine(src, ":memory:")
	require.NoError(t, err)
	be := eng.(*bleveEngine)
	defer be.Close()

	heat := catalog.Item{ID: 949, Title: "Heat", Overview: "A group of high-end professional thieves."}
	src.items = append(src.items, heat)
	be.OnSelectionChanged(heat, true)

	res, err := eng.Search("heat", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Heat", res[0].Item.Title)

	src.items = src.items[:len(src.items)-1]
	be.OnSelectionChanged(heat, false)

	res, err = eng.Search("heat", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestBleveEngine_ReopenDropsStaleDocs(t *testing.T) {
	idxPath := filepath.Join(t.TempDir(), "idx.bleve")

	eng, err := NewBleveEngine(testSource(), idxPath)
	require.NoError(t, err)
	require.NoError(t, eng.(*bleveEngine).Close())

	// The watchlist shrank while the index was closed.
	smaller := &sliceSource{items: testSource().items[:1]}
	eng, err = NewBleveEngine(smaller, idxPath)
	require.NoError(t, err)
	defer eng.(*bleveEngine).Close()

	n, err := eng.(DebugStatser).DocCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
