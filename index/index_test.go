package index

import (
	"path/filepath"
	"testing"

	"go-gamebanana-install/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testMods() []models.ModInfo {
	return []models.ModInfo{
		{ID: 615376, Name: "Hard Mode Overhaul", Submitter: models.Submitter{Name: "alice"}, Description: strPtr("Harder enemies everywhere")},
		{ID: 615377, Name: "Pink Palette", Submitter: models.Submitter{Name: "bob"}, Text: strPtr("<p>Recolours every sprite</p>")},
	}
}

func TestSearchMods_MemOnly(t *testing.T) {
	idx, err := bleve.NewMemOnly(NewModMapping())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, IndexMods(idx, testMods()))

	results, err := SearchMods(idx, "overhaul", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 615376, results[0].ID)
	assert.Equal(t, "Hard Mode Overhaul", results[0].Name)
	assert.Equal(t, "alice", results[0].Submitter)

	results, err = SearchMods(idx, "submitter:bob", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 615377, results[0].ID)

	results, err = SearchMods(idx, "nothingmatches", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexMod_Replaces(t *testing.T) {
	idx, err := bleve.NewMemOnly(NewModMapping())
	require.NoError(t, err)
	defer idx.Close()

	mod := testMods()[0]
	require.NoError(t, IndexMod(idx, mod))
	mod.Name = "Renamed Mod"
	require.NoError(t, IndexMod(idx, mod))

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	results, err := SearchMods(idx, "renamed", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Renamed Mod", results[0].Name)
}

func TestOpenOrCreateIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mods.bleve")

	idx, err := OpenOrCreateIndex(path)
	require.NoError(t, err)
	require.NoError(t, IndexMod(idx, testMods()[1]))
	require.NoError(t, idx.Close())

	reopened, err := OpenOrCreateIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := SearchMods(reopened, "palette", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 615377, results[0].ID)
}
