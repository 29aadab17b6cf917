package locate

import (
	"os"
	"path/filepath"
	"testing"

	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		full := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0750))
		require.NoError(t, os.WriteFile(full, []byte(f), 0644))
	}
}

func TestFindFile_Nested(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "readme.txt", "mod/inner/deep/patch.xdelta")

	path, found, err := FindFile(root, "xdelta")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, filepath.Join(root, "mod", "inner", "deep", "patch.xdelta"), path)
}

func TestFindFile_LeadingDotAccepted(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.xdelta")

	path, found, err := FindFile(root, ".xdelta")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, filepath.Join(root, "a.xdelta"), path)
}

func TestFindFile_CaseSensitive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "patch.XDELTA", "patch.Xdelta")

	_, found, err := FindFile(root, "xdelta")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindFile_ExactExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "patch.xdelta.txt", "patch.xdelta3", "xdelta")

	_, found, err := FindFile(root, "xdelta")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindFile_IgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "folder.xdelta"), 0750))

	_, found, err := FindFile(root, "xdelta")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindFile_MissingRoot(t *testing.T) {
	_, found, err := FindFile(filepath.Join(t.TempDir(), "nope"), "xdelta")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindFile_EmptyExtension(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.xdelta")

	_, found, err := FindFile(root, "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFindPatch(t *testing.T) {
	store := paths.NewStore(t.TempDir())
	info := models.ModInfo{ID: 615376}
	writeTree(t, store.ModDir(info.ID), "cool_mod.7z", "cool_mod/data/cool.xdelta")

	path, found, err := FindPatch(store, info, "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, filepath.Join(store.ModDir(info.ID), "cool_mod", "data", "cool.xdelta"), path)

	_, found, err = FindPatch(store, models.ModInfo{ID: 1}, "xdelta")
	require.NoError(t, err)
	assert.False(t, found)
}
