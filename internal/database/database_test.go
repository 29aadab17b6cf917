package database

import (
	"os"
	"path/filepath"
	"testing"

	"go-gamebanana-install/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "installs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDB_BasicOperations(t *testing.T) {
	db := openTestDB(t)

	key := []byte("install_abc")
	_, err := db.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put(key, []byte("value")))
	value, err := db.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	require.NoError(t, db.Put(key, []byte("replaced")))
	value, err = db.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("replaced"), value)
}

func TestDB_FoldByPrefix(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Put([]byte("install_1"), []byte("a")))
	require.NoError(t, db.Put([]byte("install_2"), []byte("b")))
	require.NoError(t, db.Put([]byte("target_/x"), []byte("1")))

	seen := map[string]string{}
	err := db.Fold([]byte("install_"), func(key, value []byte) error {
		seen[string(key)] = string(value)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"install_1": "a", "install_2": "b"}, seen)
}

func TestDB_InstallRecords(t *testing.T) {
	db := openTestDB(t)
	target := filepath.Join(t.TempDir(), "data.win")

	first := models.InstallRecord{ID: "first", ModID: 1, ModName: "One", TargetPath: target, Status: models.StatusInstalled, Stage: models.StagePatched, Timestamp: 100}
	second := models.InstallRecord{ID: "second", ModID: 2, ModName: "Two", TargetPath: target, Status: models.StatusFailed, Stage: models.StageExtracted, Timestamp: 200}
	other := models.InstallRecord{ID: "other", ModID: 3, TargetPath: filepath.Join(t.TempDir(), "other.win"), Timestamp: 150}

	require.NoError(t, db.PutInstallRecord(first))
	require.NoError(t, db.PutInstallRecord(second))
	require.NoError(t, db.PutInstallRecord(other))

	got, err := db.GetInstallRecord("first")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	last, err := db.LastInstallForTarget(target)
	require.NoError(t, err)
	assert.Equal(t, "second", last.ID)

	all, err := db.ListInstallRecords()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"second", "other", "first"}, []string{all[0].ID, all[1].ID, all[2].ID})

	_, err = db.LastInstallForTarget(filepath.Join(t.TempDir(), "never.win"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDB_LastGoodInstalls(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.win")
	b := filepath.Join(dir, "b.win")
	c := filepath.Join(dir, "c.win")

	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "b1", TargetPath: b, Status: models.StatusInstalled, Timestamp: 1}))
	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "a1", TargetPath: a, Status: models.StatusInstalled, Timestamp: 2}))
	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "a2", TargetPath: a, Status: models.StatusRestored, Timestamp: 3}))
	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "b2", TargetPath: b, Status: models.StatusFailed, Timestamp: 4}))
	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "c1", TargetPath: c, Status: models.StatusFailed, Timestamp: 5}))
	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "loose", Status: models.StatusInstalled, Timestamp: 6}))

	last, err := db.LastInstallForTarget(b)
	require.NoError(t, err)
	assert.Equal(t, "b2", last.ID, "the failed attempt is still the latest")

	good, err := db.LastGoodInstalls()
	require.NoError(t, err)
	require.Len(t, good, 2)
	assert.Equal(t, "a2", good[0].ID)
	assert.Equal(t, "b1", good[1].ID, "a later failure must not hide the last good install")
}

func TestDB_TargetKeysFollowSymlinks(t *testing.T) {
	db := openTestDB(t)
	dir := t.TempDir()
	real := filepath.Join(dir, "real.win")
	link := filepath.Join(dir, "data.win")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0644))
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "r1", TargetPath: real, Status: models.StatusInstalled}))
	rec, err := db.LastInstallForTarget(link)
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
}

func TestDB_PutInstallRecordRequiresID(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.PutInstallRecord(models.InstallRecord{}))
}

func TestDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installs.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.PutInstallRecord(models.InstallRecord{ID: "keep", ModID: 9, Timestamp: 1}))
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.GetInstallRecord("keep")
	require.NoError(t, err)
	assert.Equal(t, 9, rec.ModID)
}
