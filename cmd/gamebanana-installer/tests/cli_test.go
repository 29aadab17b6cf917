package main_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gamebanana-install/internal/models"
)

// newModServer serves one mod whose only file is an "archive" holding the patch bytes.
func newModServer(t *testing.T, modID int, patch string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc(fmt.Sprintf("/Mod/%d/ProfilePage", modID), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"_idRow": %d,
			"_sName": "Palette Overhaul",
			"_sDescription": "Recolours every stage",
			"_aSubmitter": {"_sName": "alice", "_sAvatarUrl": "https://images.example/alice.png"},
			"_aFiles": [{"_sFile": "palette.7z", "_sDownloadUrl": "%s/dl/palette.7z"}]
		}`, modID, srv.URL)
	})
	mux.HandleFunc("/dl/palette.7z", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(patch))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeFakeTools installs shell scripts standing in for 7z and xdelta. The
// extractor copies the archive to <dest>/sub/mod.xdelta and the patcher
// writes source followed by patch.
func writeFakeTools(t *testing.T) (sevenZip, xdelta string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	dir := t.TempDir()
	sevenZip = filepath.Join(dir, "7z")
	xdelta = filepath.Join(dir, "xdelta")
	require.NoError(t, os.WriteFile(sevenZip, []byte(`#!/bin/sh
dest="${2#-o}"
mkdir -p "$dest/sub" && cp "$4" "$dest/sub/mod.xdelta"
`), 0755))
	require.NoError(t, os.WriteFile(xdelta, []byte(`#!/bin/sh
cat "$4" "$5" > "$6"
`), 0755))
	return sevenZip, xdelta
}

func TestResolveAndSearch(t *testing.T) {
	srv := newModServer(t, 615376, "PATCH")
	dataDir := t.TempDir()
	base := []string{"--api-url", srv.URL, "--data-path", dataDir}

	stdout, _, err := runCommand(t, nil, append(base, "resolve", "https://gamebanana.com/mods/615376", "--json")...)
	require.NoError(t, err)

	var info models.ModInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, 615376, info.ID)
	assert.Equal(t, "Palette Overhaul", info.Name)
	assert.Equal(t, "alice", info.Submitter.Name)
	assert.Equal(t, "Recolours every stage", info.DescriptionOrEmpty())

	stdout, _, err = runCommand(t, nil, append(base, "search", "palette")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "615376")
	assert.Contains(t, stdout, "Palette Overhaul")
}

func TestResolve_UnknownMod(t *testing.T) {
	srv := newModServer(t, 615376, "PATCH")

	_, stderr, err := runCommand(t, nil, "--api-url", srv.URL, "--data-path", t.TempDir(), "resolve", "999")
	require.Error(t, err)
	assert.Contains(t, stderr, "could not be resolved")
}

func TestInstallHistoryRestore(t *testing.T) {
	sevenZip, xdelta := writeFakeTools(t)
	srv := newModServer(t, 615376, "PATCH")
	dataDir := t.TempDir()
	base := []string{"--api-url", srv.URL, "--data-path", dataDir, "--7z", sevenZip, "--xdelta", xdelta}

	target := filepath.Join(t.TempDir(), "game.iso")
	require.NoError(t, os.WriteFile(target, []byte("orig"), 0644))

	for i := 0; i < 2; i++ {
		stdout, _, err := runCommand(t, nil, append(base, "install", "615376", "--target", target, "--no-progress")...)
		require.NoError(t, err, "install %d", i+1)
		assert.Contains(t, stdout, "Installed")

		got, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "origPATCH", string(got), "reinstall must patch from the backup")
	}
	bak, err := os.ReadFile(target + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "orig", string(bak))

	stdout, _, err := runCommand(t, nil, append(base, "history", "--json")...)
	require.NoError(t, err)
	var records []models.InstallRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, models.StatusInstalled, r.Status)
		assert.Equal(t, models.StagePatched, r.Stage)
		assert.Equal(t, 615376, r.ModID)
	}

	_, _, err = runCommand(t, nil, append(base, "restore", "--target", target)...)
	require.NoError(t, err)
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "orig", string(got))

	stdout, _, err = runCommand(t, nil, append(base, "history", "--target", target, "--json")...)
	require.NoError(t, err)
	records = nil
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusRestored, records[0].Status)
	assert.Equal(t, "Palette Overhaul", records[0].ModName)

	_, _, err = runCommand(t, nil, append(base, "verify")...)
	require.NoError(t, err)

	_, _, err = runCommand(t, nil, append(base, "--patch-ext", "vcdiff", "install", "615376", "--target", target, "--no-progress")...)
	require.Error(t, err, "no .vcdiff file in the archive")

	require.NoError(t, os.WriteFile(target, []byte("edited by hand"), 0644))
	stdout, _, err = runCommand(t, nil, append(base, "verify")...)
	require.Error(t, err)
	assert.Contains(t, stdout, "CHANGED")
}

func TestInstall_PatchNotFoundKeepsTarget(t *testing.T) {
	sevenZip, xdelta := writeFakeTools(t)
	srv := newModServer(t, 615376, "PATCH")
	dataDir := t.TempDir()

	target := filepath.Join(t.TempDir(), "game.iso")
	require.NoError(t, os.WriteFile(target, []byte("orig"), 0644))

	_, stderr, err := runCommand(t, nil, "--api-url", srv.URL, "--data-path", dataDir,
		"--7z", sevenZip, "--xdelta", xdelta, "--patch-ext", "vcdiff",
		"install", "615376", "--target", target, "--no-progress")
	require.Error(t, err)
	assert.Contains(t, stderr, "patch file not found")

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "orig", string(got))
	_, err = os.Stat(target + ".bak")
	assert.True(t, os.IsNotExist(err), "no backup before a patch is located")
}

func TestRestore_WithoutBackup(t *testing.T) {
	target := filepath.Join(t.TempDir(), "game.iso")
	require.NoError(t, os.WriteFile(target, []byte("orig"), 0644))

	_, _, err := runCommand(t, nil, "--data-path", t.TempDir(), "restore", "--target", target)
	assert.Error(t, err)
}

func TestTorrent_StagedMod(t *testing.T) {
	sevenZip, xdelta := writeFakeTools(t)
	srv := newModServer(t, 615376, "PATCH")
	dataDir := t.TempDir()
	base := []string{"--api-url", srv.URL, "--data-path", dataDir, "--7z", sevenZip, "--xdelta", xdelta}

	target := filepath.Join(t.TempDir(), "game.iso")
	require.NoError(t, os.WriteFile(target, []byte("orig"), 0644))
	_, _, err := runCommand(t, nil, append(base, "install", "615376", "--target", target, "--no-progress", "--no-history")...)
	require.NoError(t, err)

	_, _, err = runCommand(t, nil, append(base, "torrent")...)
	assert.Error(t, err, "a tracker is required")

	_, _, err = runCommand(t, nil, append(base, "torrent", "--announce", "udp://tracker.example:1337/announce", "--magnet-links")...)
	require.NoError(t, err)

	torrentDir := filepath.Join(dataDir, "torrents")
	assert.FileExists(t, filepath.Join(torrentDir, "615376.torrent"))
	magnet, err := os.ReadFile(filepath.Join(torrentDir, "615376-magnet.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(magnet), "magnet:?xt=urn:btih:")
}
