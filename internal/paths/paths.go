package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go-gamebanana-install/internal/helpers"
)

// DefaultStagingRoot is where mods are staged relative to the working directory.
const DefaultStagingRoot = "data/download"

// BackupSuffix is appended to a target file's path to name its pristine copy.
const BackupSuffix = ".bak"

// extractSuffix names the extraction directory of an archive without an extension.
const extractSuffix = "_extracted"

// Store owns the on-disk staging layout:
//
//	<root>/<mod_id>/                  per-mod staging directory
//	<root>/<mod_id>/<archive>         downloaded archive
//	<root>/<mod_id>/<archive_stem>/   extraction directory
type Store struct {
	Root string
}

// NewStore returns a Store rooted at root, or at DefaultStagingRoot when root is empty.
func NewStore(root string) *Store {
	if root == "" {
		root = DefaultStagingRoot
	}
	return &Store{Root: filepath.Clean(root)}
}

// ModDir returns the staging directory for a mod.
func (s *Store) ModDir(modID int) string {
	return filepath.Join(s.Root, strconv.Itoa(modID))
}

// EnsureModDir creates the staging directory for a mod. Existing directories are fine.
func (s *Store) EnsureModDir(modID int) (string, error) {
	dir := s.ModDir(modID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating staging directory %s: %w", dir, err)
	}
	return dir, nil
}

// ArchivePath returns where the downloaded archive of a mod is written.
// The filename is reduced to its base name first.
func (s *Store) ArchivePath(modID int, filename string) (string, error) {
	base := helpers.SafeBaseName(filename)
	if base == "" {
		return "", fmt.Errorf("archive filename %q has no usable name", filename)
	}
	return filepath.Join(s.ModDir(modID), base), nil
}

// ExtractDir returns the extraction directory that sits beside a mod's archive.
func (s *Store) ExtractDir(modID int, filename string) (string, error) {
	base := helpers.SafeBaseName(filename)
	if base == "" {
		return "", fmt.Errorf("archive filename %q has no usable name", filename)
	}
	return filepath.Join(s.ModDir(modID), ArchiveStem(base)), nil
}

// ArchiveStem strips the last extension from an archive filename. A name that
// has no extension, or is only an extension, gets a suffix so that the
// extraction directory never collides with the archive itself.
func ArchiveStem(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	if stem == "" || stem == filename {
		return filename + extractSuffix
	}
	return stem
}

// BackupPath returns the sibling backup path of a target file.
func BackupPath(target string) string {
	return target + BackupSuffix
}

// ResolveTarget returns the absolute path of the file target refers to,
// following symlinks so that writes land on the linked file. A target that
// does not exist is returned in absolute form.
func ResolveTarget(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", target, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return abs, nil
		}
		return "", fmt.Errorf("resolving %s: %w", abs, err)
	}
	return resolved, nil
}
