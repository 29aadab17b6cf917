package locate

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"

	log "github.com/sirupsen/logrus"
)

// DefaultPatchExtension is the extension of the delta patch shipped in mod archives.
const DefaultPatchExtension = "xdelta"

var errFound = errors.New("found")

// FindFile walks root recursively and returns the first regular file whose
// extension is exactly ext (without the leading dot, case-sensitive). Entries
// that cannot be read are skipped. found is false when nothing matches.
func FindFile(root, ext string) (string, bool, error) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "", false, nil
	}
	want := "." + ext

	var match string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.WithError(err).Debugf("Skipping unreadable entry %s", path)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && filepath.Ext(d.Name()) == want {
			match = path
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return match, true, nil
	}
	if err != nil {
		return "", false, err
	}
	return "", false, nil
}

// FindPatch searches the staging directory of a mod for its patch artifact.
func FindPatch(store *paths.Store, info models.ModInfo, ext string) (string, bool, error) {
	if ext == "" {
		ext = DefaultPatchExtension
	}
	dir := store.ModDir(info.ID)
	path, found, err := FindFile(dir, ext)
	if err != nil {
		return "", false, err
	}
	if found {
		log.Debugf("Found patch %s for mod %d", path, info.ID)
	} else {
		log.Debugf("No .%s file under %s", ext, dir)
	}
	return path, found, nil
}
