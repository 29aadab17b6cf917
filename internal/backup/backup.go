package backup

import (
	"fmt"

	"go-gamebanana-install/internal/helpers"
	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"

	log "github.com/sirupsen/logrus"
)

// Ensure makes sure <target>.bak holds a pristine copy of target. The copy is
// taken only when no backup exists yet; an existing backup is never touched.
// created reports whether this call wrote the backup.
// A symlinked target is backed up beside the file it points at.
func Ensure(target string) (backupPath string, created bool, err error) {
	target, err = paths.ResolveTarget(target)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	backupPath = paths.BackupPath(target)

	exists, err := helpers.FileExists(backupPath)
	if err != nil {
		return "", false, fmt.Errorf("%w: checking backup %s: %v", models.ErrIO, backupPath, err)
	}
	if exists {
		log.Debugf("Backup %s already exists, keeping it", backupPath)
		return backupPath, false, nil
	}

	if err := helpers.CopyFileAtomic(target, backupPath); err != nil {
		log.WithError(err).Errorf("Could not back up %s", target)
		return "", false, fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	log.Infof("Backed up %s to %s", target, backupPath)
	return backupPath, true, nil
}

// Restore copies <target>.bak back over target. The backup itself is kept.
// A symlinked target is restored through the link, which stays in place.
func Restore(target string) (string, error) {
	target, err := paths.ResolveTarget(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	backupPath := paths.BackupPath(target)

	exists, err := helpers.FileExists(backupPath)
	if err != nil {
		return "", fmt.Errorf("%w: checking backup %s: %v", models.ErrIO, backupPath, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: no backup at %s", models.ErrPrecondition, backupPath)
	}

	if err := helpers.CopyFileAtomic(backupPath, target); err != nil {
		log.WithError(err).Errorf("Could not restore %s from %s", target, backupPath)
		return "", fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	log.Infof("Restored %s from %s", target, backupPath)
	return backupPath, nil
}
