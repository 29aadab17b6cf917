package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-gamebanana-install/internal/backup"
	"go-gamebanana-install/internal/database"
	"go-gamebanana-install/internal/helpers"
	"go-gamebanana-install/internal/locate"
	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"
	"go-gamebanana-install/internal/tools"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Fetcher places a mod's archive in the staging store. *downloader.Downloader satisfies it.
type Fetcher interface {
	FetchArchive(info models.ModInfo) (archivePath string, filename string, err error)
}

// Installer runs the install pipeline for one mod against one target file:
//
//	Resolved -> Downloaded -> Extracted -> PatchLocated -> BackedUp -> Patched
//
// Stages run synchronously. A failure stops the pipeline without undoing the
// stages already completed. Callers must serialize installs per target file
// and per mod id; the staging tree and backups are not locked.
type Installer struct {
	Fetcher        Fetcher
	Extractor      tools.Extractor
	Patcher        tools.Patcher
	Store          *paths.Store
	DB             *database.DB
	PatchExtension string
}

// New creates an Installer. db may be nil to skip recording history.
func New(fetcher Fetcher, extractor tools.Extractor, patcher tools.Patcher, store *paths.Store, db *database.DB, patchExt string) *Installer {
	if store == nil {
		store = paths.NewStore("")
	}
	if patchExt == "" {
		patchExt = locate.DefaultPatchExtension
	}
	return &Installer{
		Fetcher:        fetcher,
		Extractor:      extractor,
		Patcher:        patcher,
		Store:          store,
		DB:             db,
		PatchExtension: patchExt,
	}
}

// ExtractArchive unpacks archivePath into the extraction directory beside it
// and returns that directory. An existing directory is reused.
func (in *Installer) ExtractArchive(info models.ModInfo, archivePath, filename string) (string, error) {
	destDir, err := in.Store.ExtractDir(info.ID, filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return "", fmt.Errorf("%w: creating extraction directory %s: %v", models.ErrIO, destDir, err)
	}

	absArchive, err := canonical(archivePath)
	if err != nil {
		return "", err
	}
	absDest, err := canonical(destDir)
	if err != nil {
		return "", err
	}

	log.Infof("Extracting %s into %s", absArchive, absDest)
	if err := in.Extractor.Extract(absArchive, absDest); err != nil {
		return "", err
	}
	return absDest, nil
}

var chmod = os.Chmod

// ApplyPatch regenerates target from backupPath and patchPath. The patch tool
// writes to a temporary sibling that replaces target only after the tool
// succeeds, so a failed patch leaves target as it was. If the final rename
// fails the target is restored from the backup. A symlinked target is patched
// through the link.
func (in *Installer) ApplyPatch(backupPath, patchPath, target string) error {
	target, err := paths.ResolveTarget(target)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIO, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.patching")
	if err != nil {
		return fmt.Errorf("%w: creating temporary output beside %s: %v", models.ErrIO, target, err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	log.Infof("Applying %s to %s", filepath.Base(patchPath), target)
	if err := in.Patcher.ApplyPatch(backupPath, patchPath, tmpName); err != nil {
		log.WithError(err).Errorf("Patch failed, %s left unchanged", target)
		return err
	}

	if st, statErr := os.Stat(target); statErr == nil {
		if err := chmod(tmpName, st.Mode().Perm()); err != nil {
			log.WithError(err).Warnf("Could not copy the mode of %s to the patched output", target)
		}
	}
	if err := os.Rename(tmpName, target); err != nil {
		log.WithError(err).Errorf("Could not move patched output over %s, restoring backup", target)
		renameErr := fmt.Errorf("%w: replacing %s: %v", models.ErrIO, target, err)
		if _, restoreErr := backup.Restore(target); restoreErr != nil {
			return errors.Join(renameErr, restoreErr)
		}
		return renameErr
	}
	committed = true
	return nil
}

// InstallMod downloads, extracts and applies a mod's patch to target, backing
// target up first. The returned record describes how far the install got and
// is stored in the database when one is configured.
func (in *Installer) InstallMod(info models.ModInfo, target string) (models.InstallRecord, error) {
	rec := models.InstallRecord{
		ID:         uuid.NewString(),
		ModID:      info.ID,
		ModName:    info.Name,
		TargetPath: target,
		Stage:      models.StageResolved,
		Timestamp:  time.Now().Unix(),
	}
	if resolved, err := paths.ResolveTarget(target); err == nil {
		rec.TargetPath = resolved
	}
	logger := log.WithField("install", rec.ID).WithField("mod", info.ID)
	logger.Infof("Installing %q onto %s", info.Name, rec.TargetPath)

	err := in.run(&rec, info, logger)
	if err != nil {
		rec.Status = models.StatusFailed
		rec.ErrorDetails = err.Error()
		logger.WithError(err).Errorf("Install stopped after stage %s", rec.Stage)
	} else {
		rec.Status = models.StatusInstalled
		logger.Infof("Installed %q onto %s", info.Name, rec.TargetPath)
	}

	if in.DB != nil {
		if dbErr := in.DB.PutInstallRecord(rec); dbErr != nil {
			logger.WithError(dbErr).Warn("Could not record install in database")
		}
	}
	return rec, err
}

func (in *Installer) run(rec *models.InstallRecord, info models.ModInfo, logger *log.Entry) error {
	fail := func(next models.Stage, err error) error {
		return &models.StageError{Err: err, Stage: next}
	}

	archivePath, filename, err := in.Fetcher.FetchArchive(info)
	if err != nil {
		return fail(models.StageDownloaded, err)
	}
	rec.ArchivePath = archivePath
	rec.Stage = models.StageDownloaded
	rec.ArchiveBLAKE3 = hashOrEmpty(archivePath, logger)

	extractDir, err := in.ExtractArchive(info, archivePath, filename)
	if err != nil {
		return fail(models.StageExtracted, err)
	}
	rec.ExtractDir = extractDir
	rec.Stage = models.StageExtracted

	patchPath, found, err := locate.FindPatch(in.Store, info, in.PatchExtension)
	if err != nil {
		return fail(models.StagePatchLocated, fmt.Errorf("%w: searching %s: %v", models.ErrIO, in.Store.ModDir(info.ID), err))
	}
	if !found {
		return fail(models.StagePatchLocated, fmt.Errorf("%w: no .%s file in %s", models.ErrNotFound, in.PatchExtension, in.Store.ModDir(info.ID)))
	}
	rec.PatchPath = patchPath
	rec.Stage = models.StagePatchLocated

	backupPath, created, err := backup.Ensure(rec.TargetPath)
	if err != nil {
		return fail(models.StageBackedUp, err)
	}
	rec.BackupPath = backupPath
	rec.BackupCreated = created
	rec.Stage = models.StageBackedUp
	rec.BackupBLAKE3 = hashOrEmpty(backupPath, logger)

	if err := in.ApplyPatch(backupPath, patchPath, rec.TargetPath); err != nil {
		return fail(models.StagePatched, err)
	}
	rec.Stage = models.StagePatched
	rec.TargetBLAKE3 = hashOrEmpty(rec.TargetPath, logger)
	return nil
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", models.ErrIO, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", models.ErrIO, abs, err)
	}
	return resolved, nil
}

func hashOrEmpty(path string, logger *log.Entry) string {
	sum, err := helpers.HashFile(path)
	if err != nil {
		logger.WithError(err).Warnf("Could not hash %s", path)
		return ""
	}
	return sum
}
