package cmd

import (
	"errors"
	"fmt"
	"time"

	"go-gamebanana-install/internal/backup"
	"go-gamebanana-install/internal/database"
	"go-gamebanana-install/internal/helpers"
	"go-gamebanana-install/internal/models"
	"go-gamebanana-install/internal/paths"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restoreTargetFlag string

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Put the original game file back from its backup",
	Long: `Copies <target>.bak back over --target, undoing every mod installed onto it.
The backup itself is kept so later installs still patch from the original.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreTargetFlag == "" {
			return errors.New("--target is required")
		}
		target, err := paths.ResolveTarget(restoreTargetFlag)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", restoreTargetFlag, err)
		}

		backupPath, err := backup.Restore(target)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %s from %s\n", target, backupPath)

		db, err := openDatabase(globalConfig)
		if err != nil {
			log.WithError(err).Warn("Restore not recorded in history")
			return nil
		}
		defer db.Close()

		rec := models.InstallRecord{
			ID:         uuid.NewString(),
			TargetPath: target,
			BackupPath: backupPath,
			Status:     models.StatusRestored,
			Timestamp:  time.Now().Unix(),
		}
		if last, err := db.LastInstallForTarget(target); err == nil {
			rec.ModID = last.ModID
			rec.ModName = last.ModName
		} else if !errors.Is(err, database.ErrNotFound) {
			log.WithError(err).Debug("Could not look up previous install")
		}
		if sum, err := helpers.HashFile(target); err == nil {
			rec.TargetBLAKE3 = sum
		}
		if err := db.PutInstallRecord(rec); err != nil {
			log.WithError(err).Warn("Restore not recorded in history")
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreTargetFlag, "target", "t", "", "Game file to restore (required)")
	_ = restoreCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(restoreCmd)
}
