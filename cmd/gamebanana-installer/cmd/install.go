package cmd

import (
	"errors"
	"fmt"
	"os"

	"go-gamebanana-install/internal/database"
	"go-gamebanana-install/internal/helpers"

	"github.com/gosuri/uilive"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	installTargetFlag   string
	installNoProgress   bool
	installSkipDatabase bool
)

var installCmd = &cobra.Command{
	Use:   "install <mod url or id>",
	Short: "Download a mod and patch it into a game file",
	Long: `Resolves the mod, downloads its first published archive into the staging
directory, extracts it with 7-Zip, finds the .xdelta patch inside and applies it
to --target. The first install against a target copies it to <target>.bak; every
later install patches from that backup, so reinstalling is always safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if installTargetFlag == "" {
			return errors.New("--target is required")
		}
		cfg := globalConfig
		client := newAPIClient(cfg)

		info, err := client.ResolveMod(args[0])
		if err != nil {
			return err
		}
		log.Infof("Resolved %q (%d) by %s", info.Name, info.ID, info.Submitter.Name)

		var db *database.DB
		if !installSkipDatabase {
			db, err = openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		var writer *uilive.Writer
		var progress func(written, total uint64)
		if !installNoProgress {
			writer = uilive.New()
			writer.Start()
			progress = func(written, total uint64) {
				if total > 0 {
					fmt.Fprintf(writer, "Downloading %s: %s / %s (%.0f%%)\n", info.Name,
						helpers.BytesToSize(written), helpers.BytesToSize(total), float64(written)*100/float64(total))
				} else {
					fmt.Fprintf(writer, "Downloading %s: %s\n", info.Name, helpers.BytesToSize(written))
				}
			}
		}

		inst := newInstaller(cfg, client, db, progress)
		rec, err := inst.InstallMod(info, installTargetFlag)
		if writer != nil {
			writer.Stop()
		}
		indexMods(cfg, info)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Install of %q stopped after stage %s\n", info.Name, rec.Stage)
			return err
		}

		fmt.Printf("Installed %q onto %s\n", info.Name, rec.TargetPath)
		if rec.BackupCreated {
			fmt.Printf("Original saved to %s\n", rec.BackupPath)
		} else {
			fmt.Printf("Patched from existing backup %s\n", rec.BackupPath)
		}
		fmt.Printf("Install id %s, target blake3 %s\n", rec.ID, rec.TargetBLAKE3)
		return nil
	},
}

func init() {
	installCmd.Flags().StringVarP(&installTargetFlag, "target", "t", "", "Game file to patch (required)")
	installCmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "Disable the live download progress display")
	installCmd.Flags().BoolVar(&installSkipDatabase, "no-history", false, "Do not record this install in the history database")
	_ = installCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(installCmd)
}
