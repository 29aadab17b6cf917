package cmd

import (
	"fmt"

	"go-gamebanana-install/internal/helpers"
	"go-gamebanana-install/internal/models"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// verificationStats summarises a verify run.
type verificationStats struct {
	Checked  int
	OK       int
	Mismatch int
	Missing  int
	Skipped  int
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check patched game files and backups against the recorded hashes",
	Long: `For every target in the install history, hashes the target and its backup
with BLAKE3 and compares them with the hashes stored by the last successful
install or restore against it. A failed attempt after that does not hide it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(globalConfig)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.LastGoodInstalls()
		if err != nil {
			return err
		}

		var stats verificationStats
		for _, rec := range records {
			for _, p := range verifyRecord(rec, &stats) {
				fmt.Println(p)
			}
		}
		log.Infof("Verified %d file(s): %d ok, %d changed, %d missing, %d target(s) skipped",
			stats.Checked, stats.OK, stats.Mismatch, stats.Missing, stats.Skipped)
		if stats.Mismatch+stats.Missing > 0 {
			return fmt.Errorf("%d file(s) differ from the install history", stats.Mismatch+stats.Missing)
		}
		return nil
	},
}

// verifyRecord compares the files named by rec with their recorded hashes and
// returns one line per problem.
func verifyRecord(rec models.InstallRecord, stats *verificationStats) []string {
	if rec.Status == models.StatusFailed {
		stats.Skipped++
		return nil
	}

	var problems []string
	check := func(label, path, want string) {
		if path == "" || want == "" {
			return
		}
		stats.Checked++
		exists, err := helpers.FileExists(path)
		if err != nil || !exists {
			stats.Missing++
			problems = append(problems, fmt.Sprintf("MISSING  %s %s", label, path))
			return
		}
		got, err := helpers.HashFile(path)
		if err != nil {
			stats.Missing++
			problems = append(problems, fmt.Sprintf("UNREADABLE  %s %s: %v", label, path, err))
			return
		}
		if got != want {
			stats.Mismatch++
			problems = append(problems, fmt.Sprintf("CHANGED  %s %s (mod %d)", label, path, rec.ModID))
			return
		}
		stats.OK++
	}
	check("target", rec.TargetPath, rec.TargetBLAKE3)
	check("backup", rec.BackupPath, rec.BackupBLAKE3)
	return problems
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
