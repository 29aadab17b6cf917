package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-gamebanana-install/internal/database"
	"go-gamebanana-install/internal/models"

	"github.com/spf13/cobra"
)

var (
	historyTargetFlag string
	historyLimitFlag  int
	historyJSONFlag   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded installs and restores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(globalConfig)
		if err != nil {
			return err
		}
		defer db.Close()

		var records []models.InstallRecord
		if historyTargetFlag != "" {
			rec, err := db.LastInstallForTarget(historyTargetFlag)
			if errors.Is(err, database.ErrNotFound) {
				fmt.Printf("No installs recorded for %s\n", historyTargetFlag)
				return nil
			}
			if err != nil {
				return err
			}
			records = append(records, rec)
		} else {
			records, err = db.ListInstallRecords()
			if err != nil {
				return err
			}
		}

		if historyLimitFlag > 0 && len(records) > historyLimitFlag {
			records = records[:historyLimitFlag]
		}

		if historyJSONFlag {
			out, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding history: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		if len(records) == 0 {
			fmt.Println("No installs recorded.")
			return nil
		}
		for _, r := range records {
			fmt.Println(formatRecord(r))
		}
		return nil
	},
}

func formatRecord(r models.InstallRecord) string {
	when := time.Unix(r.Timestamp, 0).Format(time.RFC3339)
	line := fmt.Sprintf("%s  %-9s  mod %d (%s) -> %s", when, r.Status, r.ModID, r.ModName, r.TargetPath)
	if r.Status == models.StatusFailed {
		line += fmt.Sprintf("  [stopped after %s: %s]", r.Stage, r.ErrorDetails)
	}
	return line
}

func init() {
	historyCmd.Flags().StringVarP(&historyTargetFlag, "target", "t", "", "Only show the latest install against this file")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 0, "Show at most this many records (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "Print records as JSON")
	rootCmd.AddCommand(historyCmd)
}
