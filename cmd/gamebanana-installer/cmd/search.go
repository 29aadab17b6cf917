package cmd

import (
	"errors"
	"fmt"
	"strings"

	index "go-gamebanana-install/index"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var searchLimitFlag int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search mods seen by resolve, list and install",
	Long: `Queries the local search index. Accepts bleve query string syntax, e.g.
"overhaul", "submitter:alice" or "+name:palette -text:beta".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx := openIndex(globalConfig)
		if idx == nil {
			return errors.New("search index is not available")
		}
		defer func() {
			if err := idx.Close(); err != nil {
				log.WithError(err).Warn("Error closing search index")
			}
		}()

		results, err := index.SearchMods(idx, strings.Join(args, " "), searchLimitFlag)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matching mods.")
			return nil
		}
		for _, r := range results {
			fmt.Printf("%d\t%s\tby %s\t(score %.2f)\n", r.ID, r.Name, r.Submitter, r.Score)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimitFlag, "limit", "n", 10, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
