package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	listPageFlag int
	listSortFlag string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the newest mods for the configured game",
	Long: `Fetches one page of the game's submission feed, resolves every entry and
prints it. Listed mods are added to the local search index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig
		client := newAPIClient(cfg)

		log.Debugf("Listing from %s", client.SubfeedURL())
		mods, err := client.ListAvailableMods()
		if err != nil {
			return err
		}
		for _, m := range mods {
			printMod(m)
		}
		indexMods(cfg, mods...)
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listPageFlag, "page", 1, "Feed page to list")
	listCmd.Flags().StringVar(&listSortFlag, "sort", "new", "Feed sort order")
	rootCmd.AddCommand(listCmd)
}
