package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var resolveJSONFlag bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <mod url or id>",
	Short: "Show the metadata of a mod",
	Long: `Resolves a GameBanana page address such as https://gamebanana.com/mods/615376,
or a bare mod id, and prints the mod's name, submitter and description.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := globalConfig
		client := newAPIClient(cfg)

		info, err := client.ResolveMod(args[0])
		if err != nil {
			return err
		}
		indexMods(cfg, info)

		if resolveJSONFlag {
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding mod info: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}
		printMod(info)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSONFlag, "json", false, "Print the raw mod record as JSON")
	rootCmd.AddCommand(resolveCmd)
}
