package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

var debugShowConfigTOML bool

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debugging utilities (not for general use)",
}

var debugShowConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the fully loaded configuration",
	Long: `Loads configuration from defaults, the config file, GBMOD_* environment
variables and flags, and prints the merged result. Useful for checking
which value wins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugShowConfigTOML {
			return toml.NewEncoder(os.Stdout).Encode(globalConfig)
		}
		out, err := json.MarshalIndent(globalConfig, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

var debugSubfeedURLCmd = &cobra.Command{
	Use:   "print-api-url",
	Short: "Print the subfeed URL the list command would request",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(newAPIClient(globalConfig).SubfeedURL())
	},
}

func init() {
	debugShowConfigCmd.Flags().BoolVar(&debugShowConfigTOML, "toml", false, "Print as TOML instead of JSON")
	debugCmd.AddCommand(debugShowConfigCmd)
	debugCmd.AddCommand(debugSubfeedURLCmd)
	rootCmd.AddCommand(debugCmd)
}
