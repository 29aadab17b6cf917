package cmd

import (
	"fmt"

	"go-gamebanana-install/internal/config"

	"github.com/spf13/cobra"
)

var (
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file filled with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			path = config.UserConfigPath()
		}
		if err := config.WriteDefaultConfig(path, configInitForce); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Where to write the file (default $XDG_CONFIG_HOME/gamebanana-installer/config.toml)")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Replace an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
