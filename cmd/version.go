package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nuveplayer/nuve/internal/app"
	"github.com/nuveplayer/nuve/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), app.GetVersionInfo().FullString())
	},
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "nuve.toml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.CreateConfigFile(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, initCmd)
}
