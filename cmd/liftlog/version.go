package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/liftlog"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of liftlog",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "liftlog version %s\n", strings.TrimSpace(liftlog.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
