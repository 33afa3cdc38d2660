package main

import (
	"fmt"

	"github.com/aretw0/liftlog/internal/cli"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List persisted keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		lister, ok := app.Lister()
		if !ok {
			return fmt.Errorf("backend %q cannot list keys", app.Config.Backend)
		}
		keys, err := lister.Keys(cmd.Context())
		if err != nil {
			return err
		}
		return cli.PrintKeys(cmd.Context(), cmd.OutOrStdout(), app.Store, keys)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
