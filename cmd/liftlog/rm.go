package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove persisted keys",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, key := range args {
			if err := app.Registry.Storage(key).RemoveItem(cmd.Context(), key); err != nil {
				return fmt.Errorf("remove %s: %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
