package main

import (
	"fmt"

	"github.com/aretw0/liftlog/internal/cli"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a persisted value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		value, ok, err := app.Registry.Storage(args[0]).GetItem(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", args[0], domain.ErrKeyNotFound)
		}
		return cli.PrintValue(cmd.OutOrStdout(), value, format)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringP("format", "f", cli.FormatJSON, "output format: json, yaml or raw")
}
