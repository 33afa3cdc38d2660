package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/aretw0/liftlog/internal/cli"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Issue out-of-order-latency writes and show they land in order",
	Long: `demo submits five read-modify-write operations (set-0..set-4), each delayed
by a random 0-10ms, through the shared queue and prints the final snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := app.Registry.Queue(cli.DemoKey)
		ids, err := cli.RunDemo(cmd.Context(), q, app.Store, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", cli.DemoKey, ids)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
