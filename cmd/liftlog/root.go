package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/liftlog/internal/cli"
	"github.com/aretw0/liftlog/internal/config"
	"github.com/aretw0/liftlog/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       *viper.Viper
	app     *cli.App
)

var rootCmd = &cobra.Command{
	Use:   "liftlog",
	Short: "Inspect and exercise the liftlog persistence core",
	Long: `liftlog drives the ordered write queue, the persisted stores and their
backends (memory, file or redis) from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		logger := logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.Log.Level), logging.Format(cfg.Log.Format))

		app, err = cli.NewApp(cfg, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close(context.Background())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if app != nil {
			if closeErr := app.Close(context.Background()); closeErr != nil {
				fmt.Fprintln(os.Stderr, closeErr)
			}
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		v = config.New(cfgFile)
		bind := func(key, flag string) {
			_ = v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
		}
		bind("backend", "backend")
		bind("file.dir", "dir")
		bind("redis.addr", "redis-addr")
		bind("log.level", "log-level")
		bind("log.format", "log-format")
	})

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./liftlog.yaml or ./.liftlog/liftlog.yaml)")
	rootCmd.PersistentFlags().String("backend", config.BackendFile, "storage backend: memory, file or redis")
	rootCmd.PersistentFlags().String("dir", "", "data directory of the file backend")
	rootCmd.PersistentFlags().String("redis-addr", "", "redis address")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}
