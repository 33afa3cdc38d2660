package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/liftlog/internal/adapters/http"
	"github.com/aretw0/liftlog/pkg/lifecycle"
	"github.com/aretw0/liftlog/pkg/registry"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the key-value API over HTTP",
	Long: `Starts an HTTP server whose writes go through the shared queue. SIGTERM,
SIGINT and SIGHUP flush pending writes before the process is suspended or stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}
		logger := app.Logger

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source := lifecycle.NewSignalSource(lifecycle.DefaultSignalMapping())
		source.Start(ctx)
		defer source.Stop()

		cleanup := app.Registry.WatchLifecycle(source,
			lifecycle.WithFlushTimeout(app.Config.Queue.FlushTimeout))
		defer cleanup()

		opts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithGatherer(app.Metrics),
			httpAdapter.WithFlushTimeout(app.Config.Queue.FlushTimeout),
		}
		if lister, ok := app.Lister(); ok {
			opts = append(opts, httpAdapter.WithKeyLister(lister))
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           httpAdapter.NewHandler(app.Registry.Storage(registry.SharedQueue), opts...),
			ReadHeaderTimeout: 5 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting liftlog server", "addr", srv.Addr, "backend", app.Config.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("Shutting down")
		}

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "error", err)
			_ = srv.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
}
