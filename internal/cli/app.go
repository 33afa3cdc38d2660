package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/liftlog/internal/config"
	"github.com/aretw0/liftlog/pkg/adapters/file"
	"github.com/aretw0/liftlog/pkg/adapters/memory"
	"github.com/aretw0/liftlog/pkg/adapters/redis"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
	"github.com/aretw0/liftlog/pkg/registry"
	"github.com/aretw0/liftlog/pkg/storage/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is the wired persistence stack used by every command.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *prometheus.Registry
	Store    ports.KVStore
	Registry *registry.Registry

	closer io.Closer
}

// NewApp builds the backend, decorates it and composes the registry.
// The registry's shared queue is the process-wide one.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	backend, closer, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mws := []middleware.Middleware{middleware.NewInstrumentedMiddleware(middleware.NewMetrics(reg))}
	key, err := cfg.Key()
	if err != nil {
		return nil, err
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	store := middleware.Chain(backend, mws...)

	metrics := queue.NewMetrics(reg)
	queueOpts := []queue.Option{queue.WithLogger(logger), queue.WithMetrics(metrics)}
	if cfg.Queue.OperationTimeout > 0 {
		queueOpts = append(queueOpts, queue.WithOperationTimeout(cfg.Queue.OperationTimeout))
	}
	if _, ok := queue.InitGlobal(queueOpts...); !ok {
		logger.Debug("Process-wide queue already initialized; keeping its options")
	}

	opts := []registry.Option{
		registry.WithLogger(logger),
		registry.WithMetrics(metrics),
		registry.WithOperationTimeout(cfg.Queue.OperationTimeout),
	}
	if cfg.Queue.Isolated {
		opts = append(opts, registry.WithIsolatedQueues())
	}

	logger.Debug("Persistence stack ready", "backend", cfg.Backend, "encrypted", key != nil, "isolated_queues", cfg.Queue.Isolated)
	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  reg,
		Store:    store,
		Registry: registry.Default(store, opts...),
		closer:   closer,
	}, nil
}

func openBackend(cfg config.Config) (ports.KVStore, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil
	case config.BackendFile:
		return file.New(cfg.File.Dir), nil, nil
	case config.BackendRedis:
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Lister returns the store's key lister, if the backend has one.
func (a *App) Lister() (ports.KeyLister, bool) {
	l, ok := a.Store.(ports.KeyLister)
	return l, ok
}

// Close flushes pending writes, bounded by the configured flush timeout,
// then releases the backend.
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Queue.FlushTimeout)
	defer cancel()

	var errs []error
	if err := a.Registry.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pending writes not flushed: %w", err))
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
