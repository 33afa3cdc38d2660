package container

import (
	"log/slog"
)

// MigrateFunc upgrades a persisted state decoded as generic JSON
// (map[string]any, []any, ...) from fromVersion to the container's version.
type MigrateFunc func(persisted any, fromVersion int) (any, error)

// MergeFunc combines the persisted state with the in-memory state at hydration time.
type MergeFunc[T any] func(persisted, current T) T

type settings struct {
	logger         *slog.Logger
	version        int
	migrate        MigrateFunc
	onPersistError func(key string, err error)
}

// Option configures a Container.
type Option func(*settings)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithVersion sets the snapshot version written by this container.
func WithVersion(version int) Option {
	return func(s *settings) {
		s.version = version
	}
}

// WithMigrate installs the function applied to snapshots persisted with another version.
// Without it such snapshots are discarded at hydration.
func WithMigrate(fn MigrateFunc) Option {
	return func(s *settings) {
		s.migrate = fn
	}
}

// WithPersistErrorHandler is called with every failed snapshot write.
func WithPersistErrorHandler(fn func(key string, err error)) Option {
	return func(s *settings) {
		s.onPersistError = fn
	}
}
