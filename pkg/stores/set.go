package stores

import (
	"context"

	"github.com/aretw0/liftlog/pkg/container"
	"github.com/aretw0/liftlog/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// Set bundles every persisted store of the app.
type Set struct {
	Plans         *Plans
	Premade       *PremadePlans
	Progress      *Progress
	Notifications *NotificationPrefs
}

// NewSet builds all stores on the same storage.
func NewSet(s ports.Storage, opts ...container.Option) *Set {
	return NewSetWith(func(string) ports.Storage { return s }, opts...)
}

// NewSetWith builds all stores, asking storageFor for each store's storage by
// its key.
func NewSetWith(storageFor func(subsystem string) ports.Storage, opts ...container.Option) *Set {
	return &Set{
		Plans:         NewPlans(storageFor(PlansKey), opts...),
		Premade:       NewPremadePlans(storageFor(PremadePlansKey), opts...),
		Progress:      NewProgress(storageFor(ProgressKey), opts...),
		Notifications: NewNotificationPrefs(storageFor(NotificationPrefsKey), opts...),
	}
}

// Rehydrate loads every store concurrently and returns the first error.
// Every store's gate is open when it returns, even on error.
func (s *Set) Rehydrate(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.Plans.Rehydrate(ctx) })
	g.Go(func() error { return s.Premade.Rehydrate(ctx) })
	g.Go(func() error { return s.Progress.Rehydrate(ctx) })
	g.Go(func() error { return s.Notifications.Rehydrate(ctx) })
	return g.Wait()
}

// Hydrated reports whether every store finished its initial load.
func (s *Set) Hydrated() bool {
	return s.Plans.Container().Hydrated() &&
		s.Premade.Container().Hydrated() &&
		s.Progress.Container().Hydrated() &&
		s.Notifications.Container().Hydrated()
}
