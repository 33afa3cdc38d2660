package stores

import (
	"context"

	"github.com/aretw0/liftlog/pkg/container"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// NotificationPrefsKey is the storage key of the reminder settings.
const NotificationPrefsKey = "notification-prefs"

// NotificationPrefs stores the user's reminder settings.
type NotificationPrefs struct {
	c *container.Container[domain.NotificationPreferences]
}

func NewNotificationPrefs(s ports.Storage, opts ...container.Option) *NotificationPrefs {
	return &NotificationPrefs{
		c: container.New(NotificationPrefsKey, domain.DefaultNotificationPreferences(), s, opts...),
	}
}

func (n *NotificationPrefs) Container() *container.Container[domain.NotificationPreferences] {
	return n.c
}

func (n *NotificationPrefs) Rehydrate(ctx context.Context) error {
	return n.c.Rehydrate(ctx)
}

func (n *NotificationPrefs) Get() domain.NotificationPreferences {
	return n.c.Get()
}

// Update applies fn to a copy of the current settings and persists the result.
func (n *NotificationPrefs) Update(fn func(*domain.NotificationPreferences)) domain.NotificationPreferences {
	var updated domain.NotificationPreferences
	n.c.Set(func(current domain.NotificationPreferences) domain.NotificationPreferences {
		fn(&current)
		updated = current
		return current
	})
	return updated
}
