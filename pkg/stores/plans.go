package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/liftlog/pkg/container"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/google/uuid"
)

// PlansKey is the storage key of the user's workout plans.
const PlansKey = "workout-plans"

// Plans is the workout-plan store.
type Plans struct {
	c   *container.Container[[]domain.WorkoutPlan]
	now func() time.Time
}

// NewPlans creates the store. Call Rehydrate (or Set.Rehydrate) before trusting reads.
func NewPlans(s ports.Storage, opts ...container.Option) *Plans {
	return &Plans{
		c:   container.New(PlansKey, []domain.WorkoutPlan{}, s, opts...),
		now: time.Now,
	}
}

// Container exposes the underlying container (hydration gate, subscriptions).
func (p *Plans) Container() *container.Container[[]domain.WorkoutPlan] {
	return p.c
}

// Rehydrate loads the persisted plans.
func (p *Plans) Rehydrate(ctx context.Context) error {
	return p.c.Rehydrate(ctx)
}

// List returns a copy of all plans.
func (p *Plans) List() []domain.WorkoutPlan {
	return clonePlans(p.c.Get())
}

// Find looks a plan up by ID.
// authoritative is false while the store is not hydrated: a miss then means
// "not loaded yet", not "does not exist".
func (p *Plans) Find(id string) (plan domain.WorkoutPlan, found, authoritative bool) {
	authoritative = p.c.Hydrated()
	for _, pl := range p.c.Get() {
		if pl.ID == id {
			return pl, true, authoritative
		}
	}
	return domain.WorkoutPlan{}, false, authoritative
}

// Create adds a new plan with a generated ID.
func (p *Plans) Create(name string, days []domain.PlanDay) domain.WorkoutPlan {
	now := p.now().UTC()
	plan := domain.WorkoutPlan{
		ID:        uuid.NewString(),
		Name:      name,
		Days:      days,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Upsert(plan)
	return plan
}

// Upsert inserts the plan or replaces the one with the same ID.
func (p *Plans) Upsert(plan domain.WorkoutPlan) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = p.now().UTC()
	}
	plan.UpdatedAt = p.now().UTC()

	p.c.Set(func(current []domain.WorkoutPlan) []domain.WorkoutPlan {
		return upsertPlan(current, plan)
	})
}

// Delete removes a plan by ID and reports whether it existed.
func (p *Plans) Delete(id string) bool {
	removed := false
	p.c.Set(func(current []domain.WorkoutPlan) []domain.WorkoutPlan {
		next := make([]domain.WorkoutPlan, 0, len(current))
		for _, pl := range current {
			if pl.ID == id {
				removed = true
				continue
			}
			next = append(next, pl)
		}
		return next
	})
	return removed
}

// EnsurePlan returns the plan with the same ID (or, when plan.ID is empty, the
// same name), creating it only if it is confirmed absent. It waits for
// hydration first so a slow load never produces a duplicate.
func (p *Plans) EnsurePlan(ctx context.Context, plan domain.WorkoutPlan) (domain.WorkoutPlan, bool, error) {
	if err := p.c.WaitHydrated(ctx); err != nil {
		return domain.WorkoutPlan{}, false, fmt.Errorf("%w: %w", domain.ErrNotHydrated, err)
	}

	byName := plan.ID == ""
	if byName {
		plan.ID = uuid.NewString()
	}
	now := p.now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	// Lookup and insert run in one update so concurrent callers cannot both create.
	result := plan
	created := p.c.SetIf(func(current []domain.WorkoutPlan) ([]domain.WorkoutPlan, bool) {
		for _, pl := range current {
			if pl.ID == plan.ID || (byName && pl.Name == plan.Name) {
				result = pl
				return current, false
			}
		}
		result = plan
		return upsertPlan(current, plan), true
	})
	return result, created, nil
}

func upsertPlan(current []domain.WorkoutPlan, plan domain.WorkoutPlan) []domain.WorkoutPlan {
	next := clonePlans(current)
	for i := range next {
		if next[i].ID == plan.ID {
			next[i] = plan
			return next
		}
	}
	return append(next, plan)
}

func clonePlans(in []domain.WorkoutPlan) []domain.WorkoutPlan {
	out := make([]domain.WorkoutPlan, len(in))
	copy(out, in)
	return out
}
