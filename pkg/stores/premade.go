package stores

import (
	"context"

	"github.com/aretw0/liftlog/pkg/container"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// PremadePlansKey is the storage key of the premade plan catalogue.
const PremadePlansKey = "premade-plans"

// PremadePlans caches the read-mostly catalogue of premade programs.
type PremadePlans struct {
	c *container.Container[[]domain.WorkoutPlan]
}

func NewPremadePlans(s ports.Storage, opts ...container.Option) *PremadePlans {
	return &PremadePlans{
		c: container.New(PremadePlansKey, []domain.WorkoutPlan{}, s, opts...),
	}
}

func (p *PremadePlans) Container() *container.Container[[]domain.WorkoutPlan] {
	return p.c
}

func (p *PremadePlans) Rehydrate(ctx context.Context) error {
	return p.c.Rehydrate(ctx)
}

// Replace swaps the whole catalogue. Every plan is flagged as premade.
func (p *PremadePlans) Replace(plans []domain.WorkoutPlan) {
	next := clonePlans(plans)
	for i := range next {
		next[i].Premade = true
	}
	p.c.Set(func([]domain.WorkoutPlan) []domain.WorkoutPlan {
		return next
	})
}

func (p *PremadePlans) List() []domain.WorkoutPlan {
	return clonePlans(p.c.Get())
}
