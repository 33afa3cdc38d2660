package stores

import (
	"context"
	"maps"
	"time"

	"github.com/aretw0/liftlog/pkg/container"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

// ProgressKey is the storage key of per-plan progress.
const ProgressKey = "plan-progress"

// Progress is the plan-progress store, keyed by plan ID.
type Progress struct {
	c   *container.Container[map[string]domain.PlanProgress]
	now func() time.Time
}

func NewProgress(s ports.Storage, opts ...container.Option) *Progress {
	return &Progress{
		c:   container.New(ProgressKey, map[string]domain.PlanProgress{}, s, opts...),
		now: time.Now,
	}
}

func (p *Progress) Container() *container.Container[map[string]domain.PlanProgress] {
	return p.c
}

func (p *Progress) Rehydrate(ctx context.Context) error {
	return p.c.Rehydrate(ctx)
}

// Get returns the progress of a plan.
func (p *Progress) Get(planID string) (domain.PlanProgress, bool) {
	pr, ok := p.c.Get()[planID]
	if !ok {
		return domain.PlanProgress{}, false
	}
	pr.CompletedDays = maps.Clone(pr.CompletedDays)
	return pr, true
}

// CompleteDay marks day as done and advances the plan to the following day.
func (p *Progress) CompleteDay(planID string, day int) domain.PlanProgress {
	var updated domain.PlanProgress
	at := p.now().UTC().Format(time.RFC3339)

	p.c.Set(func(current map[string]domain.PlanProgress) map[string]domain.PlanProgress {
		next := maps.Clone(current)
		if next == nil {
			next = map[string]domain.PlanProgress{}
		}

		pr := next[planID]
		pr.PlanID = planID
		pr.CompletedDays = maps.Clone(pr.CompletedDays)
		if pr.CompletedDays == nil {
			pr.CompletedDays = map[int]string{}
		}
		pr.CompletedDays[day] = at
		if day+1 > pr.CurrentDay {
			pr.CurrentDay = day + 1
		}

		next[planID] = pr
		updated = pr
		return next
	})
	return updated
}

// Reset drops all progress for a plan.
func (p *Progress) Reset(planID string) {
	p.c.Set(func(current map[string]domain.PlanProgress) map[string]domain.PlanProgress {
		next := maps.Clone(current)
		delete(next, planID)
		return next
	})
}
