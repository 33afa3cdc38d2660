package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
)

// DemoKey holds the snapshot written by RunDemo.
const DemoKey = "demo-snapshot"

// DemoWrites is the number of writes RunDemo issues.
const DemoWrites = 5

// RunDemo submits DemoWrites read-modify-write operations, each sleeping a
// random 0-10ms before appending its index to the snapshot under DemoKey.
// Because the queue serializes them, the final snapshot always lists
// 0..DemoWrites-1 in submission order.
func RunDemo(ctx context.Context, q *queue.Queue, store ports.KVStore, rnd *rand.Rand) ([]int, error) {
	if err := store.Remove(ctx, DemoKey); err != nil {
		return nil, fmt.Errorf("failed to reset demo snapshot: %w", err)
	}

	futures := make([]*queue.Future[[]int], 0, DemoWrites)
	for i := range DemoWrites {
		delay := time.Duration(rnd.IntN(11)) * time.Millisecond
		futures = append(futures, queue.Submit(q, func(ctx context.Context) ([]int, error) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return appendID(ctx, store, i)
		}))
	}

	var snapshot []int
	for i, f := range futures {
		ids, err := f.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("set-%d: %w", i, err)
		}
		snapshot = ids
	}
	return snapshot, nil
}

func appendID(ctx context.Context, store ports.KVStore, id int) ([]int, error) {
	var ids []int
	raw, err := store.Get(ctx, DemoKey)
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("corrupt demo snapshot: %w", err)
		}
	}

	ids = append(ids, id)
	out, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, DemoKey, string(out)); err != nil {
		return nil, err
	}
	return ids, nil
}
