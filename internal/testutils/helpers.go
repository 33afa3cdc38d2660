package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/liftlog/pkg/adapters/memory"
	"github.com/aretw0/liftlog/pkg/ports"
)

// FlakyStore wraps a KVStore with injectable latency and failures.
// It also records the order in which writes land and how many overlapped.
type FlakyStore struct {
	Next ports.KVStore

	// Delay, when set, is slept before every Set/Remove.
	Delay func(key string) time.Duration

	// Failure hooks. A non-nil return aborts the call with that error.
	FailGet    func(key string) error
	FailSet    func(key, value string) error
	FailRemove func(key string) error

	mu        sync.Mutex
	writes    []string
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

var _ ports.KVStore = (*FlakyStore)(nil)

// NewFlakyStore wraps a fresh in-memory store.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{Next: memory.NewStore()}
}

func (s *FlakyStore) Get(ctx context.Context, key string) (string, error) {
	if s.FailGet != nil {
		if err := s.FailGet(key); err != nil {
			return "", err
		}
	}
	return s.Next.Get(ctx, key)
}

func (s *FlakyStore) Set(ctx context.Context, key, value string) error {
	defer s.enter()()
	s.sleep(key)
	if s.FailSet != nil {
		if err := s.FailSet(key, value); err != nil {
			return err
		}
	}
	s.record("set:" + key)
	return s.Next.Set(ctx, key, value)
}

func (s *FlakyStore) Remove(ctx context.Context, key string) error {
	defer s.enter()()
	s.sleep(key)
	if s.FailRemove != nil {
		if err := s.FailRemove(key); err != nil {
			return err
		}
	}
	s.record("remove:" + key)
	return s.Next.Remove(ctx, key)
}

// Writes returns the landed writes, in order, as "set:<key>" / "remove:<key>".
func (s *FlakyStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

// MaxConcurrentWrites reports the largest number of overlapping Set/Remove calls seen.
func (s *FlakyStore) MaxConcurrentWrites() int {
	return int(s.maxFlight.Load())
}

func (s *FlakyStore) enter() func() {
	cur := s.inFlight.Add(1)
	for {
		prev := s.maxFlight.Load()
		if cur <= prev || s.maxFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	return func() { s.inFlight.Add(-1) }
}

func (s *FlakyStore) sleep(key string) {
	if s.Delay == nil {
		return
	}
	if d := s.Delay(key); d > 0 {
		time.Sleep(d)
	}
}

func (s *FlakyStore) record(op string) {
	s.mu.Lock()
	s.writes = append(s.writes, op)
	s.mu.Unlock()
}
