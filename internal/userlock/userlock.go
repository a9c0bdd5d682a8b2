// Package userlock serializes work per key without a global lock.
package userlock

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 64

// Keyed hands out one exclusive slot per key. Keys hash onto shards so that
// unrelated keys only share a short map lookup. Waiters on a key are woken
// in arrival order. Unused keys are dropped as soon as the last holder or
// waiter leaves.
type Keyed struct {
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	locks map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

// New creates an empty Keyed lock.
func New() *Keyed {
	k := &Keyed{}
	for i := range k.shards {
		k.shards[i].locks = make(map[string]*slot)
	}
	return k
}

// Lock blocks until key is free or ctx is done. The returned unlock function
// is safe to call more than once.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := &k.shards[xxhash.Sum64String(key)%shardCount]

	sh.mu.Lock()
	sl, ok := sh.locks[key]
	if !ok {
		sl = &slot{sem: make(chan struct{}, 1)}
		sh.locks[key] = sl
	}
	sl.refs++
	sh.mu.Unlock()

	select {
	case sl.sem <- struct{}{}:
	case <-ctx.Done():
		sh.release(key, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.sem
			sh.release(key, sl)
		})
	}, nil
}

// Do runs fn while holding key.
func (k *Keyed) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := k.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

// Len returns the number of keys currently held or waited on.
func (k *Keyed) Len() int {
	n := 0
	for i := range k.shards {
		sh := &k.shards[i]
		sh.mu.Lock()
		n += len(sh.locks)
		sh.mu.Unlock()
	}
	return n
}

func (s *shard) release(key string, sl *slot) {
	s.mu.Lock()
	sl.refs--
	if sl.refs == 0 {
		delete(s.locks, key)
	}
	s.mu.Unlock()
}
