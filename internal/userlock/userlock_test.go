package userlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	locks := New()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locks.Do(context.Background(), "alice", func(context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInside.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside.Load())
	}
	if locks.Len() != 0 {
		t.Errorf("Len() = %d after all released, want 0", locks.Len())
	}
}

func TestKeyed_DifferentKeysRunInParallel(t *testing.T) {
	defer goleak.VerifyNone(t)

	locks := New()
	unlockA, err := locks.Lock(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = locks.Do(context.Background(), "bob", func(context.Context) error { return nil })
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bob blocked behind alice")
	}
}

func TestKeyed_ContextCancelWhileWaiting(t *testing.T) {
	defer goleak.VerifyNone(t)

	locks := New()
	unlock, err := locks.Lock(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err = locks.Do(ctx, "alice", func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
	if called {
		t.Error("fn ran without the lock")
	}

	unlock()
	unlock()
	if locks.Len() != 0 {
		t.Errorf("Len() = %d, want 0", locks.Len())
	}
}

func TestKeyed_PropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := New().Do(context.Background(), "alice", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
