// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/openheads/headcatalog/internal/domain/browse"
)

// Default cleanup interval for idle sessions.
const DefaultCleanupInterval = 1 * time.Minute

const sessionShards = 32

type sessionShard struct {
	mu       sync.RWMutex
	sessions map[string]*browse.Session
}

// SessionRegistry implements browse.Registry with a sharded map keyed by
// user. A background goroutine drops sessions idle for longer than the idle
// timeout.
type SessionRegistry struct {
	shards          [sessionShards]sessionShard
	grid            browse.Grid
	idleTimeout     time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	onEvict         func(userID string)
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
}

// NewSessionRegistry creates a registry with the default cleanup interval.
func NewSessionRegistry(grid browse.Grid, idleTimeout time.Duration) *SessionRegistry {
	return NewSessionRegistryWithConfig(grid, idleTimeout, DefaultCleanupInterval)
}

// NewSessionRegistryWithConfig creates a registry with a custom cleanup interval.
func NewSessionRegistryWithConfig(grid browse.Grid, idleTimeout, cleanupInterval time.Duration) *SessionRegistry {
	r := &SessionRegistry{
		grid:            grid,
		idleTimeout:     idleTimeout,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		stopChan:        make(chan struct{}),
	}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*browse.Session)
	}
	return r
}

// OnEvict registers a callback run after the cleanup loop drops a session.
// Must be called before StartCleanup.
func (r *SessionRegistry) OnEvict(fn func(userID string)) {
	r.onEvict = fn
}

func (r *SessionRegistry) shard(userID string) *sessionShard {
	return &r.shards[xxhash.Sum64String(userID)%sessionShards]
}

// GetOrCreate returns the user's session, creating a closed one if needed.
func (r *SessionRegistry) GetOrCreate(userID string) *browse.Session {
	sh := r.shard(userID)
	now := r.now()

	sh.mu.RLock()
	sess, ok := sh.sessions[userID]
	sh.mu.RUnlock()
	if ok {
		sess.Touch(now)
		return sess
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sess, ok = sh.sessions[userID]; !ok {
		sess = browse.NewSession(userID, r.grid)
		sh.sessions[userID] = sess
	}
	sess.Touch(now)
	return sess
}

// Get returns the user's session if it exists.
func (r *SessionRegistry) Get(userID string) (*browse.Session, bool) {
	sh := r.shard(userID)
	sh.mu.RLock()
	sess, ok := sh.sessions[userID]
	sh.mu.RUnlock()
	if ok {
		sess.Touch(r.now())
	}
	return sess, ok
}

// Delete drops the user's session.
func (r *SessionRegistry) Delete(userID string) {
	sh := r.shard(userID)
	sh.mu.Lock()
	delete(sh.sessions, userID)
	sh.mu.Unlock()
}

// Size returns the number of sessions.
func (r *SessionRegistry) Size() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// StartCleanup starts the background cleanup goroutine.
// Call Stop() to stop it gracefully.
func (r *SessionRegistry) StartCleanup(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.cleanup()
			}
		}
	}()
}

func (r *SessionRegistry) cleanup() {
	cutoff := r.now().Add(-r.idleTimeout)
	var evicted []string

	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.LastAccess().Before(cutoff) {
				delete(sh.sessions, id)
				evicted = append(evicted, id)
			}
		}
		sh.mu.Unlock()
	}

	if len(evicted) > 0 {
		slog.Debug("evicted idle catalog sessions", "count", len(evicted))
		if r.onEvict != nil {
			for _, id := range evicted {
				r.onEvict(id)
			}
		}
	}
}

// Stop stops the background cleanup goroutine and waits for it to exit.
// Safe to call multiple times.
func (r *SessionRegistry) Stop() {
	r.once.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// Compile-time interface verification.
var _ browse.Registry = (*SessionRegistry)(nil)
