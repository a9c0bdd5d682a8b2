package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/openheads/headcatalog/internal/domain/favorite"
)

// FavoriteStore implements favorite.Store in memory. List returns favorites
// in insertion order. For development and tests.
type FavoriteStore struct {
	mu    sync.RWMutex
	users map[string][]favorite.Key
}

// NewFavoriteStore creates an empty store.
func NewFavoriteStore() *FavoriteStore {
	return &FavoriteStore{users: make(map[string][]favorite.Key)}
}

// Add stores the favorite unless present.
func (s *FavoriteStore) Add(_ context.Context, userID, category, item string) error {
	k := favorite.Key{Category: category, Item: item}
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.users[userID], k) {
		return nil
	}
	s.users[userID] = append(s.users[userID], k)
	return nil
}

// Remove deletes the favorite if present.
func (s *FavoriteStore) Remove(_ context.Context, userID, category, item string) error {
	k := favorite.Key{Category: category, Item: item}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := slices.DeleteFunc(slices.Clone(s.users[userID]), func(x favorite.Key) bool { return x == k })
	if len(keys) == 0 {
		delete(s.users, userID)
		return nil
	}
	s.users[userID] = keys
	return nil
}

// Has reports whether the favorite exists.
func (s *FavoriteStore) Has(_ context.Context, userID, category, item string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.users[userID], favorite.Key{Category: category, Item: item}), nil
}

// List returns a copy of the user's favorites.
func (s *FavoriteStore) List(_ context.Context, userID string) ([]favorite.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.users[userID]
	out := make([]favorite.Record, len(keys))
	for i, k := range keys {
		out[i] = favorite.Record{UserID: userID, Category: k.Category, Item: k.Item}
	}
	return out, nil
}

var _ favorite.Store = (*FavoriteStore)(nil)
