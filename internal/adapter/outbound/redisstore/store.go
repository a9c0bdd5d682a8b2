// Package redisstore persists favorites in Redis sorted sets.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/openheads/headcatalog/internal/domain/favorite"
)

// memberSep separates category and item inside a set member. Unit separator
// never appears in catalog names loaded from files.
const memberSep = "\x1f"

// FavoriteStore implements favorite.Store with one sorted set per user at
// <prefix>:favorites:<user>. Scores come from a per-user counter so ZRANGE
// returns favorites in insertion order.
type FavoriteStore struct {
	client redis.UniversalClient
	prefix string
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string) *FavoriteStore {
	return &FavoriteStore{client: client, prefix: prefix}
}

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, addr string, db int, prefix string) (*FavoriteStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

// Close closes the client.
func (s *FavoriteStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *FavoriteStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *FavoriteStore) setKey(userID string) string {
	return s.prefix + ":favorites:" + userID
}

func (s *FavoriteStore) seqKey(userID string) string {
	return s.prefix + ":favorites_seq:" + userID
}

func member(category, item string) string {
	return category + memberSep + item
}

// Add inserts the favorite unless present.
func (s *FavoriteStore) Add(ctx context.Context, userID, category, item string) error {
	m := member(category, item)
	key := s.setKey(userID)

	if err := s.client.ZScore(ctx, key, m).Err(); err == nil {
		return nil
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("zscore favorite: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("incr favorite seq: %w", err)
	}
	if err := s.client.ZAddNX(ctx, key, &redis.Z{Score: float64(seq), Member: m}).Err(); err != nil {
		return fmt.Errorf("zadd favorite: %w", err)
	}
	return nil
}

// Remove deletes the favorite.
func (s *FavoriteStore) Remove(ctx context.Context, userID, category, item string) error {
	if err := s.client.ZRem(ctx, s.setKey(userID), member(category, item)).Err(); err != nil {
		return fmt.Errorf("zrem favorite: %w", err)
	}
	return nil
}

// Has reports whether the favorite exists.
func (s *FavoriteStore) Has(ctx context.Context, userID, category, item string) (bool, error) {
	err := s.client.ZScore(ctx, s.setKey(userID), member(category, item)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("zscore favorite: %w", err)
	}
	return true, nil
}

// List returns the user's favorites in insertion order.
func (s *FavoriteStore) List(ctx context.Context, userID string) ([]favorite.Record, error) {
	members, err := s.client.ZRange(ctx, s.setKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange favorites: %w", err)
	}
	out := make([]favorite.Record, 0, len(members))
	for _, m := range members {
		category, item, ok := strings.Cut(m, memberSep)
		if !ok {
			continue
		}
		out = append(out, favorite.Record{UserID: userID, Category: category, Item: item})
	}
	return out, nil
}

var _ favorite.Store = (*FavoriteStore)(nil)
