package favorite

import (
	"context"
	"fmt"
	"log/slog"
)

// Toggler flips favorite membership. It does not serialize callers: two
// toggles for the same user must not run concurrently, which CatalogService
// guarantees with its per-user lock.
type Toggler struct {
	store  Store
	logger *slog.Logger
}

// NewToggler creates a Toggler over store.
func NewToggler(store Store, logger *slog.Logger) *Toggler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toggler{store: store, logger: logger}
}

// Toggle adds the favorite when absent and removes it when present.
// Once the membership read succeeds the mutation runs to completion even if
// ctx is cancelled.
func (t *Toggler) Toggle(ctx context.Context, userID, category, item string) (Outcome, error) {
	has, err := t.store.Has(ctx, userID, category, item)
	if err != nil {
		return 0, fmt.Errorf("%w: has: %w", ErrStoreUnavailable, err)
	}

	ioCtx := context.WithoutCancel(ctx)
	if has {
		if err := t.store.Remove(ioCtx, userID, category, item); err != nil {
			return 0, fmt.Errorf("%w: remove: %w", ErrStoreUnavailable, err)
		}
		t.logger.Debug("favorite removed", "user_id", userID, "category", category, "item", item)
		return Removed, nil
	}

	if err := t.store.Add(ioCtx, userID, category, item); err != nil {
		return 0, fmt.Errorf("%w: add: %w", ErrStoreUnavailable, err)
	}
	t.logger.Debug("favorite added", "user_id", userID, "category", category, "item", item)
	return Added, nil
}

// Forget removes the favorite if it is stored and reports whether it was.
// It never adds, so a reference the catalog no longer knows can only leave
// the store.
func (t *Toggler) Forget(ctx context.Context, userID, category, item string) (bool, error) {
	has, err := t.store.Has(ctx, userID, category, item)
	if err != nil {
		return false, fmt.Errorf("%w: has: %w", ErrStoreUnavailable, err)
	}
	if !has {
		return false, nil
	}
	if err := t.store.Remove(context.WithoutCancel(ctx), userID, category, item); err != nil {
		return false, fmt.Errorf("%w: remove: %w", ErrStoreUnavailable, err)
	}
	t.logger.Debug("stale favorite removed", "user_id", userID, "category", category, "item", item)
	return true, nil
}
