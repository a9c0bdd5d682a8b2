package favorite

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps every failure of the backing favorite store.
var ErrStoreUnavailable = errors.New("favorite store unavailable")

// Store persists favorite records. Implementations must keep (user, category,
// item) unique and return List in a stable order for a given user.
type Store interface {
	// Add stores the favorite. Adding an existing favorite is a no-op.
	Add(ctx context.Context, userID, category, item string) error
	// Remove deletes the favorite. Removing a missing favorite is a no-op.
	Remove(ctx context.Context, userID, category, item string) error
	// Has reports whether the favorite exists.
	Has(ctx context.Context, userID, category, item string) (bool, error)
	// List returns all favorites of a user in retrieval order.
	List(ctx context.Context, userID string) ([]Record, error)
}
