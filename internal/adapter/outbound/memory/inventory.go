package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/openheads/headcatalog/internal/domain/acquisition"
)

// Inventory records granted heads per user. The presentation layer drains
// it to place heads into the player's inventory.
type Inventory struct {
	mu     sync.RWMutex
	grants map[string][]acquisition.Grant
	now    func() time.Time
}

// NewInventory creates an empty inventory outbox.
func NewInventory() *Inventory {
	return &Inventory{grants: make(map[string][]acquisition.Grant), now: time.Now}
}

// Grant records item for userID. A receipt already granted is not recorded twice.
func (inv *Inventory) Grant(_ context.Context, userID string, item acquisition.ItemDescriptor) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, g := range inv.grants[userID] {
		if item.ReceiptID != "" && g.Item.ReceiptID == item.ReceiptID {
			return nil
		}
	}
	inv.grants[userID] = append(inv.grants[userID], acquisition.Grant{Item: item, GrantedAt: inv.now().UTC()})
	return nil
}

// Grants returns a copy of the user's grants, oldest first.
func (inv *Inventory) Grants(_ context.Context, userID string) ([]acquisition.Grant, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return slices.Clone(inv.grants[userID]), nil
}

var _ acquisition.Inventory = (*Inventory)(nil)
