package acquisition

import (
	"context"
	"errors"
)

// Sentinel errors for acquisitions.
var (
	// ErrStoreUnavailable means the ledger could not be read or written.
	// Nothing was debited.
	ErrStoreUnavailable = errors.New("ledger unavailable")

	// ErrInsufficientFunds is returned by Ledger.Debit when the balance
	// dropped below the amount after HasFunds.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrGrantFailed means the item could not be delivered. Any debit was
	// refunded.
	ErrGrantFailed = errors.New("grant failed")

	// ErrReconciliationRequired means the item was not delivered and the
	// refund failed too. The debit must be reconciled by an operator.
	ErrReconciliationRequired = errors.New("reconciliation required")
)

// Ledger is the balance service.
type Ledger interface {
	HasFunds(ctx context.Context, userID string, amount float64) (bool, error)
	Debit(ctx context.Context, userID string, amount float64) error
	// Credit is used only to refund a debit whose grant failed.
	Credit(ctx context.Context, userID string, amount float64) error
}

// Inventory delivers acquired items.
type Inventory interface {
	Grant(ctx context.Context, userID string, item ItemDescriptor) error
}
