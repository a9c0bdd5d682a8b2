package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openheads/headcatalog/internal/domain/catalog"
)

// Transaction runs acquisitions against a ledger and an inventory. Callers
// must serialize acquisitions of the same user.
type Transaction struct {
	ledger    Ledger
	inventory Inventory
	logger    *slog.Logger
	newID     func() string
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transaction) {
		t.logger = logger
	}
}

// WithReceiptIDs overrides receipt ID generation.
func WithReceiptIDs(fn func() string) Option {
	return func(t *Transaction) {
		t.newID = fn
	}
}

// NewTransaction creates a Transaction.
func NewTransaction(ledger Ledger, inventory Inventory, opts ...Option) *Transaction {
	t := &Transaction{
		ledger:    ledger,
		inventory: inventory,
		logger:    slog.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Acquire charges the category price (if any) and grants the item.
//
// The funds check honours ctx. Once the debit starts, debit, grant and a
// possible refund run to completion regardless of ctx cancellation.
func (t *Transaction) Acquire(ctx context.Context, userID string, cat *catalog.Category, item catalog.Item) (Result, error) {
	receipt := t.newID()
	price := cat.Price
	if price < 0 {
		price = 0
	}
	log := t.logger.With("user_id", userID, "category", cat.Name, "item", item.Name, "receipt_id", receipt)

	if price > 0 {
		ok, err := t.ledger.HasFunds(ctx, userID, price)
		if err != nil {
			return Result{}, fmt.Errorf("%w: has funds: %w", ErrStoreUnavailable, err)
		}
		if !ok {
			return Result{Outcome: InsufficientFunds, ReceiptID: receipt}, nil
		}
	}

	ioCtx := context.WithoutCancel(ctx)
	if price > 0 {
		if err := t.ledger.Debit(ioCtx, userID, price); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return Result{Outcome: InsufficientFunds, ReceiptID: receipt}, nil
			}
			return Result{}, fmt.Errorf("%w: debit: %w", ErrStoreUnavailable, err)
		}
	}

	desc := ItemDescriptor{
		ReceiptID:      receipt,
		Category:       cat.Name,
		Item:           item.Name,
		DisplayNameKey: cat.DisplayNameKey,
		Texture:        item.Texture,
		Price:          price,
	}
	grantErr := t.inventory.Grant(ioCtx, userID, desc)
	if grantErr == nil {
		log.Info("head acquired", "price", price)
		return Result{Outcome: Granted, Price: price, ReceiptID: receipt}, nil
	}

	if price == 0 {
		log.Warn("grant failed", "error", grantErr)
		return Result{}, fmt.Errorf("%w: %w", ErrGrantFailed, grantErr)
	}

	if err := t.ledger.Credit(ioCtx, userID, price); err != nil {
		log.Error("grant failed and refund failed",
			"price", price,
			"grant_error", grantErr,
			"refund_error", err,
			"reconciliation_required", true,
		)
		return Result{}, fmt.Errorf("%w: grant: %w; refund: %w", ErrReconciliationRequired, grantErr, err)
	}

	log.Warn("grant failed, debit refunded", "price", price, "error", grantErr)
	return Result{}, fmt.Errorf("%w: %w", ErrGrantFailed, grantErr)
}
