package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/openheads/headcatalog/internal/domain/acquisition"
)

// Ledger implements acquisition.Ledger in memory. Unknown users start with
// the configured starting balance.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]float64
	starting float64
}

// NewLedger creates a ledger seeding new users with startingBalance.
func NewLedger(startingBalance float64) *Ledger {
	return &Ledger{balances: make(map[string]float64), starting: startingBalance}
}

func (l *Ledger) balanceLocked(userID string) float64 {
	if b, ok := l.balances[userID]; ok {
		return b
	}
	return l.starting
}

// HasFunds reports whether the balance covers amount.
func (l *Ledger) HasFunds(_ context.Context, userID string, amount float64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID) >= amount, nil
}

// Debit subtracts amount or fails with acquisition.ErrInsufficientFunds.
func (l *Ledger) Debit(_ context.Context, userID string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative debit %v", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.balanceLocked(userID)
	if b < amount {
		return acquisition.ErrInsufficientFunds
	}
	l.balances[userID] = b - amount
	return nil
}

// Credit adds amount.
func (l *Ledger) Credit(_ context.Context, userID string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("negative credit %v", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = l.balanceLocked(userID) + amount
	return nil
}

// Balance returns the user's balance.
func (l *Ledger) Balance(_ context.Context, userID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID), nil
}

// SetBalance overwrites the user's balance.
func (l *Ledger) SetBalance(userID string, amount float64) {
	l.mu.Lock()
	l.balances[userID] = amount
	l.mu.Unlock()
}

var _ acquisition.Ledger = (*Ledger)(nil)
