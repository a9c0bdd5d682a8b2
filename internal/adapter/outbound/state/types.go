// Package state persists the balance ledger as a JSON document on disk.
//
// Every mutation rewrites ledger.json atomically under a cross-process file
// lock and keeps the previous version as ledger.json.bak.
package state

import "time"

// LedgerState is the document stored in the ledger file.
type LedgerState struct {
	// Version is the schema version. Currently "1".
	Version string `json:"version"`

	// Balances maps user IDs to their balance. Users missing here hold the
	// ledger's starting balance.
	Balances map[string]float64 `json:"balances"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newLedgerState() *LedgerState {
	now := time.Now().UTC()
	return &LedgerState{
		Version:   "1",
		Balances:  map[string]float64{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
