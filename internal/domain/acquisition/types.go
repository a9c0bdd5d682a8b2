// Package acquisition executes the buy-or-take-free flow for a head.
package acquisition

import "time"

// Outcome is the business result of an acquisition.
type Outcome int

const (
	Granted Outcome = iota + 1
	InsufficientFunds
)

func (o Outcome) String() string {
	switch o {
	case Granted:
		return "granted"
	case InsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

// Result is returned for both business outcomes. Faults are errors.
type Result struct {
	Outcome Outcome
	// Price is the amount debited, 0 for free heads and refusals.
	Price     float64
	ReceiptID string
}

// ItemDescriptor is what the inventory receives.
type ItemDescriptor struct {
	ReceiptID      string  `json:"receipt_id"`
	Category       string  `json:"category"`
	Item           string  `json:"item"`
	DisplayNameKey string  `json:"display_name_key,omitempty"`
	Texture        string  `json:"texture,omitempty"`
	Price          float64 `json:"price"`
}

// Grant is a delivered item as recorded by an inventory.
type Grant struct {
	Item      ItemDescriptor `json:"item"`
	GrantedAt time.Time      `json:"granted_at"`
}
