package models

import "time"

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Kind distinguishes market orders (priced at the current reference price)
// from limit orders (priced by the user).
type Kind string

const (
	KindMarket Kind = "market"
	KindLimit  Kind = "limit"
)

// FinalityMode selects how an executed order is resolved: hard finality is
// always permanent, soft finality may still be reverted.
type FinalityMode string

const (
	FinalitySoft FinalityMode = "soft"
	FinalityHard FinalityMode = "hard"
)

// Status is the order lifecycle state.
// pending -> executed -> permanent | reverted, or pending -> cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuted  Status = "executed"
	StatusPermanent Status = "permanent"
	StatusReverted  Status = "reverted"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPermanent || s == StatusReverted || s == StatusCancelled
}

// Order is a simulated exchange order. Price, Quantity and FinalityMode are
// fixed at creation; only Status and the balance snapshots change afterwards.
type Order struct {
	ID           string       `json:"id"`
	Side         Side         `json:"side"`
	Kind         Kind         `json:"kind"`
	Price        float64      `json:"price"`
	Quantity     float64      `json:"quantity"`
	FinalityMode FinalityMode `json:"finality_mode"`
	Status       Status       `json:"status"`

	// Balance snapshots taken when the settlement loop executes the order.
	// OriginalBalance is what the balance is restored to on reversion.
	OriginalBalance float64 `json:"original_balance,omitempty"`
	SettledBalance  float64 `json:"settled_balance,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Value is the notional value of the order.
func (o *Order) Value() float64 {
	return o.Quantity * o.Price
}
