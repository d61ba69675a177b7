package models

import "gorm.io/gorm"

// SettledOrder is the journal record written for every order that reaches a
// terminal status. The in-memory store stays authoritative; this table only
// feeds the historical UI endpoints.
type SettledOrder struct {
	gorm.Model
	OrderID         string  `gorm:"uniqueIndex" json:"order_id"`
	Side            string  `json:"side"`
	Kind            string  `json:"kind"`
	Price           float64 `json:"price"`
	Quantity        float64 `json:"quantity"`
	FinalityMode    string  `json:"finality_mode"`
	Outcome         string  `json:"outcome"` // "permanent", "reverted" or "cancelled"
	OriginalBalance float64 `json:"original_balance"`
	SettledBalance  float64 `json:"settled_balance"`
	PlacedAt        int64   `json:"placed_at"`
	ResolvedAt      int64   `json:"resolved_at"`
}
